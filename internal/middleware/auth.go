package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aakarshsak/ecom-price-tracker/internal/authz"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/response"
)

// ContextIdentityKey is the gin context key storing the caller identity.
const ContextIdentityKey = "currentIdentity"

// Auth protects routes by requiring a valid, unrevoked access token. The
// revocation lookup runs under the authorizer's bounded timeout and denies
// on store failure.
func Auth(authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			c.Abort()
			return
		}

		identity, err := authorizer.Authorize(c.Request.Context(), raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// Identity returns the authenticated caller stored by Auth.
func Identity(c *gin.Context) (*authz.Identity, bool) {
	value, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := value.(*authz.Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
