package gateway

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aakarshsak/ecom-price-tracker/internal/authz"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/middleware/requestid"
	"github.com/aakarshsak/ecom-price-tracker/pkg/response"
)

// Identity headers injected for downstream services. Inbound values are
// always stripped first; only the gateway may assert identity.
const (
	HeaderUserID          = "X-User-Id"
	HeaderUserEmail       = "X-User-Email"
	HeaderUserRoles       = "X-User-Roles"
	HeaderUserPermissions = "X-User-Permissions"
)

// publicAuthRoutes are the session endpoints reachable without a token,
// rooted at the configured API prefix.
var publicAuthRoutes = []string{
	"/auth/register",
	"/auth/login",
	"/auth/refresh",
	"/auth/forgot-password",
	"/auth/reset-password",
	"/auth/verify-email",
}

// infraRoutes are infrastructure endpoints reachable without a token.
var infraRoutes = []string{"/health", "/ready", "/info", "/metrics"}

// Filter is the edge enforcement point. It verifies the bearer token through
// the shared authorizer and translates the caller identity into trusted
// headers for the proxied request. Store failures deny the request.
//
// Public endpoints are matched by exact path, so a nested lookalike such as
// /orders/auth/login still requires a token.
func Filter(authorizer *authz.Authorizer, apiPrefix string) gin.HandlerFunc {
	public := buildAllowList(apiPrefix)

	return func(c *gin.Context) {
		stripIdentityHeaders(c)
		if id := requestid.Value(c); id != "" {
			c.Request.Header.Set(requestid.Header, id)
		}

		if _, ok := public[strings.TrimSuffix(c.Request.URL.Path, "/")]; ok {
			c.Next()
			return
		}

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

		c.Request.Header.Set(HeaderUserID, identity.AccountID)
		c.Request.Header.Set(HeaderUserEmail, identity.Email)
		c.Request.Header.Set(HeaderUserRoles, strings.Join(identity.Roles, ","))
		c.Request.Header.Set(HeaderUserPermissions, strings.Join(identity.Permissions, ","))
		c.Next()
	}
}

func buildAllowList(apiPrefix string) map[string]struct{} {
	prefix := strings.TrimSuffix(apiPrefix, "/")
	allow := make(map[string]struct{}, len(publicAuthRoutes)+len(infraRoutes))
	for _, route := range infraRoutes {
		allow[route] = struct{}{}
	}
	for _, route := range publicAuthRoutes {
		allow[prefix+route] = struct{}{}
	}
	return allow
}

func stripIdentityHeaders(c *gin.Context) {
	c.Request.Header.Del(HeaderUserID)
	c.Request.Header.Del(HeaderUserEmail)
	c.Request.Header.Del(HeaderUserRoles)
	c.Request.Header.Del(HeaderUserPermissions)
	c.Request.Header.Del(requestid.Header)
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
