package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aakarshsak/ecom-price-tracker/pkg/config"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
)

// Token type markers carried in the "type" claim.
const (
	TypeAccess  = "ACCESS"
	TypeRefresh = "REFRESH"
)

// Claims is the decoded payload of a session token. Access tokens carry
// email, roles and permissions inline so the gateway can authorize without
// a round trip; refresh tokens deliberately omit them.
type Claims struct {
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	TokenType   string   `json:"type"`
	jwt.RegisteredClaims
}

// SubjectID returns the account id the token was issued for.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// TokenID returns the unique jti used for revocation lookups.
func (c *Claims) TokenID() string {
	return c.ID
}

// Expiry returns the expiry instant.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Codec creates and verifies signed session tokens. Verification is pure:
// no store or network access.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec builds a codec from process-wide JWT configuration.
func NewCodec(cfg config.JWTConfig) *Codec {
	return &Codec{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessExpiry,
		refreshTTL: cfg.RefreshExpiry,
	}
}

// IssueAccess signs a self-describing access token embedding the resolved
// roles and permissions. The returned token id identifies the token in the
// revocation store.
func (c *Codec) IssueAccess(subjectID, email string, roles, permissions []string) (string, string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(c.accessTTL)
	tokenID := uuid.NewString()

	claims := &Claims{
		Email:       email,
		Roles:       roles,
		Permissions: permissions,
		TokenType:   TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, tokenID, expiresAt, nil
}

// IssueRefresh signs a minimal long-lived refresh token. It carries no
// authorization state so that a stolen refresh token leaks nothing and role
// changes take effect on the next refresh.
func (c *Codec) IssueRefresh(subjectID string) (string, string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(c.refreshTTL)
	tokenID := uuid.NewString()

	claims := &Claims{
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, tokenID, expiresAt, nil
}

// Verify parses the raw token, checking signature, structure and expiry.
// Claims must only be read from a successfully verified token.
func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "invalid or expired token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "invalid token claims")
	}
	return claims, nil
}

// AccessTTL exposes the configured access token lifetime in seconds for
// response payloads.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// RefreshTTL exposes the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration {
	return c.refreshTTL
}
