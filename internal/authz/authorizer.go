package authz

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aakarshsak/ecom-price-tracker/internal/service"
	"github.com/aakarshsak/ecom-price-tracker/internal/token"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
)

// RevocationChecker looks up revoked token ids in the shared store.
type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// Identity is the authenticated caller derived from a verified, unrevoked
// access token.
type Identity struct {
	AccountID   string
	Email       string
	Roles       []string
	Permissions []string
	Claims      *token.Claims
}

// HasPermission reports whether the token carried the named permission.
func (i *Identity) HasPermission(name string) bool {
	for _, p := range i.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the token carried one of the named roles.
func (i *Identity) HasAnyRole(names ...string) bool {
	for _, want := range names {
		for _, have := range i.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Authorizer is the single authorization decision point shared by the auth
// service middleware and the gateway filter: verify the signature, require
// an access token, then consult the revocation store. A store failure denies
// the request; availability never trades against revocation.
type Authorizer struct {
	codec        *token.Codec
	store        RevocationChecker
	metrics      *service.MetricsService
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewAuthorizer constructs an Authorizer. metrics may be nil.
func NewAuthorizer(codec *token.Codec, store RevocationChecker, metrics *service.MetricsService, storeTimeout time.Duration, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storeTimeout <= 0 {
		storeTimeout = 2 * time.Second
	}
	return &Authorizer{
		codec:        codec,
		store:        store,
		metrics:      metrics,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Authorize validates a raw bearer token and returns the caller identity.
func (a *Authorizer) Authorize(ctx context.Context, rawToken string) (*Identity, error) {
	claims, err := a.codec.Verify(rawToken)
	if err != nil {
		a.metrics.RecordTokenRejection("invalid")
		return nil, err
	}

	if claims.TokenType != token.TypeAccess {
		a.metrics.RecordTokenRejection("wrong_type")
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "not an access token")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()

	start := time.Now()
	revoked, err := a.store.IsBlacklisted(lookupCtx, claims.TokenID())
	a.metrics.ObserveStoreLookup(time.Since(start))
	if err != nil {
		a.logger.Error("revocation store lookup failed, denying request",
			zap.String("token_id", claims.TokenID()), zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrStoreUnavailable, "")
	}
	if revoked {
		a.metrics.RecordBlacklistHit()
		return nil, appErrors.Clone(appErrors.ErrTokenRevoked, "")
	}

	return &Identity{
		AccountID:   claims.SubjectID(),
		Email:       claims.Email,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		Claims:      claims,
	}, nil
}
