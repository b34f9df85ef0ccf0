package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// blacklistKeyPrefix is the shared revocation namespace. The auth service
// writes these keys on logout; both enforcement filters read them.
const blacklistKeyPrefix = "token:blacklist:"

// blacklistSentinel is the stored value; only key existence matters.
const blacklistSentinel = "revoked"

// BlacklistRepository records revoked access-token ids in Redis. Entries
// self-expire with the token, so blacklist growth is bounded by the number
// of outstanding access-token lifetimes.
type BlacklistRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewBlacklistRepository constructs a blacklist repository.
func NewBlacklistRepository(client *redis.Client, logger *zap.Logger) *BlacklistRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlacklistRepository{client: client, logger: logger}
}

// Blacklist marks a token id as revoked until its natural expiry. An
// already-expired token is a no-op; there is nothing left to protect.
func (r *BlacklistRepository) Blacklist(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		r.logger.Debug("token already expired, skipping blacklist", zap.String("token_id", tokenID))
		return nil
	}

	key := blacklistKeyPrefix + tokenID
	if err := r.client.Set(ctx, key, blacklistSentinel, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token %s: %w", tokenID, err)
	}
	return nil
}

// IsBlacklisted performs a point lookup for a revoked token id. Errors are
// returned to the caller, which must fail closed.
func (r *BlacklistRepository) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	key := blacklistKeyPrefix + tokenID
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup %s: %w", tokenID, err)
	}
	return n > 0, nil
}
