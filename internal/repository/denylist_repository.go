package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stocknest/inventory-api/internal/token"
)

const denylistKeyPrefix = "tdl:"

// DenylistRepository records revoked tokens in Redis until their natural
// expiry. Entries carry an EXAT equal to the token's own embedded expiry, so
// the store self-prunes and no entry outlives the token it denies.
type DenylistRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewDenylistRepository constructs a denylist repository.
func NewDenylistRepository(client *redis.Client, logger *zap.Logger) *DenylistRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DenylistRepository{client: client, logger: logger}
}

// IsDenylisted reports whether the token has been revoked. Store errors
// degrade to "not denylisted": an unreachable denylist must not lock out
// every user, at the accepted risk of honoring a just-revoked token once.
func (r *DenylistRepository) IsDenylisted(ctx context.Context, tokenString string) bool {
	err := r.client.Get(ctx, denylistKeyPrefix+tokenString).Err()
	if err == nil {
		return true
	}
	if !errors.Is(err, redis.Nil) {
		r.logger.Warn("denylist check failed, assuming token is not denylisted", zap.Error(err))
	}
	return false
}

// Denylist records the token as revoked until its embedded expiry. Tokens
// that cannot be decoded at all are silently ignored, and write failures are
// logged rather than surfaced.
func (r *DenylistRepository) Denylist(ctx context.Context, tokenString string) {
	expiry, ok := token.Expiry(tokenString)
	if !ok {
		return
	}

	err := r.client.SetArgs(ctx, denylistKeyPrefix+tokenString, 1, redis.SetArgs{ExpireAt: expiry}).Err()
	if err != nil {
		r.logger.Warn("failed to denylist token", zap.Error(err))
	}
}
