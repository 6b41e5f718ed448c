package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// identitySetKey is the Redis set holding every valid account id.
const identitySetKey = "ui"

type userIDLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// IdentityRepository maintains the set of currently-valid subject ids in
// Redis. It answers the per-request "does this account still exist" check
// without a database round trip, which also catches tokens of deleted
// accounts before their natural expiry.
type IdentityRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewIdentityRepository constructs an identity repository.
func NewIdentityRepository(client *redis.Client, logger *zap.Logger) *IdentityRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityRepository{client: client, logger: logger}
}

// Exists reports set membership for the subject id. Store errors degrade to
// "assume the account exists" and are logged, mirroring the denylist's
// availability-over-strictness stance.
func (r *IdentityRepository) Exists(ctx context.Context, subjectID string) bool {
	member, err := r.client.SIsMember(ctx, identitySetKey, subjectID).Result()
	if err != nil {
		r.logger.Warn("identity set check failed, assuming subject exists", zap.Error(err))
		return true
	}
	return member
}

// Add registers a subject id as valid. Re-adding an existing member is
// harmless.
func (r *IdentityRepository) Add(ctx context.Context, subjectID string) error {
	if err := r.client.SAdd(ctx, identitySetKey, subjectID).Err(); err != nil {
		return fmt.Errorf("add subject %s to identity set: %w", subjectID, err)
	}
	return nil
}

// Remove drops a subject id, immediately invalidating all of its otherwise
// still-valid tokens.
func (r *IdentityRepository) Remove(ctx context.Context, subjectID string) error {
	if err := r.client.SRem(ctx, identitySetKey, subjectID).Err(); err != nil {
		return fmt.Errorf("remove subject %s from identity set: %w", subjectID, err)
	}
	return nil
}

// Warm populates the set from the system of record at process start.
func (r *IdentityRepository) Warm(ctx context.Context, users userIDLister) error {
	ids, err := users.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list user ids: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	if err := r.client.SAdd(ctx, identitySetKey, members...).Err(); err != nil {
		return fmt.Errorf("warm identity set: %w", err)
	}

	r.logger.Info("identity set warmed", zap.Int("subjects", len(ids)))
	return nil
}
