package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/stocknest/inventory-api/internal/models"
	appErrors "github.com/stocknest/inventory-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type identityRemover interface {
	Remove(ctx context.Context, subjectID string) error
}

// UserService serves the authenticated account surface.
type UserService struct {
	repo       userRepository
	identities identityRemover
	logger     *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, identities identityRemover, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, identities: identities, logger: logger}
}

// Get returns the sanitized view of an account.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	info := user.Info()
	return &info, nil
}

// Delete removes the account and retracts its id from the identity set, so
// outstanding tokens stop authorizing before their natural expiry.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	if err := s.identities.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to remove user from identity set", zap.String("user_id", id), zap.Error(err))
	}

	return nil
}
