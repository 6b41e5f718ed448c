package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stocknest/inventory-api/internal/models"
	"github.com/stocknest/inventory-api/internal/token"
	appErrors "github.com/stocknest/inventory-api/pkg/errors"
	"github.com/stocknest/inventory-api/pkg/password"
)

type sessionUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// DenylistStore records revoked tokens until their natural expiry.
type DenylistStore interface {
	IsDenylisted(ctx context.Context, tokenString string) bool
	Denylist(ctx context.Context, tokenString string)
}

// IdentityStore answers whether a subject id still names a live account.
type IdentityStore interface {
	Exists(ctx context.Context, subjectID string) bool
	Add(ctx context.Context, subjectID string) error
}

// LoginResult carries the issued token pair and the sanitized account view.
type LoginResult struct {
	User    models.UserInfo
	Access  token.IssuedToken
	Refresh token.IssuedToken
}

// AuthResult is the decision of the authorize-and-refresh state machine. The
// HTTP adapter applies it: NewAccess rewrites the Authorization header,
// NewRefresh overwrites the refresh cookie, and ClearRefreshCookie (set on
// failures where a refresh token was present but unusable) removes it.
type AuthResult struct {
	SubjectID          string
	NewAccess          *token.IssuedToken
	NewRefresh         *token.IssuedToken
	ClearRefreshCookie bool
}

// SessionService is the request-level state machine for session lifecycle:
// login, logout, registration, and per-request authorization with silent
// token rotation.
type SessionService struct {
	users      sessionUserRepository
	denylist   DenylistStore
	identities IdentityStore
	codec      *token.Codec
	policy     token.RefreshPolicy
	hasher     *password.Hasher
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	users sessionUserRepository,
	denylist DenylistStore,
	identities IdentityStore,
	codec *token.Codec,
	policy token.RefreshPolicy,
	hasher *password.Hasher,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{
		users:      users,
		denylist:   denylist,
		identities: identities,
		codec:      codec,
		policy:     policy,
		hasher:     hasher,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
	}
}

// Login authenticates credentials and issues a fresh token pair.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownEmail
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, appErrors.ErrIncorrectPassword
	}

	access, refresh, err := s.issuePair(ctx, user.ID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue tokens")
	}

	return &LoginResult{User: user.Info(), Access: *access, Refresh: *refresh}, nil
}

// Register creates an account and marks its id as a valid subject.
func (s *SessionService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "e-mail is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check e-mail")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.identities.Add(ctx, user.ID); err != nil {
		// The warm-up on next restart repairs the set; until then the new
		// account may be rejected by the existence check.
		s.logger.Warn("failed to add new user to identity set", zap.String("user_id", user.ID), zap.Error(err))
	}

	info := user.Info()
	return &info, nil
}

// Logout denylists whichever tokens the client presented. It never fails:
// logging out with no valid tokens is a no-op.
func (s *SessionService) Logout(ctx context.Context, accessToken, refreshToken string) {
	if refreshToken != "" {
		s.denylist.Denylist(ctx, refreshToken)
		s.metrics.TokenDenylisted()
	}
	if accessToken != "" {
		s.denylist.Denylist(ctx, accessToken)
		s.metrics.TokenDenylisted()
	}
}

// Authorize drives one request through the session state machine: try the
// access token, fall back to the refresh token, and rotate what needs
// rotating. On error the returned result may still carry a cookie-clearing
// decision for the adapter.
func (s *SessionService) Authorize(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	if accessToken == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing Authorization header with Bearer schema")
	}

	if subjectID, ok := s.tryAccessToken(ctx, accessToken); ok {
		return &AuthResult{SubjectID: subjectID}, nil
	}

	return s.tryRefreshToken(ctx, refreshToken)
}

// tryAccessToken is the fast path. Every failure, whether denylisted,
// malformed, expired, or a vanished subject, falls through to the refresh
// path instead of rejecting outright.
func (s *SessionService) tryAccessToken(ctx context.Context, accessToken string) (string, bool) {
	if s.denylist.IsDenylisted(ctx, accessToken) {
		return "", false
	}

	claims, err := s.codec.Decode(accessToken, token.ClassAccess)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			s.denylistExpired(ctx, accessToken)
		}
		return "", false
	}

	if !s.identities.Exists(ctx, claims.SubjectID) {
		return "", false
	}

	return claims.SubjectID, true
}

func (s *SessionService) tryRefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" || s.denylist.IsDenylisted(ctx, refreshToken) {
		return nil, appErrors.ErrUnauthorized
	}

	claims, err := s.codec.Decode(refreshToken, token.ClassRefresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			s.denylistExpired(ctx, refreshToken)
		}
		// The cookie held a bad token, as opposed to no token at all.
		return &AuthResult{ClearRefreshCookie: true}, appErrors.ErrUnauthorized
	}

	if !s.identities.Exists(ctx, claims.SubjectID) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "you don't exist")
	}

	rotate := s.policy.EligibleForRefresh(claims.IssuedAt)

	access, refresh, err := s.rotatePair(ctx, claims.SubjectID, refreshToken, rotate)
	if err != nil {
		s.logger.Error("failed to mint replacement tokens", zap.Error(err))
		return &AuthResult{ClearRefreshCookie: true}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "unauthorized")
	}

	return &AuthResult{
		SubjectID:  claims.SubjectID,
		NewAccess:  access,
		NewRefresh: refresh,
	}, nil
}

// issuePair mints an ACCESS and, when withRefresh is set, a REFRESH token
// concurrently.
func (s *SessionService) issuePair(ctx context.Context, subjectID string, withRefresh bool) (*token.IssuedToken, *token.IssuedToken, error) {
	var access, refresh token.IssuedToken

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		issued, err := s.codec.Issue(subjectID, token.ClassAccess)
		if err != nil {
			return err
		}
		access = issued
		s.metrics.TokenIssued(string(token.ClassAccess))
		return nil
	})
	if withRefresh {
		g.Go(func() error {
			issued, err := s.codec.Issue(subjectID, token.ClassRefresh)
			if err != nil {
				return err
			}
			refresh = issued
			s.metrics.TokenIssued(string(token.ClassRefresh))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if !withRefresh {
		return &access, nil, nil
	}
	return &access, &refresh, nil
}

// rotatePair always mints a new access token; when rotate is set it also
// replaces the refresh token, denylisting the old one. The denylist write and
// the replacement issuance have no ordering dependency and run concurrently.
func (s *SessionService) rotatePair(ctx context.Context, subjectID, oldRefresh string, rotate bool) (*token.IssuedToken, *token.IssuedToken, error) {
	if !rotate {
		access, _, err := s.issuePair(ctx, subjectID, false)
		return access, nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.denylist.Denylist(gctx, oldRefresh)
		s.metrics.TokenDenylisted()
		return nil
	})

	var access, refresh *token.IssuedToken
	g.Go(func() error {
		var err error
		access, refresh, err = s.issuePair(gctx, subjectID, true)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	s.metrics.SessionRotated()
	return access, refresh, nil
}

// denylistExpired applies the expired-token policy: an expired token seen by
// decode is written to the denylist so any cached or replayed copy is
// rejected early on the cheap existence check.
func (s *SessionService) denylistExpired(ctx context.Context, tokenString string) {
	s.denylist.Denylist(ctx, tokenString)
	s.metrics.TokenDenylisted()
}
