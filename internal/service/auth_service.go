package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// RegisterInput describes a new CRM user.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.UserRole
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Register creates a user. Usernames and emails must be unique.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, apperrors.NewValidationError("username and email are required", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.UserRoleUser
	}
	if role != domain.UserRoleUser && role != domain.UserRoleAdmin {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"field": "role", "value": role})
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		s.logger.Info("registration rejected", zap.String("username", username), zap.String("reason", "username taken"))
		return nil, apperrors.NewConflict("username already registered", map[string]any{"field": "username"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.logger.Info("registration rejected", zap.String("username", username), zap.String("reason", "email taken"))
		return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperrors.NewValidationError("password too short", map[string]any{"field": "password", "min_length": auth.MinPasswordLength})
		}
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", username))
	return user, nil
}

// Login authenticates by username and password and issues a bearer token.
// Unknown users, wrong passwords and inactive users all fail with the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, domain.Token, error) {
	invalid := apperrors.NewUnauthorized("incorrect username or password")
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("login failed", zap.String("username", username))
			return nil, domain.Token{}, invalid
		}
		return nil, domain.Token{}, apperrors.MapError(err)
	}
	if !user.IsActive || auth.ComparePassword(user.PasswordHash, password) != nil {
		s.logger.Info("login failed", zap.String("username", username))
		return nil, domain.Token{}, invalid
	}
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, apperrors.MapError(err)
	}
	s.logger.Info("login succeeded", zap.Int64("user_id", user.ID))
	return user, token, nil
}

// ListUsers returns one page of users.
func (s *AuthService) ListUsers(ctx context.Context, req PageRequest, activeOnly bool) (PageResult[domain.User], error) {
	items, total, err := s.users.List(ctx, repository.UserFilter{Page: req.repoPage(), ActiveOnly: activeOnly})
	if err != nil {
		return PageResult[domain.User]{}, apperrors.MapError(err)
	}
	return newPageResult(items, total, req), nil
}

// UserAdminUpdate changes a user's role or active flag. Nil fields are left untouched.
type UserAdminUpdate struct {
	Role     *domain.UserRole
	IsActive *bool
}

// UpdateUser applies an administrator's change. Deactivated users drop out of the assignment pool
// and can no longer log in.
func (s *AuthService) UpdateUser(ctx context.Context, actor *domain.User, id int64, update UserAdminUpdate) (*domain.User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("administrator role required")
	}
	if update.Role != nil && *update.Role != domain.UserRoleUser && *update.Role != domain.UserRoleAdmin {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"field": "role", "value": *update.Role})
	}
	if actor.ID == id && update.IsActive != nil && !*update.IsActive {
		return nil, apperrors.NewInvalidArgument("administrators cannot deactivate themselves", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user", id)
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user updated",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Bool("is_active", user.IsActive),
		zap.Int64("actor_id", actor.ID))
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
