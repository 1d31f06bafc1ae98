package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/auth"
	"github.com/spec-kit/fleet-helpdesk/internal/config"
	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/fleet-helpdesk/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates registration, login and user provisioning.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// CreateUserInput describes a user created by an administrator.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.UserRole
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

// Register creates a CLIENT account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, domain.Token, error) {
	user, err := s.CreateUser(ctx, CreateUserInput{Name: name, Email: email, Password: password, Role: domain.UserRoleClient})
	if err != nil {
		return nil, "", domain.Token{}, err
	}
	token, meta, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, token, meta, nil
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", domain.Token{}, invalidCredentials()
		}
		return nil, "", domain.Token{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", domain.Token{}, invalidCredentials()
	}
	token, meta, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, token, meta, nil
}

// CreateUser provisions a user with any role.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	details := map[string]any{}
	if input.Name == "" {
		details["name"] = "required"
	}
	if input.Email == "" {
		details["email"] = "required"
	}
	if len(input.Password) < minPasswordLength {
		details["password"] = "must be at least 8 characters"
	}
	if !input.Role.Valid() {
		details["role"] = "invalid"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user payload", details)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, apperrors.NewConflict(apperrors.CodeEmailTaken, "email already registered",
				map[string]any{"email": input.Email})
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// GetUser loads a user by id.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeUserNotFound, "user not found", map[string]any{"userId": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// EnsureBootstrapAdmin creates the configured ADMIN account when it does not exist yet. Empty
// email or password disables it.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.CreateUser(ctx, CreateUserInput{Name: name, Email: email, Password: password, Role: domain.UserRoleAdmin}); err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", strings.ToLower(email)))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func invalidCredentials() *apperrors.DomainError {
	return apperrors.New(apperrors.KindUnauthorized, apperrors.CodeInvalidCredentials, "invalid credentials", nil)
}
