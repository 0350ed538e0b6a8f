// internal/service/auth.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dangerclosesec/portal/internal/auth"
	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/observability/metrics"
	"github.com/dangerclosesec/portal/internal/repository"
	"github.com/go-playground/validator/v10"
)

// PasswordHasher is satisfied by *auth.PasswordHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

type AuthService struct {
	repo           repository.UserRepositoryIface
	passwordHasher PasswordHasher
	tokenManager   *auth.TokenManager
	validate       *validator.Validate
	// dummyHash is verified against when the username is unknown so both
	// failure paths cost one hash computation.
	dummyHash string
}

func NewAuthService(
	repo repository.UserRepositoryIface,
	passwordHasher PasswordHasher,
	tokenManager *auth.TokenManager,
) *AuthService {
	dummyHash, err := passwordHasher.Hash("portal-unknown-user")
	if err != nil {
		slog.Warn("failed to prepare login dummy hash", "error", err)
	}

	return &AuthService{
		repo:           repo,
		passwordHasher: passwordHasher,
		tokenManager:   tokenManager,
		validate:       newValidator(),
		dummyHash:      dummyHash,
	}
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginOutput struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Login exchanges a username and password for a bearer token. An unknown
// username and a wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	user, err := s.repo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_, _ = s.passwordHasher.Verify(input.Password, s.dummyHash)
			metrics.ObserveLogin("failed")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}

	ok, err := s.passwordHasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		metrics.ObserveLogin("failed")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokenManager.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	metrics.ObserveLogin("success")

	return &LoginOutput{
		User:  user,
		Token: token,
	}, nil
}

// Me returns the current profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	return s.repo.FindByID(ctx, userID)
}
