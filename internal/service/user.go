// internal/service/user.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dangerclosesec/portal/internal/auth"
	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/repository"
	"github.com/go-playground/validator/v10"
)

type UserService struct {
	repo           repository.UserRepositoryIface
	passwordHasher *auth.PasswordHasher
	validate       *validator.Validate
}

func NewUserService(repo repository.UserRepositoryIface, passwordHasher *auth.PasswordHasher) *UserService {
	return &UserService{
		repo:           repo,
		passwordHasher: passwordHasher,
		validate:       newValidator(),
	}
}

type CreateUserInput struct {
	Name           string     `json:"name" validate:"required"`
	Email          string     `json:"email" validate:"required,email"`
	Username       string     `json:"username" validate:"required"`
	Password       string     `json:"password" validate:"required,min=6"`
	Role           model.Role `json:"role" validate:"required,oneof=admin submitter internal_approver lga_approver"`
	OrganizationID *uint      `json:"organization_id"`
}

type UpdateUserInput struct {
	Name           string     `json:"name" validate:"required"`
	Email          string     `json:"email" validate:"required,email"`
	Username       string     `json:"username" validate:"required"`
	Role           model.Role `json:"role" validate:"required,oneof=admin submitter internal_approver lga_approver"`
	OrganizationID *uint      `json:"organization_id"`
}

type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.repo.FindAll(ctx)
}

// Create checks the username is free, hashes the password and stores the
// user. A taken username fails before anything is written.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.repo.FindByUsername(ctx, input.Username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrUsernameTaken
	}

	hash, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Name:           input.Name,
		Email:          input.Email,
		Username:       input.Username,
		PasswordHash:   hash,
		Role:           input.Role,
		OrganizationID: input.OrganizationID,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Update rewrites the profile of user id. Credentials are never touched here.
func (s *UserService) Update(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = input.Name
	user.Email = input.Email
	user.Username = input.Username
	user.Role = input.Role
	user.OrganizationID = input.OrganizationID

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) ResetPassword(ctx context.Context, id uint, input ResetPasswordInput) error {
	if err := s.validate.Struct(input); err != nil {
		return validationError(err)
	}

	hash, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.repo.UpdatePasswordHash(ctx, id, hash)
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
