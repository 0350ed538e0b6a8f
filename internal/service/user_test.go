package service_test

import (
	"context"
	"testing"

	"github.com/dangerclosesec/portal/internal/auth"
	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/mocks"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func uintPtr(v uint) *uint { return &v }

func TestUserCreate(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewPasswordHasher()

	input := service.CreateUserInput{
		Name:           "John Doe",
		Email:          "john@example.gov",
		Username:       "john",
		Password:       "password123",
		Role:           model.RoleSubmitter,
		OrganizationID: uintPtr(3),
	}

	t.Run("hashes the password before storing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		userRepo := mocks.NewMockUserRepositoryIface(ctrl)

		gomock.InOrder(
			userRepo.EXPECT().
				FindByUsername(gomock.Any(), "john").
				Return(nil, domain.ErrUserNotFound),
			userRepo.EXPECT().
				Create(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, u *model.User) error {
					u.ID = 12
					return nil
				}),
		)

		svc := service.NewUserService(userRepo, hasher)
		user, err := svc.Create(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, uint(12), user.ID)
		assert.NotEqual(t, input.Password, user.PasswordHash)
		ok, err := hasher.Verify(input.Password, user.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("duplicate username creates nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		userRepo := mocks.NewMockUserRepositoryIface(ctrl)

		userRepo.EXPECT().
			FindByUsername(gomock.Any(), "john").
			Return(&model.User{ID: 12, Username: "john"}, nil)
		userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

		svc := service.NewUserService(userRepo, hasher)
		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	})

	t.Run("rejects unknown roles and short passwords", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		svc := service.NewUserService(userRepo, hasher)

		bad := input
		bad.Role = model.Role("superuser")
		_, err := svc.Create(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		bad = input
		bad.Password = "123"
		_, err = svc.Create(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "password must be at least 6 characters")
	})
}

func TestUserUpdateLeavesCredentialAlone(t *testing.T) {
	ctrl := gomock.NewController(t)
	userRepo := mocks.NewMockUserRepositoryIface(ctrl)

	stored := &model.User{
		ID:           5,
		Name:         "Sarah",
		Email:        "sarah@example.gov",
		Username:     "sarah",
		PasswordHash: "$argon2id$stored",
		Role:         model.RoleInternalApprover,
	}

	userRepo.EXPECT().FindByID(gomock.Any(), uint(5)).Return(stored, nil)
	userRepo.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *model.User) error {
			assert.Equal(t, "$argon2id$stored", u.PasswordHash)
			assert.Equal(t, model.RoleLGAApprover, u.Role)
			return nil
		})
	userRepo.EXPECT().UpdatePasswordHash(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	svc := service.NewUserService(userRepo, auth.NewPasswordHasher())
	user, err := svc.Update(context.Background(), 5, service.UpdateUserInput{
		Name:           "Sarah Johnson",
		Email:          "sarah@example.gov",
		Username:       "sarah",
		Role:           model.RoleLGAApprover,
		OrganizationID: uintPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Sarah Johnson", user.Name)
}

func TestUserUpdateMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	userRepo := mocks.NewMockUserRepositoryIface(ctrl)
	userRepo.EXPECT().FindByID(gomock.Any(), uint(99)).Return(nil, domain.ErrUserNotFound)

	svc := service.NewUserService(userRepo, auth.NewPasswordHasher())
	_, err := svc.Update(context.Background(), 99, service.UpdateUserInput{
		Name:     "Ghost",
		Email:    "ghost@example.gov",
		Username: "ghost",
		Role:     model.RoleSubmitter,
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserResetPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	userRepo := mocks.NewMockUserRepositoryIface(ctrl)
	hasher := auth.NewPasswordHasher()

	var stored string
	userRepo.EXPECT().
		UpdatePasswordHash(gomock.Any(), uint(12), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint, hash string) error {
			stored = hash
			return nil
		})
	userRepo.EXPECT().
		UpdatePasswordHash(gomock.Any(), uint(99), gomock.Any()).
		Return(domain.ErrUserNotFound)

	svc := service.NewUserService(userRepo, hasher)

	require.NoError(t, svc.ResetPassword(context.Background(), 12, service.ResetPasswordInput{Password: "newpass1"}))
	ok, err := hasher.Verify("newpass1", stored)
	require.NoError(t, err)
	assert.True(t, ok)

	err = svc.ResetPassword(context.Background(), 99, service.ResetPasswordInput{Password: "newpass1"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
