package service_test

import (
	"context"
	"testing"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/mocks"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOrganizationCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the parent link", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		orgRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, o *model.Organization) error {
				o.ID = 7
				return nil
			})

		svc := service.NewOrganizationService(orgRepo)
		org, err := svc.Create(ctx, service.OrganizationInput{Name: " Epe Primary Health ", Type: "Department", ParentID: uintPtr(2)})
		require.NoError(t, err)
		assert.Equal(t, uint(7), org.ID)
		assert.Equal(t, "Epe Primary Health", org.Name)
		assert.Equal(t, uint(2), *org.ParentID)
	})

	t.Run("missing parent surfaces as invalid reference", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		orgRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(domain.ErrInvalidReference)

		svc := service.NewOrganizationService(orgRepo)
		_, err := svc.Create(ctx, service.OrganizationInput{Name: "Ghost Dept", Type: "Department", ParentID: uintPtr(999)})
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})

	t.Run("type may be blank", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		orgRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		svc := service.NewOrganizationService(orgRepo)
		org, err := svc.Create(ctx, service.OrganizationInput{Name: "Lagos State"})
		require.NoError(t, err)
		assert.Empty(t, org.Type)
	})

	t.Run("name is required", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)

		svc := service.NewOrganizationService(orgRepo)
		_, err := svc.Create(ctx, service.OrganizationInput{Name: "  ", Type: "LGA"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestOrganizationUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot parent itself", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)

		svc := service.NewOrganizationService(orgRepo)
		_, err := svc.Update(ctx, 3, service.OrganizationInput{Name: "Health", Type: "Department", ParentID: uintPtr(3)})
		assert.ErrorIs(t, err, domain.ErrSelfParent)
	})

	t.Run("cannot parent its own grandparent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		// 1 <- 2 <- 3: making 3 the parent of 1 would close a loop.
		orgRepo.EXPECT().FindByID(gomock.Any(), uint(3)).Return(&model.Organization{ID: 3, ParentID: uintPtr(2)}, nil)
		orgRepo.EXPECT().FindByID(gomock.Any(), uint(2)).Return(&model.Organization{ID: 2, ParentID: uintPtr(1)}, nil)

		svc := service.NewOrganizationService(orgRepo)
		_, err := svc.Update(ctx, 1, service.OrganizationInput{Name: "Ikeja LGA", Type: "LGA", ParentID: uintPtr(3)})
		assert.ErrorIs(t, err, domain.ErrSelfParent)
	})

	t.Run("moves under an unrelated branch", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		gomock.InOrder(
			orgRepo.EXPECT().FindByID(gomock.Any(), uint(5)).Return(&model.Organization{ID: 5}, nil),
			orgRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
			orgRepo.EXPECT().FindByID(gomock.Any(), uint(3)).Return(&model.Organization{ID: 3, ParentID: uintPtr(5)}, nil),
		)

		svc := service.NewOrganizationService(orgRepo)
		org, err := svc.Update(ctx, 3, service.OrganizationInput{Name: "Health", Type: "Department", ParentID: uintPtr(5)})
		require.NoError(t, err)
		assert.Equal(t, uint(5), *org.ParentID)
	})

	t.Run("missing organization", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		orgRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(domain.ErrOrganizationNotFound)

		svc := service.NewOrganizationService(orgRepo)
		_, err := svc.Update(ctx, 42, service.OrganizationInput{Name: "Nowhere", Type: "LGA"})
		assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
	})

	t.Run("returns the stored row", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		gomock.InOrder(
			orgRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
			orgRepo.EXPECT().FindByID(gomock.Any(), uint(3)).Return(&model.Organization{ID: 3, Name: "Health", Type: "Department"}, nil),
		)

		svc := service.NewOrganizationService(orgRepo)
		org, err := svc.Update(ctx, 3, service.OrganizationInput{Name: "Health", Type: "Department"})
		require.NoError(t, err)
		assert.Equal(t, "Health", org.Name)
	})
}
