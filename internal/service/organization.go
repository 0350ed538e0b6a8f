// internal/service/organization.go
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/repository"
	"github.com/go-playground/validator/v10"
)

type OrganizationService struct {
	repo     repository.OrganizationRepositoryIface
	validate *validator.Validate
}

func NewOrganizationService(repo repository.OrganizationRepositoryIface) *OrganizationService {
	return &OrganizationService{
		repo:     repo,
		validate: newValidator(),
	}
}

type OrganizationInput struct {
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type"`
	ParentID *uint  `json:"parent_id"`
}

func (s *OrganizationService) List(ctx context.Context) ([]*model.Organization, error) {
	return s.repo.FindAll(ctx)
}

func (s *OrganizationService) Get(ctx context.Context, id uint) (*model.Organization, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *OrganizationService) Create(ctx context.Context, input OrganizationInput) (*model.Organization, error) {
	input.normalize()
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	org := &model.Organization{
		Name:     input.Name,
		Type:     input.Type,
		ParentID: input.ParentID,
	}

	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}

	return org, nil
}

func (s *OrganizationService) Update(ctx context.Context, id uint, input OrganizationInput) (*model.Organization, error) {
	input.normalize()
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	if input.ParentID != nil {
		if err := s.checkAncestry(ctx, id, *input.ParentID); err != nil {
			return nil, err
		}
	}

	org := &model.Organization{
		ID:       id,
		Name:     input.Name,
		Type:     input.Type,
		ParentID: input.ParentID,
	}

	if err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, id)
}

// maxOrganizationDepth bounds the ancestor walk in checkAncestry.
const maxOrganizationDepth = 32

// checkAncestry rejects parentID when id is parentID itself or one of its
// ancestors. An unknown parent is left for the foreign key to report.
func (s *OrganizationService) checkAncestry(ctx context.Context, id, parentID uint) error {
	cur := parentID
	for depth := 0; depth < maxOrganizationDepth; depth++ {
		if cur == id {
			return domain.ErrSelfParent
		}

		org, err := s.repo.FindByID(ctx, cur)
		if errors.Is(err, domain.ErrOrganizationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if org.ParentID == nil {
			return nil
		}
		cur = *org.ParentID
	}
	return nil
}

func (s *OrganizationService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (in *OrganizationInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
}
