// internal/repository/organization.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
	"gorm.io/gorm"
)

type OrganizationRepositoryIface interface {
	FindAll(ctx context.Context) ([]*model.Organization, error)
	FindByID(ctx context.Context, id uint) (*model.Organization, error)
	Create(ctx context.Context, org *model.Organization) error
	Update(ctx context.Context, org *model.Organization) error
	Delete(ctx context.Context, id uint) error
}

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// FindAll returns all organizations ordered by name
func (r *OrganizationRepository) FindAll(ctx context.Context) ([]*model.Organization, error) {
	var orgs []*model.Organization
	result := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&orgs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find all organizations: %w", result.Error)
	}
	return orgs, nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("finding organization: %w", err)
	}
	return &org, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		return translateOrganizationError("creating organization", err)
	}
	return nil
}

// Update rewrites name, type and parent of an existing organization.
func (r *OrganizationRepository) Update(ctx context.Context, org *model.Organization) error {
	result := r.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("id = ?", org.ID).
		Select("name", "type", "parent_id", "updated_at").
		Updates(org)
	if result.Error != nil {
		return translateOrganizationError("updating organization", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// Delete removes the organization. The schema cascades to its reports and
// clears the organization from users and child organizations.
func (r *OrganizationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Organization{}, "id = ?", id)
	if result.Error != nil {
		return translateOrganizationError("deleting organization", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

func translateOrganizationError(op string, err error) error {
	switch {
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: parent organization", op, domain.ErrInvalidReference)
	case isCheckViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrSelfParent)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
