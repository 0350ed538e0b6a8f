// internal/repository/report.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepositoryIface interface {
	Submit(ctx context.Context, report *model.Report, requestID string) error
	FindVisible(ctx context.Context, viewer model.Viewer, filter ReportFilter) ([]*model.Report, error)
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	Delete(ctx context.Context, id uint) error
	MarkOverdue(ctx context.Context, today model.Date) ([]*model.Report, error)
	History(ctx context.Context, viewer model.Viewer, id uint) ([]*model.ReportEvent, error)
}

// ReportFilter narrows a report listing beyond the viewer's visibility.
type ReportFilter struct {
	Status model.ReportStatus
}

// TransitionInput describes one lifecycle action requested by a viewer.
type TransitionInput struct {
	ReportID  uint
	Action    model.ReportAction
	Viewer    model.Viewer
	RequestID string
}

type TransitionResult struct {
	Report *model.Report
	From   model.ReportStatus
	// Changed is false when the action left the status as it was, as a
	// repeated reject does.
	Changed bool
}

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// visibleTo restricts a reports query to the rows viewer may read.
func visibleTo(viewer model.Viewer) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		switch viewer.Role {
		case model.RoleAdmin:
			return tx
		case model.RoleSubmitter:
			return tx.Where("reports.submitted_by = ?", viewer.UserID)
		case model.RoleInternalApprover:
			if viewer.OrganizationID == nil {
				return tx.Where("1 = 0")
			}
			return tx.Where("reports.organization_id = ?", *viewer.OrganizationID)
		case model.RoleLGAApprover:
			if viewer.OrganizationID == nil {
				return tx.Where("1 = 0")
			}
			children := tx.Session(&gorm.Session{NewDB: true}).
				Model(&model.Organization{}).
				Select("id").
				Where("parent_id = ?", *viewer.OrganizationID)
			return tx.Where("reports.organization_id IN (?)", children)
		default:
			return tx.Where("1 = 0")
		}
	}
}

// submitterForShare reads the submitter's organization under FOR SHARE.
func submitterForShare(tx *gorm.DB, userID uint) *gorm.DB {
	return tx.Model(&model.User{}).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id", "organization_id").
		Where("id = ?", userID)
}

// visibleForUpdate locks report id, provided viewer may see it.
func visibleForUpdate(tx *gorm.DB, viewer model.Viewer, id uint) *gorm.DB {
	return tx.Model(&model.Report{}).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "reports"}}).
		Scopes(visibleTo(viewer)).
		Where("reports.id = ?", id)
}

// overdueCandidates selects pending reports due before today, skipping rows
// another transaction holds.
func overdueCandidates(tx *gorm.DB, today model.Date) *gorm.DB {
	return tx.Model(&model.Report{}).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND due_date < ?", model.StatusPendingInternal, today).
		Order("id ASC")
}

// applyAction runs action against report and reports whether the status
// moved. A repeated reject is accepted without a change.
func applyAction(report *model.Report, action model.ReportAction, actorID *uint) (model.ReportStatus, bool, error) {
	from, err := report.Apply(action, actorID)
	if err != nil {
		return "", false, err
	}
	return from, from != report.Status, nil
}

// Submit inserts report on behalf of report.SubmittedBy. The submitter's
// organization is read under a share lock in the same transaction as the
// insert so a concurrent affiliation change cannot split the two.
func (r *ReportRepository) Submit(ctx context.Context, report *model.Report, requestID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submitter model.User
		if err := submitterForShare(tx, report.SubmittedBy).First(&submitter).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("reading submitter: %w", err)
		}

		if submitter.OrganizationID == nil {
			return domain.ErrNoOrganization
		}

		report.OrganizationID = *submitter.OrganizationID
		report.Status = model.StatusPendingInternal
		if report.SubmissionDate.IsZero() {
			report.SubmissionDate = model.Today()
		}

		if err := tx.Omit(clause.Associations).Create(report).Error; err != nil {
			return fmt.Errorf("creating report: %w", err)
		}

		event := model.NewReportEvent(report, model.ActionSubmit, "", &report.SubmittedBy, requestID)
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("recording submit event: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoOrganization) || errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// FindVisible lists the reports viewer may read, newest submission first.
func (r *ReportRepository) FindVisible(ctx context.Context, viewer model.Viewer, filter ReportFilter) ([]*model.Report, error) {
	var reports []*model.Report

	query := r.db.WithContext(ctx).
		Model(&model.Report{}).
		Scopes(visibleTo(viewer)).
		Preload("Organization").
		Preload("Submitter")

	if filter.Status != "" {
		query = query.Where("reports.status = ?", filter.Status)
	}

	result := query.
		Order("reports.submission_date DESC").
		Order("reports.id DESC").
		Find(&reports)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find reports: %w", result.Error)
	}

	return reports, nil
}

// Transition applies input.Action to a report visible to input.Viewer. The
// row is locked for the duration of the transaction, the transition table
// decides the next status and the change is recorded in report_events.
func (r *ReportRepository) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	res := &TransitionResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report model.Report
		if err := visibleForUpdate(tx, input.Viewer, input.ReportID).First(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrReportNotFound
			}
			return fmt.Errorf("locking report: %w", err)
		}

		actorID := input.Viewer.UserID
		from, changed, err := applyAction(&report, input.Action, &actorID)
		if err != nil {
			return err
		}
		res.From = from
		res.Changed = changed

		if !changed {
			return nil
		}

		if err := tx.Model(&report).
			Select("status", "internal_approver_id", "lga_approver_id", "updated_at").
			Updates(&report).Error; err != nil {
			return fmt.Errorf("updating report status: %w", err)
		}

		event := model.NewReportEvent(&report, input.Action, from, &actorID, input.RequestID)
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("recording %s event: %w", input.Action, err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) || errors.Is(err, domain.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("transaction failed: %w", err)
	}

	report, err := r.findWithRelations(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}
	res.Report = report

	return res, nil
}

func (r *ReportRepository) findWithRelations(ctx context.Context, id uint) (*model.Report, error) {
	var report model.Report
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Preload("Submitter").
		First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("finding report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Report{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// MarkOverdue moves every report still awaiting internal approval whose due
// date lies before today to overdue and returns the reports it changed.
// Rows locked by an in-flight transition are left for the next sweep.
func (r *ReportRepository) MarkOverdue(ctx context.Context, today model.Date) ([]*model.Report, error) {
	var ids []uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []*model.Report
		if err := overdueCandidates(tx, today).Find(&candidates).Error; err != nil {
			return fmt.Errorf("selecting overdue reports: %w", err)
		}

		for _, report := range candidates {
			from, err := report.Apply(model.ActionMarkOverdue, nil)
			if err != nil {
				return err
			}

			if err := tx.Model(report).Select("status", "updated_at").Updates(report).Error; err != nil {
				return fmt.Errorf("marking report %d overdue: %w", report.ID, err)
			}

			event := model.NewReportEvent(report, model.ActionMarkOverdue, from, nil, "")
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("recording overdue event: %w", err)
			}

			ids = append(ids, report.ID)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transaction failed: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	var reports []*model.Report
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Preload("Submitter").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("reloading overdue reports: %w", err)
	}

	return reports, nil
}
