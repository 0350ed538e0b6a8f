package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
)

// History returns the events of a report visible to viewer, oldest first.
func (r *ReportRepository) History(ctx context.Context, viewer model.Viewer, id uint) ([]*model.ReportEvent, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Report{}).
		Scopes(visibleTo(viewer)).
		Where("reports.id = ?", id).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check report visibility: %w", err)
	}
	if count == 0 {
		return nil, domain.ErrReportNotFound
	}

	var events []*model.ReportEvent
	result := r.db.WithContext(ctx).
		Where("report_id = ?", id).
		Order("created_at ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query report events: %w", result.Error)
	}

	return events, nil
}
