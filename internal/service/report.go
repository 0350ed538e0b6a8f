// internal/service/report.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/observability/metrics"
	"github.com/dangerclosesec/portal/internal/repository"
	"github.com/go-playground/validator/v10"
)

// Notifier is told about every status change a report goes through after
// submission. Delivery failures are logged and never fail the transition.
type Notifier interface {
	ReportStatusChanged(ctx context.Context, report *model.Report, action model.ReportAction) error
}

// Actor identifies the caller of a report operation.
type Actor struct {
	UserID    uint
	RequestID string
}

type ReportService struct {
	reports  repository.ReportRepositoryIface
	users    repository.UserRepositoryIface
	notifier Notifier
	today    func() model.Date
	validate *validator.Validate

	// notifyTimeout bounds each notification so a slow mail server cannot
	// hold the request open.
	notifyTimeout time.Duration
}

const defaultNotifyTimeout = 5 * time.Second

type ReportServiceOption func(*ReportService)

// WithNotifier enables status-change notifications.
func WithNotifier(n Notifier) ReportServiceOption {
	return func(s *ReportService) {
		s.notifier = n
	}
}

// WithNotifyTimeout sets how long one notification may take.
func WithNotifyTimeout(d time.Duration) ReportServiceOption {
	return func(s *ReportService) {
		s.notifyTimeout = d
	}
}

// WithToday overrides the calendar used for submission dates and the sweep.
func WithToday(today func() model.Date) ReportServiceOption {
	return func(s *ReportService) {
		s.today = today
	}
}

func NewReportService(
	reports repository.ReportRepositoryIface,
	users repository.UserRepositoryIface,
	opts ...ReportServiceOption,
) *ReportService {
	s := &ReportService{
		reports:       reports,
		users:         users,
		notifyTimeout: defaultNotifyTimeout,
		today:         model.Today,
		validate:      newValidator(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type SubmitReportInput struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
	DueDate string `json:"due_date" validate:"required,datetime=2006-01-02"`
}

type ApproveReportInput struct {
	ApprovalType string `json:"approval_type"`
}

type ListReportsInput struct {
	Status string
}

// Submit files a new report for actor's organization.
func (s *ReportService) Submit(ctx context.Context, actor Actor, input SubmitReportInput) (*model.Report, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	due, err := model.ParseDate(input.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date: %v", domain.ErrInvalidInput, err)
	}

	report := &model.Report{
		Title:          input.Title,
		Content:        input.Content,
		SubmittedBy:    actor.UserID,
		DueDate:        due,
		SubmissionDate: s.today(),
	}

	if err := s.reports.Submit(ctx, report, actor.RequestID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", domain.ErrForbidden)
		}
		return nil, err
	}

	metrics.ObserveSubmission()

	return report, nil
}

// List returns the reports actor may see, newest submission first.
func (s *ReportService) List(ctx context.Context, actor Actor, input ListReportsInput) ([]*model.Report, error) {
	status := model.ReportStatus(input.Status)
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, input.Status)
	}

	viewer, err := s.viewerFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	return s.reports.FindVisible(ctx, viewer, repository.ReportFilter{Status: status})
}

// Approve grants the internal or parent approval named by input.
func (s *ReportService) Approve(ctx context.Context, actor Actor, reportID uint, input ApproveReportInput) (*model.Report, error) {
	kind := model.ApprovalKind(input.ApprovalType)
	action, err := kind.Action()
	if err != nil {
		return nil, err
	}

	viewer, err := s.viewerFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	if !viewer.HasRole(kind.AllowedRoles()...) {
		return nil, fmt.Errorf("%w: role %s cannot grant %s approval", domain.ErrForbidden, viewer.Role, kind)
	}

	return s.transition(ctx, actor, viewer, reportID, action)
}

// Reject moves a visible report to rejected. Rejecting a rejected report
// succeeds without changing anything.
func (s *ReportService) Reject(ctx context.Context, actor Actor, reportID uint) (*model.Report, error) {
	viewer, err := s.viewerFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, actor, viewer, reportID, model.ActionReject)
}

func (s *ReportService) Delete(ctx context.Context, reportID uint) error {
	return s.reports.Delete(ctx, reportID)
}

// History lists the recorded transitions of a report visible to actor.
func (s *ReportService) History(ctx context.Context, actor Actor, reportID uint) ([]*model.ReportEvent, error) {
	viewer, err := s.viewerFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	return s.reports.History(ctx, viewer, reportID)
}

// SweepOverdue marks every report still pending internal approval past its
// due date as overdue and returns how many were moved.
func (s *ReportService) SweepOverdue(ctx context.Context) (int, error) {
	changed, err := s.reports.MarkOverdue(ctx, s.today())
	if err != nil {
		metrics.ObserveSweep("error", 0)
		return 0, err
	}

	for _, report := range changed {
		metrics.ObserveTransition(string(model.ActionMarkOverdue), string(report.Status))
		s.notify(ctx, report, model.ActionMarkOverdue)
	}
	metrics.ObserveSweep("success", len(changed))

	return len(changed), nil
}

func (s *ReportService) transition(ctx context.Context, actor Actor, viewer model.Viewer, reportID uint, action model.ReportAction) (*model.Report, error) {
	result, err := s.reports.Transition(ctx, repository.TransitionInput{
		ReportID:  reportID,
		Action:    action,
		Viewer:    viewer,
		RequestID: actor.RequestID,
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		metrics.ObserveTransition(string(action), string(result.Report.Status))
		s.notify(ctx, result.Report, action)
	}

	return result.Report, nil
}

// viewerFor loads the actor's current role and organization so visibility
// follows directory changes made after the token was issued.
func (s *ReportService) viewerFor(ctx context.Context, actor Actor) (model.Viewer, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return model.Viewer{}, fmt.Errorf("%w: account no longer exists", domain.ErrForbidden)
		}
		return model.Viewer{}, fmt.Errorf("loading actor: %w", err)
	}
	return user.Viewer(), nil
}

func (s *ReportService) notify(ctx context.Context, report *model.Report, action model.ReportAction) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	if err := s.notifier.ReportStatusChanged(ctx, report, action); err != nil {
		slog.WarnContext(ctx, "Report notification failed", "error", err, "reportID", report.ID, "action", action)
	}
}
