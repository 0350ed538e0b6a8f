// internal/model/report.go
package model

import (
	"fmt"
	"time"

	"github.com/dangerclosesec/portal/internal/domain"
)

type ReportStatus string

const (
	StatusPendingInternal    ReportStatus = "pending_internal"
	StatusInternallyApproved ReportStatus = "internally_approved"
	StatusApproved           ReportStatus = "approved"
	StatusRejected           ReportStatus = "rejected"
	StatusOverdue            ReportStatus = "overdue"
)

// ReportStatuses lists every value accepted by the reports.status check constraint.
var ReportStatuses = []ReportStatus{
	StatusPendingInternal,
	StatusInternallyApproved,
	StatusApproved,
	StatusRejected,
	StatusOverdue,
}

func (s ReportStatus) Valid() bool {
	for _, known := range ReportStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type ReportAction string

const (
	ActionSubmit          ReportAction = "submit"
	ActionApproveInternal ReportAction = "approve_internal"
	ActionApproveParent   ReportAction = "approve_parent"
	ActionReject          ReportAction = "reject"
	ActionMarkOverdue     ReportAction = "mark_overdue"
)

type transitionKey struct {
	from   ReportStatus
	action ReportAction
}

var transitions = map[transitionKey]ReportStatus{
	{StatusPendingInternal, ActionApproveInternal}:  StatusInternallyApproved,
	{StatusOverdue, ActionApproveInternal}:          StatusInternallyApproved,
	{StatusInternallyApproved, ActionApproveParent}: StatusApproved,
	{StatusPendingInternal, ActionReject}:           StatusRejected,
	{StatusInternallyApproved, ActionReject}:        StatusRejected,
	{StatusOverdue, ActionReject}:                   StatusRejected,
	{StatusRejected, ActionReject}:                  StatusRejected,
	{StatusPendingInternal, ActionMarkOverdue}:      StatusOverdue,
}

// NextStatus looks up the status reached by applying action to a report in
// status from. Pairs missing from the table yield domain.ErrInvalidTransition.
func NextStatus(from ReportStatus, action ReportAction) (ReportStatus, error) {
	next, ok := transitions[transitionKey{from, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a report in status %s", domain.ErrInvalidTransition, action, from)
	}
	return next, nil
}

// ApprovalKind is the approval_type accepted by the approve endpoint.
type ApprovalKind string

const (
	ApprovalInternal ApprovalKind = "internal"
	ApprovalParent   ApprovalKind = "parent"
)

// Action maps an approval kind onto its lifecycle action.
func (k ApprovalKind) Action() (ReportAction, error) {
	switch k {
	case ApprovalInternal:
		return ActionApproveInternal, nil
	case ApprovalParent:
		return ActionApproveParent, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidApprovalType, string(k))
	}
}

// AllowedRoles returns the roles permitted to grant this kind of approval.
func (k ApprovalKind) AllowedRoles() []Role {
	switch k {
	case ApprovalInternal:
		return []Role{RoleAdmin, RoleInternalApprover}
	case ApprovalParent:
		return []Role{RoleAdmin, RoleLGAApprover}
	default:
		return nil
	}
}

type Report struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	Title              string       `gorm:"type:text;not null" json:"title"`
	Content            string       `gorm:"type:text;not null;default:''" json:"content"`
	OrganizationID     uint         `gorm:"column:organization_id;not null" json:"organization_id"`
	SubmittedBy        uint         `gorm:"column:submitted_by;not null" json:"submitted_by"`
	Status             ReportStatus `gorm:"type:text;not null;default:'pending_internal'" json:"status"`
	DueDate            Date         `gorm:"column:due_date;type:date;not null" json:"due_date"`
	SubmissionDate     Date         `gorm:"column:submission_date;type:date;not null" json:"submission_date"`
	InternalApproverID *uint        `gorm:"column:internal_approver_id" json:"internal_approver_id"`
	LGAApproverID      *uint        `gorm:"column:lga_approver_id" json:"lga_approver_id"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
	Submitter    *User         `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

// Apply moves the report through action on behalf of actorID and returns
// the status it held before. Approver fields are set only by their own
// approval action.
func (r *Report) Apply(action ReportAction, actorID *uint) (ReportStatus, error) {
	next, err := NextStatus(r.Status, action)
	if err != nil {
		return "", err
	}

	prev := r.Status
	r.Status = next

	switch action {
	case ActionApproveInternal:
		r.InternalApproverID = actorID
	case ActionApproveParent:
		r.LGAApproverID = actorID
	}

	return prev, nil
}

// Viewer is the caller identity that report visibility is computed for.
type Viewer struct {
	UserID         uint
	Role           Role
	OrganizationID *uint
}

// HasRole reports whether the viewer holds any of roles.
func (v Viewer) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if v.Role == role {
			return true
		}
	}
	return false
}
