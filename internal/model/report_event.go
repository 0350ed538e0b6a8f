package model

import (
	"time"

	"github.com/google/uuid"
)

// ReportEvent is one entry of a report's status history
type ReportEvent struct {
	ID         uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	ReportID   uint         `json:"report_id" gorm:"not null;index"`
	Action     ReportAction `json:"action" gorm:"type:text;not null"`
	FromStatus ReportStatus `json:"from_status,omitempty" gorm:"type:text"`
	ToStatus   ReportStatus `json:"to_status" gorm:"type:text;not null"`
	ActorID    *uint        `json:"actor_id"`
	RequestID  string       `json:"request_id,omitempty" gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time    `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for ReportEvent
func (ReportEvent) TableName() string {
	return "report_events"
}

// NewReportEvent builds a history entry for a transition that just happened.
func NewReportEvent(report *Report, action ReportAction, from ReportStatus, actorID *uint, requestID string) *ReportEvent {
	return &ReportEvent{
		ID:         uuid.New(),
		ReportID:   report.ID,
		Action:     action,
		FromStatus: from,
		ToStatus:   report.Status,
		ActorID:    actorID,
		RequestID:  requestID,
		CreatedAt:  time.Now().UTC(),
	}
}
