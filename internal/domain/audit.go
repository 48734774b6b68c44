package domain

import "time"

type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "LOW"
	SeverityMedium AuditSeverity = "MEDIUM"
	SeverityHigh   AuditSeverity = "HIGH"
)

const (
	AuditBookingApproved  = "BOOKING_APPROVED"
	AuditBookingRejected  = "BOOKING_REJECTED"
	AuditBookingCancelled = "BOOKING_CANCELLED"
)

type AuditEvent struct {
	ID         string         `json:"id"`
	ActionType string         `json:"action_type"`
	Severity   AuditSeverity  `json:"severity"`
	Label      string         `json:"label"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	UserID     int64          `json:"user_id"`
	AcademyID  int64          `json:"academy_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
