package domain

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Well-known job types. Handlers register against these; the queue itself
// treats the type as opaque.
const (
	JobNotificationEmail    = "notification-email"
	JobNotificationSMS      = "notification-sms"
	JobNotificationWhatsApp = "notification-whatsapp"
	JobStakeholderCreate    = "stakeholder-create"
	JobPayoutTransfer       = "payout-transfer"
	JobMediaProcess         = "media-process"
)

type Job struct {
	ID       string
	Type     string
	Payload  []byte
	Status   JobStatus
	Attempts int
	// MaxAttempts is fixed at enqueue time from the handler's retry policy
	// (or an explicit override) so a later policy change never reinterprets
	// jobs already in flight.
	MaxAttempts int
	// IdempotencyKey is kept for diagnosis after the job leaves the active
	// set; ActiveKey mirrors it only while the job is queued or processing
	// and carries the at-most-one-active uniqueness constraint.
	IdempotencyKey string
	ActiveKey      *string
	RunAt          time.Time
	LeaseExpiresAt *time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the job still occupies its idempotency key.
func (j *Job) Active() bool {
	return j.Status == JobQueued || j.Status == JobProcessing
}
