package booking

import (
	"context"

	"academybook/internal/domain"
	"academybook/internal/modules/notification"
)

// BookingRepository is the narrow persistence contract the orchestrator
// needs: an ownership-scoped read and a compare-and-swap status write.
type BookingRepository interface {
	// FindOwned returns the booking with this external id when the actor
	// owns it through the academy relationship. Absent and not-owned are
	// both reported as repository.ErrRecordNotFound-style misses.
	FindOwned(ctx context.Context, externalID string, actorID int64) (*domain.Booking, error)

	// UpdateStatusIf applies the patch only while the booking's current
	// status is one of expected, and reports how many rows matched. A zero
	// match means some concurrent caller got there first.
	UpdateStatusIf(ctx context.Context, externalID string, expected []domain.BookingStatus, patch domain.StatusPatch) (int64, error)
}

// AuditRecorder records a transition for the audit trail. Fire-and-forget
// from the orchestrator's perspective: its errors are logged, never returned
// to the API caller.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// NotificationSender fans a logical notification out across channels. The
// missing error return is the contract: delivery failure of any channel must
// never reach the orchestrator.
type NotificationSender interface {
	Dispatch(ctx context.Context, n notification.Notification)
}
