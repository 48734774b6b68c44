package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"academybook/internal/domain"
	"academybook/internal/modules/notification"
)

const maxReasonLen = 500

// Service runs the guarded booking transitions. Every transition follows the
// same shape: ownership-scoped read, eligibility check against the freshly
// read state, compare-and-swap write, then fire-and-forget side effects.
type Service struct {
	bookings BookingRepository
	audit    AuditRecorder
	notifs   NotificationSender
	log      *zap.Logger
}

func NewService(bookings BookingRepository, audit AuditRecorder, notifs NotificationSender, log *zap.Logger) *Service {
	return &Service{
		bookings: bookings,
		audit:    audit,
		notifs:   notifs,
		log:      log,
	}
}

func (s *Service) Approve(ctx context.Context, bookingID string, actorID int64) (*domain.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrValidation
	}

	b, err := s.loadOwned(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if !CanAcceptReject(b.Status) {
		return nil, ErrNotFound
	}

	matched, err := s.bookings.UpdateStatusIf(ctx, bookingID,
		[]domain.BookingStatus{domain.BookingSlotBooked},
		domain.StatusPatch{Status: domain.BookingApproved})
	if err != nil {
		return nil, fmt.Errorf("approve booking %s: %w", bookingID, err)
	}
	if matched == 0 {
		return nil, ErrConflict
	}
	b.Status = domain.BookingApproved

	s.recordAudit(ctx, domain.AuditEvent{
		ActionType: domain.AuditBookingApproved,
		Severity:   domain.SeverityHigh,
		Label:      "Booking approved",
		EntityType: "booking",
		EntityID:   b.ExternalID,
		UserID:     actorID,
		AcademyID:  b.AcademyID,
		Metadata:   map[string]any{"booking_user_id": b.UserID},
	})
	s.notifs.Dispatch(ctx, notification.Notification{
		RecipientUserID: b.UserID,
		Title:           "Booking approved",
		Body:            "Your booking has been approved. Complete the payment to confirm your slot.",
		Priority:        notification.PriorityHigh,
		Data:            map[string]string{"type": "booking_approved", "booking_id": b.ExternalID},
		Channels: []notification.Channel{
			notification.ChannelPush, notification.ChannelEmail, notification.ChannelSMS,
		},
	})

	return b, nil
}

func (s *Service) Reject(ctx context.Context, bookingID string, actorID int64, reason *string) (*domain.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrValidation
	}
	if reason != nil && len(*reason) > maxReasonLen {
		return nil, ErrValidation
	}

	b, err := s.loadOwned(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if !CanAcceptReject(b.Status) {
		return nil, ErrNotFound
	}

	matched, err := s.bookings.UpdateStatusIf(ctx, bookingID,
		[]domain.BookingStatus{domain.BookingSlotBooked},
		domain.StatusPatch{Status: domain.BookingRejected, RejectionReason: reason})
	if err != nil {
		return nil, fmt.Errorf("reject booking %s: %w", bookingID, err)
	}
	if matched == 0 {
		return nil, ErrConflict
	}
	b.Status = domain.BookingRejected
	b.RejectionReason = reason

	s.recordAudit(ctx, domain.AuditEvent{
		ActionType: domain.AuditBookingRejected,
		Severity:   domain.SeverityMedium,
		Label:      "Booking rejected",
		EntityType: "booking",
		EntityID:   b.ExternalID,
		UserID:     actorID,
		AcademyID:  b.AcademyID,
		Metadata:   map[string]any{"reason": derefReason(reason)},
	})

	body := "Your booking request was declined by the academy."
	if reason != nil && *reason != "" {
		body += " Reason: " + *reason
	}
	s.notifs.Dispatch(ctx, notification.Notification{
		RecipientUserID: b.UserID,
		Title:           "Booking rejected",
		Body:            body,
		Priority:        notification.PriorityNormal,
		Data:            map[string]string{"type": "booking_rejected", "booking_id": b.ExternalID},
		Channels: []notification.Channel{
			notification.ChannelPush, notification.ChannelEmail,
		},
	})

	return b, nil
}

func (s *Service) Cancel(ctx context.Context, bookingID string, actorID int64, reason *string) (*domain.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrValidation
	}
	if reason != nil && len(*reason) > maxReasonLen {
		return nil, ErrValidation
	}

	// Eligibility is evaluated against the state read immediately before the
	// conditional write, never a value loaded earlier in the request.
	b, err := s.loadOwned(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if !CanCancel(b.Status, b.PaymentStatus) {
		return nil, ErrNotFound
	}

	matched, err := s.bookings.UpdateStatusIf(ctx, bookingID,
		[]domain.BookingStatus{b.Status},
		domain.StatusPatch{Status: domain.BookingCancelled, CancellationReason: reason})
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}
	if matched == 0 {
		return nil, ErrConflict
	}
	b.Status = domain.BookingCancelled
	b.CancellationReason = reason

	s.recordAudit(ctx, domain.AuditEvent{
		ActionType: domain.AuditBookingCancelled,
		Severity:   domain.SeverityMedium,
		Label:      "Booking cancelled",
		EntityType: "booking",
		EntityID:   b.ExternalID,
		UserID:     actorID,
		AcademyID:  b.AcademyID,
		Metadata:   map[string]any{"reason": derefReason(reason)},
	})

	body := "Your booking has been cancelled."
	if reason != nil && *reason != "" {
		body += " Reason: " + *reason
	}
	s.notifs.Dispatch(ctx, notification.Notification{
		RecipientUserID: b.UserID,
		Title:           "Booking cancelled",
		Body:            body,
		Priority:        notification.PriorityNormal,
		Data:            map[string]string{"type": "booking_cancelled", "booking_id": b.ExternalID},
		Channels: []notification.Channel{
			notification.ChannelPush, notification.ChannelEmail, notification.ChannelSMS,
		},
	})

	return b, nil
}

// StatusViewFor returns the booking together with its derived eligibility
// view.
func (s *Service) StatusViewFor(ctx context.Context, bookingID string, actorID int64) (*domain.Booking, StatusView, error) {
	b, err := s.loadOwned(ctx, bookingID, actorID)
	if err != nil {
		return nil, StatusView{}, err
	}
	return b, Resolve(b.Status, b.PaymentStatus), nil
}

func (s *Service) loadOwned(ctx context.Context, bookingID string, actorID int64) (*domain.Booking, error) {
	b, err := s.bookings.FindOwned(ctx, bookingID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	return b, nil
}

func (s *Service) recordAudit(ctx context.Context, event domain.AuditEvent) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.log.Error("audit record failed",
			zap.String("action", event.ActionType),
			zap.String("entity_id", event.EntityID),
			zap.Int64("actor_id", event.UserID),
			zap.Error(err))
	}
}

func derefReason(r *string) string {
	if r == nil {
		return ""
	}
	return *r
}
