package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"academybook/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID                 int64      `gorm:"column:id;primaryKey"`
	ExternalID         string     `gorm:"column:external_id;uniqueIndex"`
	AcademyID          int64      `gorm:"column:academy_id;index"`
	BatchID            int64      `gorm:"column:batch_id"`
	UserID             int64      `gorm:"column:user_id;index"`
	Status             string     `gorm:"column:status"`
	PaymentStatus      string     `gorm:"column:payment_status"`
	RejectionReason    *string    `gorm:"column:rejection_reason"`
	CancellationReason *string    `gorm:"column:cancellation_reason"`
	Participants       []byte     `gorm:"column:participants"`
	AmountBreakdown    []byte     `gorm:"column:amount_breakdown"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

type academyModel struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	OwnerUserID int64  `gorm:"column:owner_user_id;index"`
	Name        string `gorm:"column:name"`
}

func (academyModel) TableName() string { return "academies" }

func toDomainBooking(m bookingModel) *domain.Booking {
	b := &domain.Booking{
		ID:                 m.ID,
		ExternalID:         m.ExternalID,
		AcademyID:          m.AcademyID,
		BatchID:            m.BatchID,
		UserID:             m.UserID,
		Status:             domain.NormalizeBookingStatus(domain.BookingStatus(m.Status)),
		PaymentStatus:      domain.PaymentStatus(m.PaymentStatus),
		RejectionReason:    m.RejectionReason,
		CancellationReason: m.CancellationReason,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if len(m.Participants) > 0 {
		_ = json.Unmarshal(m.Participants, &b.Participants)
	}
	if len(m.AmountBreakdown) > 0 {
		_ = json.Unmarshal(m.AmountBreakdown, &b.Amount)
	}
	return b
}

func toBookingModel(b *domain.Booking) bookingModel {
	participants, _ := json.Marshal(b.Participants)
	amount, _ := json.Marshal(b.Amount)
	return bookingModel{
		ID:                 b.ID,
		ExternalID:         b.ExternalID,
		AcademyID:          b.AcademyID,
		BatchID:            b.BatchID,
		UserID:             b.UserID,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		RejectionReason:    b.RejectionReason,
		CancellationReason: b.CancellationReason,
		Participants:       participants,
		AmountBreakdown:    amount,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*b = *toDomainBooking(m)
	return nil
}

// FindOwned scopes the lookup to bookings whose academy belongs to the
// actor. A booking that exists but is owned elsewhere is indistinguishable
// from one that does not exist.
func (r *BookingRepository) FindOwned(ctx context.Context, externalID string, actorID int64) (*domain.Booking, error) {
	var m bookingModel
	tx := r.db.WithContext(ctx).
		Joins("JOIN academies ON academies.id = bookings.academy_id").
		Where("bookings.external_id = ? AND academies.owner_user_id = ?", externalID, actorID).
		First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainBooking(m), nil
}

// UpdateStatusIf is the compare-and-swap write: the patch only lands while
// the row's status is still one of expected. RowsAffected is the caller's
// race signal.
func (r *BookingRepository) UpdateStatusIf(ctx context.Context, externalID string, expected []domain.BookingStatus, patch domain.StatusPatch) (int64, error) {
	updates := map[string]any{
		"status":     string(patch.Status),
		"updated_at": time.Now().UTC(),
	}
	if patch.RejectionReason != nil {
		updates["rejection_reason"] = *patch.RejectionReason
	}
	if patch.CancellationReason != nil {
		updates["cancellation_reason"] = *patch.CancellationReason
	}

	tx := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("external_id = ? AND status IN ?", externalID, expandStatusAliases(expected)).
		Updates(updates)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

// expandStatusAliases widens the expected set with legacy tokens so the CAS
// still matches rows written before the enum cleanup.
func expandStatusAliases(expected []domain.BookingStatus) []string {
	out := make([]string, 0, len(expected)+2)
	for _, s := range expected {
		out = append(out, string(s))
		switch s {
		case domain.BookingSlotBooked:
			out = append(out, "REQUESTED")
		case domain.BookingPaymentPending:
			out = append(out, "PENDING")
		}
	}
	return out
}
