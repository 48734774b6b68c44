package domain

import "time"

type BookingStatus string

const (
	BookingSlotBooked     BookingStatus = "SLOT_BOOKED"
	BookingApproved       BookingStatus = "APPROVED"
	BookingPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingRejected       BookingStatus = "REJECTED"
	BookingCancelled      BookingStatus = "CANCELLED"
	BookingCompleted      BookingStatus = "COMPLETED"
)

// Legacy tokens still present in old rows and old client payloads.
const (
	legacyRequested BookingStatus = "REQUESTED"
	legacyPending   BookingStatus = "PENDING"
)

type PaymentStatus string

const (
	PaymentNotInitiated PaymentStatus = "NOT_INITIATED"
	PaymentInitiated    PaymentStatus = "INITIATED"
	PaymentPending      PaymentStatus = "PENDING"
	PaymentProcessing   PaymentStatus = "PROCESSING"
	PaymentSuccess      PaymentStatus = "SUCCESS"
	PaymentFailed       PaymentStatus = "FAILED"
	PaymentCancelled    PaymentStatus = "CANCELLED"
	PaymentRefunded     PaymentStatus = "REFUNDED"
)

// NormalizeBookingStatus maps legacy status tokens onto their canonical
// equivalents. Every boundary (repository reads, handler input) must pass
// through here; nothing deeper branches on a legacy token.
func NormalizeBookingStatus(s BookingStatus) BookingStatus {
	switch s {
	case legacyRequested:
		return BookingSlotBooked
	case legacyPending:
		return BookingPaymentPending
	default:
		return s
	}
}

type Participant struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
}

// Contact carries a user's delivery addresses for the queued notification
// channels. Empty fields mean the user never registered that channel.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// AmountBreakdown is carried through transitions unchanged; the state
// machine never recomputes it.
type AmountBreakdown struct {
	Total         float64 `json:"total"`
	AcademyAmount float64 `json:"academy_amount"`
	PlatformFee   float64 `json:"platform_fee"`
	Tax           float64 `json:"tax"`
	Currency      string  `json:"currency"`
}

// StatusPatch is the full set of fields a status transition may touch. It
// rides alongside Booking so storage can apply it without knowing which
// module asked for the transition.
type StatusPatch struct {
	Status             BookingStatus
	RejectionReason    *string
	CancellationReason *string
}

type Booking struct {
	ID                 int64           `json:"-"`
	ExternalID         string          `json:"id"`
	AcademyID          int64           `json:"academy_id"`
	BatchID            int64           `json:"batch_id"`
	UserID             int64           `json:"user_id"`
	Status             BookingStatus   `json:"status"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	RejectionReason    *string         `json:"rejection_reason,omitempty"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	Participants       []Participant   `json:"participants"`
	Amount             AmountBreakdown `json:"amount_breakdown"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
