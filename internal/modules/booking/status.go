package booking

import "academybook/internal/domain"

// StatusView is the authoritative status/eligibility view derived from the
// two independent status axes. Every field is derivable on its own; Resolve
// just bundles them.
type StatusView struct {
	Message            string `json:"message"`
	CanAcceptReject    bool   `json:"can_accept_reject"`
	CanCancel          bool   `json:"can_cancel"`
	PaymentLinkEnabled bool   `json:"payment_link_enabled"`
	HideStatus         bool   `json:"hide_status"`
}

func Resolve(status domain.BookingStatus, payment domain.PaymentStatus) StatusView {
	status = domain.NormalizeBookingStatus(status)
	return StatusView{
		Message:            HumanMessage(status, payment),
		CanAcceptReject:    CanAcceptReject(status),
		CanCancel:          CanCancel(status, payment),
		PaymentLinkEnabled: PaymentLinkEnabled(status, payment),
		HideStatus:         HideStatusForCancelled(status, payment),
	}
}

// HumanMessage picks the user-facing status line. Terminal statuses win
// regardless of payment state; unmodeled combinations fall back to the raw
// status token rather than erroring.
func HumanMessage(status domain.BookingStatus, payment domain.PaymentStatus) string {
	switch domain.NormalizeBookingStatus(status) {
	case domain.BookingCancelled:
		return "Booking cancelled"
	case domain.BookingCompleted:
		return "Booking completed"
	case domain.BookingRejected:
		return "Booking rejected by the academy"
	case domain.BookingConfirmed:
		if payment == domain.PaymentSuccess {
			return "Booking confirmed"
		}
	case domain.BookingApproved:
		return paymentPhaseMessage(payment)
	case domain.BookingSlotBooked:
		return "Awaiting academy confirmation"
	case domain.BookingPaymentPending:
		return paymentPhaseMessage(payment)
	}
	return string(domain.NormalizeBookingStatus(status))
}

func paymentPhaseMessage(payment domain.PaymentStatus) string {
	switch payment {
	case domain.PaymentNotInitiated:
		return "Approved, awaiting payment"
	case domain.PaymentInitiated:
		return "Approved, awaiting payment completion"
	case domain.PaymentPending, domain.PaymentProcessing:
		return "Payment processing"
	case domain.PaymentFailed:
		return "Payment failed, please retry"
	case domain.PaymentSuccess:
		return "Booking confirmed"
	default:
		return "Payment processing"
	}
}

// CanAcceptReject reports whether the academy may still approve or reject.
func CanAcceptReject(status domain.BookingStatus) bool {
	return domain.NormalizeBookingStatus(status) == domain.BookingSlotBooked
}

// CanCancel is false for every terminal status and for any booking whose
// payment already succeeded, whatever the booking status says.
func CanCancel(status domain.BookingStatus, payment domain.PaymentStatus) bool {
	switch domain.NormalizeBookingStatus(status) {
	case domain.BookingCancelled, domain.BookingRejected,
		domain.BookingCompleted, domain.BookingConfirmed:
		return false
	}
	return payment != domain.PaymentSuccess
}

func PaymentLinkEnabled(status domain.BookingStatus, payment domain.PaymentStatus) bool {
	switch domain.NormalizeBookingStatus(status) {
	case domain.BookingApproved:
		switch payment {
		case domain.PaymentNotInitiated, domain.PaymentInitiated,
			domain.PaymentCancelled, domain.PaymentFailed:
			return true
		}
	case domain.BookingPaymentPending:
		switch payment {
		case domain.PaymentInitiated, domain.PaymentPending,
			domain.PaymentCancelled, domain.PaymentFailed:
			return true
		}
	case domain.BookingConfirmed:
		return payment != domain.PaymentSuccess
	}
	return false
}

// HideStatusForCancelled hides noisy intermediate payment state on a
// cancelled booking but always reveals a definitive payment outcome.
func HideStatusForCancelled(status domain.BookingStatus, payment domain.PaymentStatus) bool {
	if domain.NormalizeBookingStatus(status) != domain.BookingCancelled {
		return false
	}
	switch payment {
	case domain.PaymentSuccess, domain.PaymentFailed,
		domain.PaymentRefunded, domain.PaymentCancelled:
		return false
	}
	return true
}
