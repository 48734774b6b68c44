package booking

import "errors"

var (
	// ErrNotFound covers absent bookings, bookings outside the actor's
	// ownership scope, and bookings whose status no longer permits the
	// action. The three cases are intentionally indistinguishable so the
	// API never leaks the existence of other academies' bookings.
	ErrNotFound = errors.New("booking not found")

	// ErrConflict means the conditional write matched zero rows: some
	// concurrent call already processed the booking.
	ErrConflict = errors.New("booking already processed")

	ErrValidation = errors.New("validation error")
)
