package booking

import "academybook/internal/domain"

type ReasonRequest struct {
	Reason *string `json:"reason"`
}

type BookingResponse struct {
	Booking *domain.Booking `json:"booking"`
	View    StatusView      `json:"view"`
}
