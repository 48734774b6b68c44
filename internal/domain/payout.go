package domain

import "time"

// PayoutAccount is the payment-provider sub-account an academy receives
// payouts through. StakeholderID is filled in asynchronously by the
// stakeholder-create job once the provider accepts the KYC data.
type PayoutAccount struct {
	ID            int64     `json:"-"`
	AccountID     string    `json:"account_id"`
	AcademyID     int64     `json:"academy_id"`
	StakeholderID string    `json:"stakeholder_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type StakeholderKYC struct {
	PAN     string `json:"pan"`
	Aadhaar string `json:"aadhaar,omitempty"`
}

type StakeholderData struct {
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Relationship string         `json:"relationship"`
	KYC          StakeholderKYC `json:"kyc"`
	Address      string         `json:"address,omitempty"`
}
