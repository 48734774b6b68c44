package payout

import (
	"context"

	"academybook/internal/domain"
	"academybook/internal/queue"
)

// StakeholderJobPayload asks the worker to create a natural-person
// stakeholder on the payment provider's sub-account and persist its id.
type StakeholderJobPayload struct {
	AccountID       string                 `json:"accountId"`
	StakeholderData domain.StakeholderData `json:"stakeholderData"`
	PayoutAccountID string                 `json:"payoutAccountId"`
	AutoCreated     bool                   `json:"autoCreated"`
}

// TransferJobPayload asks the worker to move a payout to the academy's
// sub-account.
type TransferJobPayload struct {
	PayoutID  string  `json:"payoutId"`
	AccountID string  `json:"accountId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Notes     string  `json:"notes,omitempty"`
}

// PaymentProvider is the opaque external payment provider. Protocol details
// live behind it.
type PaymentProvider interface {
	CreateStakeholder(ctx context.Context, accountID string, data domain.StakeholderData) (stakeholderID string, err error)
	CreateTransfer(ctx context.Context, payoutID, accountID string, amount float64, currency, notes string) error
}

// AccountStore is the slice of payout-account persistence the job handlers
// need.
type AccountStore interface {
	GetByAccountID(ctx context.Context, accountID string) (*domain.PayoutAccount, error)
	SetStakeholderID(ctx context.Context, accountID, stakeholderID string) error
}

// Enqueuer matches the job queue's enqueue surface.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts ...queue.Option) (*domain.Job, error)
}

// EnqueueStakeholderCreate schedules stakeholder creation. The payout
// account id is the natural dedupe key: re-requesting while one job is
// active coalesces.
func EnqueueStakeholderCreate(ctx context.Context, q Enqueuer, p StakeholderJobPayload) error {
	_, err := q.Enqueue(ctx, domain.JobStakeholderCreate, p,
		queue.WithIdempotencyKey(p.PayoutAccountID))
	return err
}

// EnqueueTransfer schedules a payout transfer, deduped per payout id.
func EnqueueTransfer(ctx context.Context, q Enqueuer, p TransferJobPayload) error {
	_, err := q.Enqueue(ctx, domain.JobPayoutTransfer, p,
		queue.WithIdempotencyKey("transfer-"+p.PayoutID))
	return err
}
