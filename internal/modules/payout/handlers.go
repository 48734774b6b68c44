package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"academybook/internal/domain"
	"academybook/internal/queue"
)

var (
	stakeholderRetryPolicy = queue.RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   3 * time.Second,
		MaxDelay:    2 * time.Minute,
	}
	transferRetryPolicy = queue.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    2 * time.Minute,
	}
)

// RegisterHandlers binds the payout job handlers to their types.
func RegisterHandlers(q *queue.Queue, provider PaymentProvider, accounts AccountStore, log *zap.Logger) {
	q.Register(domain.JobStakeholderCreate, stakeholderCreateHandler(provider, accounts, log), stakeholderRetryPolicy)
	q.Register(domain.JobPayoutTransfer, transferHandler(provider), transferRetryPolicy)
}

// stakeholderCreateHandler creates the stakeholder at the provider, stores
// the returned id, then re-reads the row to verify the write took effect.
// "Row vanished" and "row holds a different id" are distinct operator
// signals and are logged apart.
func stakeholderCreateHandler(provider PaymentProvider, accounts AccountStore, log *zap.Logger) queue.Handler {
	return func(ctx context.Context, job *domain.Job) error {
		var p StakeholderJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode stakeholder payload: %w", err)
		}

		stakeholderID, err := provider.CreateStakeholder(ctx, p.AccountID, p.StakeholderData)
		if err != nil {
			return fmt.Errorf("create stakeholder on account %s: %w", p.AccountID, err)
		}

		if err := accounts.SetStakeholderID(ctx, p.PayoutAccountID, stakeholderID); err != nil {
			return fmt.Errorf("store stakeholder id for account %s: %w", p.PayoutAccountID, err)
		}

		// Read-after-write check.
		stored, err := accounts.GetByAccountID(ctx, p.PayoutAccountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error("payout account record missing after stakeholder write",
					zap.String("payout_account_id", p.PayoutAccountID),
					zap.String("stakeholder_id", stakeholderID),
					zap.String("job_id", job.ID))
				return fmt.Errorf("payout account %s lost after stakeholder write", p.PayoutAccountID)
			}
			return fmt.Errorf("verify stakeholder write for account %s: %w", p.PayoutAccountID, err)
		}
		if stored.StakeholderID != stakeholderID {
			log.Error("stakeholder id verification mismatch",
				zap.String("payout_account_id", p.PayoutAccountID),
				zap.String("expected", stakeholderID),
				zap.String("stored", stored.StakeholderID),
				zap.String("job_id", job.ID))
			return fmt.Errorf("stakeholder id mismatch on account %s: wrote %s, read %s",
				p.PayoutAccountID, stakeholderID, stored.StakeholderID)
		}

		log.Info("stakeholder created",
			zap.String("payout_account_id", p.PayoutAccountID),
			zap.String("stakeholder_id", stakeholderID),
			zap.Bool("auto_created", p.AutoCreated))
		return nil
	}
}

func transferHandler(provider PaymentProvider) queue.Handler {
	return func(ctx context.Context, job *domain.Job) error {
		var p TransferJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode transfer payload: %w", err)
		}
		if err := provider.CreateTransfer(ctx, p.PayoutID, p.AccountID, p.Amount, p.Currency, p.Notes); err != nil {
			return fmt.Errorf("transfer payout %s: %w", p.PayoutID, err)
		}
		return nil
	}
}
