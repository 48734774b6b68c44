package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"academybook/internal/domain"
)

type PayoutAccountRepository struct {
	db *gorm.DB
}

func NewPayoutAccountRepository(db *gorm.DB) *PayoutAccountRepository {
	return &PayoutAccountRepository{db: db}
}

type payoutAccountModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	AccountID     string    `gorm:"column:account_id;uniqueIndex"`
	AcademyID     int64     `gorm:"column:academy_id;index"`
	StakeholderID string    `gorm:"column:stakeholder_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (payoutAccountModel) TableName() string { return "payout_accounts" }

func (r *PayoutAccountRepository) Create(ctx context.Context, a *domain.PayoutAccount) error {
	m := payoutAccountModel{
		AccountID:     a.AccountID,
		AcademyID:     a.AcademyID,
		StakeholderID: a.StakeholderID,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	a.ID = m.ID
	a.CreatedAt = m.CreatedAt
	a.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *PayoutAccountRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.PayoutAccount, error) {
	var m payoutAccountModel
	if err := r.db.WithContext(ctx).First(&m, "account_id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &domain.PayoutAccount{
		ID:            m.ID,
		AccountID:     m.AccountID,
		AcademyID:     m.AcademyID,
		StakeholderID: m.StakeholderID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func (r *PayoutAccountRepository) SetStakeholderID(ctx context.Context, accountID, stakeholderID string) error {
	return r.db.WithContext(ctx).Model(&payoutAccountModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"stakeholder_id": stakeholderID,
			"updated_at":     time.Now().UTC(),
		}).Error
}
