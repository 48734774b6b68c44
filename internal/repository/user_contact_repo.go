package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"academybook/internal/domain"
)

type UserContactRepository struct {
	db *gorm.DB
}

func NewUserContactRepository(db *gorm.DB) *UserContactRepository {
	return &UserContactRepository{db: db}
}

type userContactModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex"`
	Email     string    `gorm:"column:email"`
	Phone     string    `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (userContactModel) TableName() string { return "user_contacts" }

// ContactForUser returns an empty contact, not an error, for users who never
// registered addresses: the dispatcher treats a missing address per channel
// as "skip this channel".
func (r *UserContactRepository) ContactForUser(ctx context.Context, userID int64) (domain.Contact, error) {
	var m userContactModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contact{}, nil
		}
		return domain.Contact{}, err
	}
	return domain.Contact{Email: m.Email, Phone: m.Phone}, nil
}

func (r *UserContactRepository) Upsert(ctx context.Context, userID int64, contact domain.Contact) error {
	now := time.Now().UTC()
	tx := r.db.WithContext(ctx).Model(&userContactModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"email": contact.Email, "phone": contact.Phone, "updated_at": now})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&userContactModel{
		UserID:    userID,
		Email:     contact.Email,
		Phone:     contact.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}
