package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type DeviceTokenRepository struct {
	db *gorm.DB
}

func NewDeviceTokenRepository(db *gorm.DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

type deviceTokenModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex"`
	Token     string    `gorm:"column:token"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (deviceTokenModel) TableName() string { return "device_tokens" }

func (r *DeviceTokenRepository) TokenForUser(ctx context.Context, userID int64) (string, error) {
	var m deviceTokenModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		return "", err
	}
	return m.Token, nil
}

func (r *DeviceTokenRepository) Upsert(ctx context.Context, userID int64, token string) error {
	now := time.Now().UTC()
	tx := r.db.WithContext(ctx).Model(&deviceTokenModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"token": token, "updated_at": now})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&deviceTokenModel{
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}
