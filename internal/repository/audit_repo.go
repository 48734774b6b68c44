package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"academybook/internal/domain"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type auditEventModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ActionType string    `gorm:"column:action_type;index"`
	Severity   string    `gorm:"column:severity"`
	Label      string    `gorm:"column:label"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   string    `gorm:"column:entity_id;index"`
	UserID     int64     `gorm:"column:user_id;index"`
	AcademyID  int64     `gorm:"column:academy_id"`
	Metadata   []byte    `gorm:"column:metadata"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (auditEventModel) TableName() string { return "audit_events" }

func (r *AuditRepository) Record(ctx context.Context, event domain.AuditEvent) error {
	meta, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	m := auditEventModel{
		ID:         event.ID,
		ActionType: event.ActionType,
		Severity:   string(event.Severity),
		Label:      event.Label,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		UserID:     event.UserID,
		AcademyID:  event.AcademyID,
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *AuditRepository) ListForEntity(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []auditEventModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.AuditEvent, 0, len(rows))
	for _, m := range rows {
		e := domain.AuditEvent{
			ID:         m.ID,
			ActionType: m.ActionType,
			Severity:   domain.AuditSeverity(m.Severity),
			Label:      m.Label,
			EntityType: m.EntityType,
			EntityID:   m.EntityID,
			UserID:     m.UserID,
			AcademyID:  m.AcademyID,
			CreatedAt:  m.CreatedAt,
		}
		if len(m.Metadata) > 0 {
			_ = json.Unmarshal(m.Metadata, &e.Metadata)
		}
		out = append(out, e)
	}
	return out, nil
}
