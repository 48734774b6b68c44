package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"academybook/internal/domain"
)

// claimRetries bounds how many claim candidates a worker tries per pull
// before reporting an empty queue.
const claimRetries = 5

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

type jobModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	Type           string     `gorm:"column:type;index"`
	Payload        []byte     `gorm:"column:payload"`
	Status         string     `gorm:"column:status;index"`
	Attempts       int        `gorm:"column:attempts"`
	MaxAttempts    int        `gorm:"column:max_attempts"`
	IdempotencyKey string     `gorm:"column:idempotency_key"`
	ActiveKey      *string    `gorm:"column:active_key;uniqueIndex"`
	RunAt          time.Time  `gorm:"column:run_at;index"`
	LeaseExpiresAt *time.Time `gorm:"column:lease_expires_at"`
	LastError      string     `gorm:"column:last_error"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (jobModel) TableName() string { return "jobs" }

func toDomainJob(m jobModel) *domain.Job {
	return &domain.Job{
		ID:             m.ID,
		Type:           m.Type,
		Payload:        m.Payload,
		Status:         domain.JobStatus(m.Status),
		Attempts:       m.Attempts,
		MaxAttempts:    m.MaxAttempts,
		IdempotencyKey: m.IdempotencyKey,
		ActiveKey:      m.ActiveKey,
		RunAt:          m.RunAt,
		LeaseExpiresAt: m.LeaseExpiresAt,
		LastError:      m.LastError,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (r *JobRepository) Insert(ctx context.Context, job *domain.Job) error {
	m := jobModel{
		ID:             job.ID,
		Type:           job.Type,
		Payload:        job.Payload,
		Status:         string(job.Status),
		Attempts:       job.Attempts,
		MaxAttempts:    job.MaxAttempts,
		IdempotencyKey: job.IdempotencyKey,
		ActiveKey:      job.ActiveKey,
		RunAt:          job.RunAt,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if job.ActiveKey != nil && isUniqueViolation(err) {
			return domain.ErrDuplicateActiveKey
		}
		return err
	}
	return nil
}

// Claim pulls one due queued job and flips it to processing with a lease.
// The flip re-checks the queued status, so two workers selecting the same
// candidate resolve the race on RowsAffected and the loser moves on.
func (r *JobRepository) Claim(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error) {
	for i := 0; i < claimRetries; i++ {
		var m jobModel
		err := r.db.WithContext(ctx).
			Where("status = ? AND run_at <= ?", string(domain.JobQueued), now).
			Order("run_at").
			First(&m).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}

		leaseUntil := now.Add(lease)
		tx := r.db.WithContext(ctx).Model(&jobModel{}).
			Where("id = ? AND status = ?", m.ID, string(domain.JobQueued)).
			Updates(map[string]any{
				"status":           string(domain.JobProcessing),
				"attempts":         gorm.Expr("attempts + 1"),
				"lease_expires_at": leaseUntil,
				"updated_at":       now,
			})
		if tx.Error != nil {
			return nil, tx.Error
		}
		if tx.RowsAffected == 0 {
			continue
		}

		m.Status = string(domain.JobProcessing)
		m.Attempts++
		m.LeaseExpiresAt = &leaseUntil
		m.UpdatedAt = now
		return toDomainJob(m), nil
	}
	return nil, nil
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&jobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           string(domain.JobCompleted),
			"active_key":       nil,
			"lease_expires_at": nil,
			"last_error":       "",
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *JobRepository) MarkFailed(ctx context.Context, id string, lastErr string) error {
	return r.db.WithContext(ctx).Model(&jobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           string(domain.JobFailed),
			"active_key":       nil,
			"lease_expires_at": nil,
			"last_error":       lastErr,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *JobRepository) Reschedule(ctx context.Context, id string, runAt time.Time, lastErr string) error {
	return r.db.WithContext(ctx).Model(&jobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           string(domain.JobQueued),
			"run_at":           runAt,
			"lease_expires_at": nil,
			"last_error":       lastErr,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// RequeueExpired returns stalled processing jobs (worker died mid-flight)
// to the pending pool.
func (r *JobRepository) RequeueExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&jobModel{}).
		Where("status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < ?",
			string(domain.JobProcessing), now).
		Updates(map[string]any{
			"status":           string(domain.JobQueued),
			"lease_expires_at": nil,
			"updated_at":       now,
		})
	return tx.RowsAffected, tx.Error
}

func (r *JobRepository) PruneCompleted(ctx context.Context, maxAge time.Duration, keep int) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	tx := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(domain.JobCompleted), cutoff).
		Delete(&jobModel{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	pruned := tx.RowsAffected

	var count int64
	if err := r.db.WithContext(ctx).Model(&jobModel{}).
		Where("status = ?", string(domain.JobCompleted)).
		Count(&count).Error; err != nil {
		return pruned, err
	}
	if count <= int64(keep) {
		return pruned, nil
	}

	// Over the count cap: drop everything older than the keep-th newest.
	var threshold jobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.JobCompleted)).
		Order("updated_at DESC").
		Offset(keep - 1).
		First(&threshold).Error; err != nil {
		return pruned, err
	}
	tx = r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(domain.JobCompleted), threshold.UpdatedAt).
		Delete(&jobModel{})
	return pruned + tx.RowsAffected, tx.Error
}

func (r *JobRepository) PruneFailed(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	tx := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(domain.JobFailed), cutoff).
		Delete(&jobModel{})
	return tx.RowsAffected, tx.Error
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var m jobModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return toDomainJob(m), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
