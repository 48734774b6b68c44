package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academybook/internal/domain"
)

func newQueuedJob(jobType string, key string) *domain.Job {
	now := time.Now().UTC()
	j := &domain.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     []byte(`{}`),
		Status:      domain.JobQueued,
		MaxAttempts: 3,
		RunAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if key != "" {
		j.IdempotencyKey = key
		j.ActiveKey = &key
	}
	return j
}

func TestJobRepository_InsertDuplicateActiveKey(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newQueuedJob(domain.JobPayoutTransfer, "transfer-p1")))

	err := repo.Insert(ctx, newQueuedJob(domain.JobPayoutTransfer, "transfer-p1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveKey)

	// Jobs without a key never collide.
	require.NoError(t, repo.Insert(ctx, newQueuedJob(domain.JobMediaProcess, "")))
	require.NoError(t, repo.Insert(ctx, newQueuedJob(domain.JobMediaProcess, "")))
}

func TestJobRepository_CompletedJobReleasesKey(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	first := newQueuedJob(domain.JobPayoutTransfer, "transfer-p1")
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.MarkCompleted(ctx, first.ID))

	// The key is free again once the first job left the active set.
	require.NoError(t, repo.Insert(ctx, newQueuedJob(domain.JobPayoutTransfer, "transfer-p1")))
}

func TestJobRepository_Claim(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	job, err := repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, job, "empty queue claims nothing")

	queued := newQueuedJob(domain.JobNotificationEmail, "")
	queued.RunAt = now
	require.NoError(t, repo.Insert(ctx, queued))

	claimed, err := repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, queued.ID, claimed.ID)
	assert.Equal(t, domain.JobProcessing, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	require.NotNil(t, claimed.LeaseExpiresAt)

	// Already processing: nothing left to claim.
	again, err := repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestJobRepository_ClaimSkipsFutureRunAt(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	delayed := newQueuedJob(domain.JobNotificationSMS, "")
	delayed.RunAt = now.Add(time.Hour)
	require.NoError(t, repo.Insert(ctx, delayed))

	job, err := repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, job)

	job, err = repo.Claim(ctx, now.Add(2*time.Hour), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, delayed.ID, job.ID)
}

func TestJobRepository_RequeueExpired(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	stalled := newQueuedJob(domain.JobNotificationEmail, "")
	stalled.RunAt = now
	require.NoError(t, repo.Insert(ctx, stalled))

	// Claim with a lease that is already expired: the worker "died".
	claimed, err := repo.Claim(ctx, now, -time.Second)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	n, err := repo.RequeueExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reclaimed, err := repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, stalled.ID, reclaimed.ID)
	assert.Equal(t, 2, reclaimed.Attempts)
}

func TestJobRepository_RescheduleAndTerminal(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	job := newQueuedJob(domain.JobStakeholderCreate, "acc_1")
	job.RunAt = now
	require.NoError(t, repo.Insert(ctx, job))

	claimed, err := repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, repo.Reschedule(ctx, claimed.ID, now.Add(5*time.Second), "provider timeout"))

	got, err := repo.GetByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, got.Status)
	assert.Equal(t, "provider timeout", got.LastError)
	assert.Nil(t, got.LeaseExpiresAt)
	// Still holds its idempotency key while retrying.
	require.NotNil(t, got.ActiveKey)
	assert.True(t, got.Active())

	require.NoError(t, repo.MarkFailed(ctx, claimed.ID, "provider down"))
	got, err = repo.GetByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Nil(t, got.ActiveKey)
	assert.False(t, got.Active())
	assert.Equal(t, "provider down", got.LastError)
}

func TestJobRepository_Prune(t *testing.T) {
	db := openTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	old := newQueuedJob(domain.JobNotificationEmail, "")
	require.NoError(t, repo.Insert(ctx, old))
	require.NoError(t, repo.MarkCompleted(ctx, old.ID))
	// Age the row well past any retention window.
	require.NoError(t, db.Model(&jobModel{}).Where("id = ?", old.ID).
		Update("updated_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	fresh := newQueuedJob(domain.JobNotificationEmail, "")
	require.NoError(t, repo.Insert(ctx, fresh))
	require.NoError(t, repo.MarkCompleted(ctx, fresh.ID))

	pruned, err := repo.PruneCompleted(ctx, 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, err = repo.GetByID(ctx, fresh.ID)
	assert.NoError(t, err, "fresh completed job survives")
}
