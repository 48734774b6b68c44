package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"academybook/internal/domain"
	"academybook/internal/repository"
)

func newTestQueue(t *testing.T, sink EventSink) (*Queue, *repository.JobRepository) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "queue.db")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	store := repository.NewJobRepository(db)
	return New(store, zap.NewNop(), sink), store
}

func runPool(t *testing.T, q *Queue) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(q, PoolConfig{
		Concurrency:  1,
		Lease:        time.Minute,
		PollInterval: 5 * time.Millisecond,
		// Keep the maintenance loops out of short tests.
		ReaperInterval: time.Hour,
		PruneInterval:  time.Hour,
	}, zap.NewNop())
	go pool.Run(ctx)
	return cancel
}

func waitForStatus(t *testing.T, store *repository.JobRepository, id string, want domain.JobStatus) *domain.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return nil
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, time.Second, p.NextDelay(0))
	assert.Equal(t, 2*time.Second, p.NextDelay(1))
	assert.Equal(t, 4*time.Second, p.NextDelay(2))
	assert.Equal(t, 8*time.Second, p.NextDelay(3))
	assert.Equal(t, 10*time.Second, p.NextDelay(4), "capped")
	assert.Equal(t, 10*time.Second, p.NextDelay(20), "stays capped")
}

func TestQueue_SucceedsAfterRetries(t *testing.T) {
	q, store := newTestQueue(t, nil)

	var calls atomic.Int32
	q.Register("flaky", func(ctx context.Context, job *domain.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})

	job, err := q.Enqueue(context.Background(), "flaky", map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NotNil(t, job)

	cancel := runPool(t, q)
	defer cancel()

	done := waitForStatus(t, store, job.ID, domain.JobCompleted)
	assert.Equal(t, 3, done.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_TerminalFailureAfterMaxAttempts(t *testing.T) {
	sink := &captureSink{}
	q, store := newTestQueue(t, sink)

	var calls atomic.Int32
	q.Register("doomed", func(ctx context.Context, job *domain.Job) error {
		calls.Add(1)
		return errors.New("provider down")
	}, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})

	job, err := q.Enqueue(context.Background(), "doomed", nil)
	require.NoError(t, err)

	cancel := runPool(t, q)
	defer cancel()

	failed := waitForStatus(t, store, job.ID, domain.JobFailed)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, failed.LastError, "provider down")

	terminal := sink.byEvent(EventJobFailedTerminal)
	require.Len(t, terminal, 1)
	assert.Equal(t, job.ID, terminal[0].JobID)
}

func TestQueue_IdempotencyKeyCoalesces(t *testing.T) {
	q, store := newTestQueue(t, nil)

	var calls atomic.Int32
	block := make(chan struct{})
	q.Register("transfer", func(ctx context.Context, job *domain.Job) error {
		calls.Add(1)
		<-block
		return nil
	}, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})

	first, err := q.Enqueue(context.Background(), "transfer", nil, WithIdempotencyKey("transfer-p1"))
	require.NoError(t, err)
	require.NotNil(t, first)

	cancel := runPool(t, q)
	defer cancel()

	// Wait until the first job is mid-flight, then try to enqueue again.
	waitForStatus(t, store, first.ID, domain.JobProcessing)

	dup, err := q.Enqueue(context.Background(), "transfer", nil, WithIdempotencyKey("transfer-p1"))
	require.NoError(t, err, "duplicate enqueue is a silent no-op")
	assert.Nil(t, dup)

	close(block)
	waitForStatus(t, store, first.ID, domain.JobCompleted)
	assert.Equal(t, int32(1), calls.Load())

	// The key is free again after completion.
	second, err := q.Enqueue(context.Background(), "transfer", nil, WithIdempotencyKey("transfer-p1"))
	require.NoError(t, err)
	require.NotNil(t, second)
	waitForStatus(t, store, second.ID, domain.JobCompleted)
}

func TestQueue_UnregisteredTypeFailsTerminally(t *testing.T) {
	sink := &captureSink{}
	q, store := newTestQueue(t, sink)

	job, err := q.Enqueue(context.Background(), "nobody-handles-this", nil)
	require.NoError(t, err)

	cancel := runPool(t, q)
	defer cancel()

	failed := waitForStatus(t, store, job.ID, domain.JobFailed)
	assert.Contains(t, failed.LastError, "no handler registered")
}

func TestQueue_DelayedJobWaits(t *testing.T) {
	q, store := newTestQueue(t, nil)

	q.Register("later", func(ctx context.Context, job *domain.Job) error {
		return nil
	}, RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	job, err := q.Enqueue(context.Background(), "later", nil, WithDelay(100*time.Millisecond))
	require.NoError(t, err)

	cancel := runPool(t, q)
	defer cancel()

	// Not claimable yet.
	time.Sleep(40 * time.Millisecond)
	got, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, got.Status)

	waitForStatus(t, store, job.ID, domain.JobCompleted)
}

func TestQueue_EnqueueUsesRegisteredPolicyForMaxAttempts(t *testing.T) {
	q, _ := newTestQueue(t, nil)

	q.Register("typed", func(ctx context.Context, job *domain.Job) error { return nil },
		RetryPolicy{MaxAttempts: 7, BaseDelay: time.Second, MaxDelay: time.Minute})

	job, err := q.Enqueue(context.Background(), "typed", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, job.MaxAttempts)

	override, err := q.Enqueue(context.Background(), "typed", nil, WithMaxAttempts(2))
	require.NoError(t, err)
	assert.Equal(t, 2, override.MaxAttempts)
}

func TestQueue_PolicyOnlyRegistration(t *testing.T) {
	q, store := newTestQueue(t, nil)

	// A producer process pins the policy without binding a handler.
	q.RegisterPolicy("producer-side", RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})

	job, err := q.Enqueue(context.Background(), "producer-side", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, job.MaxAttempts)

	// A worker that never learned the handler still fails the job
	// terminally instead of invoking a nil handler.
	cancel := runPool(t, q)
	defer cancel()

	failed := waitForStatus(t, store, job.ID, domain.JobFailed)
	assert.Contains(t, failed.LastError, "no handler registered")
}

type captureSink struct {
	mu     sync.Mutex
	events []JobEvent
}

func (s *captureSink) Publish(e JobEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) byEvent(name string) []JobEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []JobEvent
	for _, e := range s.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}
