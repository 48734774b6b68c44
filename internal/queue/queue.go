package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"academybook/internal/domain"
)

// RetryPolicy controls how many times a job type is attempted and how the
// delay between attempts grows.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NextDelay is the exponential backoff before the given retry: base doubled
// per attempt already made, capped at MaxDelay.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

var defaultPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, MaxDelay: 5 * time.Minute}

// Handler executes one job attempt. A non-nil error schedules a retry until
// the attempt ceiling, then the job fails terminally.
type Handler func(ctx context.Context, job *domain.Job) error

// JobStore is the durable multi-consumer queue storage.
type JobStore interface {
	Insert(ctx context.Context, job *domain.Job) error
	Claim(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastErr string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, lastErr string) error
	RequeueExpired(ctx context.Context, now time.Time) (int64, error)
	PruneCompleted(ctx context.Context, maxAge time.Duration, keep int) (int64, error)
	PruneFailed(ctx context.Context, maxAge time.Duration) (int64, error)
}

type registration struct {
	handler Handler
	policy  RetryPolicy
}

// Queue enqueues typed jobs and dispatches them to registered handlers.
type Queue struct {
	store JobStore
	log   *zap.Logger
	sink  EventSink

	mu       sync.RWMutex
	registry map[string]registration
}

func New(store JobStore, log *zap.Logger, sink EventSink) *Queue {
	if sink == nil {
		sink = NopSink{}
	}
	return &Queue{
		store:    store,
		log:      log,
		sink:     sink,
		registry: make(map[string]registration),
	}
}

// Register binds a handler and retry policy to a job type. Jobs of an
// unregistered type fail terminally on their first claim.
func (q *Queue) Register(jobType string, h Handler, policy RetryPolicy) {
	policy = policy.withDefaults()
	q.mu.Lock()
	q.registry[jobType] = registration{handler: h, policy: policy}
	q.mu.Unlock()
}

// RegisterPolicy pins a retry policy for a job type without binding a
// handler. Producer processes that only enqueue still need the policy so
// MaxAttempts is stamped correctly at enqueue time; a previously registered
// handler is kept.
func (q *Queue) RegisterPolicy(jobType string, policy RetryPolicy) {
	policy = policy.withDefaults()
	q.mu.Lock()
	reg := q.registry[jobType]
	reg.policy = policy
	q.registry[jobType] = reg
	q.mu.Unlock()
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultPolicy.MaxDelay
	}
	return p
}

type enqueueOptions struct {
	idempotencyKey string
	delay          time.Duration
	maxAttempts    int
}

type Option func(*enqueueOptions)

func WithIdempotencyKey(key string) Option {
	return func(o *enqueueOptions) { o.idempotencyKey = key }
}

func WithDelay(d time.Duration) Option {
	return func(o *enqueueOptions) { o.delay = d }
}

func WithMaxAttempts(n int) Option {
	return func(o *enqueueOptions) { o.maxAttempts = n }
}

// Enqueue appends a job. When the idempotency key matches an already-active
// job the call coalesces into a no-op and returns a nil job.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any, opts ...Option) (*domain.Job, error) {
	var o enqueueOptions
	for _, opt := range opts {
		opt(&o)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", jobType, err)
	}

	maxAttempts := o.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.policyFor(jobType).MaxAttempts
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:             uuid.NewString(),
		Type:           jobType,
		Payload:        body,
		Status:         domain.JobQueued,
		MaxAttempts:    maxAttempts,
		IdempotencyKey: o.idempotencyKey,
		RunAt:          now.Add(o.delay),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if o.idempotencyKey != "" {
		key := o.idempotencyKey
		job.ActiveKey = &key
	}

	if err := q.store.Insert(ctx, job); err != nil {
		if errors.Is(err, domain.ErrDuplicateActiveKey) {
			q.log.Debug("enqueue coalesced on active idempotency key",
				zap.String("type", jobType),
				zap.String("idempotency_key", o.idempotencyKey))
			return nil, nil
		}
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}

	return job, nil
}

func (q *Queue) policyFor(jobType string) RetryPolicy {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if reg, ok := q.registry[jobType]; ok {
		return reg.policy
	}
	return defaultPolicy
}

func (q *Queue) handlerFor(jobType string) (registration, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	reg, ok := q.registry[jobType]
	// A policy-only registration is not a handler.
	return reg, ok && reg.handler != nil
}
