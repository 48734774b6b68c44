package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"academybook/internal/domain"
)

// PoolConfig tunes one worker process. Several processes may drain the same
// store; the claim CAS keeps them from double-processing.
type PoolConfig struct {
	Concurrency     int
	Lease           time.Duration
	PollInterval    time.Duration
	ReaperInterval  time.Duration
	PruneInterval   time.Duration
	CompletedMaxAge time.Duration
	CompletedKeep   int
	FailedMaxAge    time.Duration
}

func (c *PoolConfig) fillDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ReaperInterval <= 0 {
		c.ReaperInterval = 15 * time.Second
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = 10 * time.Minute
	}
	if c.CompletedMaxAge <= 0 {
		c.CompletedMaxAge = 24 * time.Hour
	}
	if c.CompletedKeep <= 0 {
		c.CompletedKeep = 10000
	}
	if c.FailedMaxAge <= 0 {
		c.FailedMaxAge = 7 * 24 * time.Hour
	}
}

// Pool drains the queue with bounded concurrency, returns stalled jobs to
// the pending pool, and prunes finished jobs by age and count.
type Pool struct {
	q   *Queue
	cfg PoolConfig
	log *zap.Logger
}

func NewPool(q *Queue, cfg PoolConfig, log *zap.Logger) *Pool {
	cfg.fillDefaults()
	return &Pool{q: q, cfg: cfg, log: log}
}

// Run blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.workLoop(ctx, worker)
		}(i)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		p.reaperLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		p.prunerLoop(ctx)
	}()

	wg.Wait()
}

func (p *Pool) workLoop(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.q.store.Claim(ctx, time.Now().UTC(), p.cfg.Lease)
		if err != nil {
			p.log.Error("claim failed", zap.Int("worker", worker), zap.Error(err))
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}
		if job == nil {
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}

		p.process(ctx, job)
	}
}

func (p *Pool) process(ctx context.Context, job *domain.Job) {
	reg, ok := p.q.handlerFor(job.Type)
	if !ok {
		p.terminate(ctx, job, fmt.Errorf("no handler registered for type %q", job.Type))
		return
	}

	if err := reg.handler(ctx, job); err != nil {
		p.handleFailure(ctx, job, reg.policy, err)
		return
	}

	if err := p.q.store.MarkCompleted(ctx, job.ID); err != nil {
		p.log.Error("mark completed failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	p.q.sink.Publish(JobEvent{
		Event:    EventJobCompleted,
		JobID:    job.ID,
		JobType:  job.Type,
		Attempts: job.Attempts,
	})
	p.log.Info("job completed",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempts))
}

func (p *Pool) handleFailure(ctx context.Context, job *domain.Job, policy RetryPolicy, cause error) {
	if job.Attempts >= job.MaxAttempts {
		p.terminate(ctx, job, cause)
		return
	}

	delay := policy.NextDelay(job.Attempts)
	runAt := time.Now().UTC().Add(delay)
	if err := p.q.store.Reschedule(ctx, job.ID, runAt, cause.Error()); err != nil {
		p.log.Error("reschedule failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	p.q.sink.Publish(JobEvent{
		Event:    EventJobRetry,
		JobID:    job.ID,
		JobType:  job.Type,
		Attempts: job.Attempts,
		Error:    cause.Error(),
	})
	p.log.Warn("job failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts),
		zap.Duration("delay", delay),
		zap.Error(cause))
}

// terminate marks the job failed for good. The record the job was mutating
// keeps its last known-good state; reconciliation is an operator concern.
func (p *Pool) terminate(ctx context.Context, job *domain.Job, cause error) {
	if err := p.q.store.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		p.log.Error("mark failed errored", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	p.q.sink.Publish(JobEvent{
		Event:    EventJobFailedTerminal,
		JobID:    job.ID,
		JobType:  job.Type,
		Attempts: job.Attempts,
		Error:    cause.Error(),
	})
	p.log.Error("job failed terminally",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempts),
		zap.Error(cause))
}

// reaperLoop returns processing jobs whose worker died mid-flight to the
// pending pool once their lease expires.
func (p *Pool) reaperLoop(ctx context.Context) {
	tick := time.NewTicker(p.cfg.ReaperInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n, err := p.q.store.RequeueExpired(ctx, time.Now().UTC())
			if err != nil {
				p.log.Error("requeue expired leases failed", zap.Error(err))
				continue
			}
			if n > 0 {
				p.log.Warn("requeued stalled jobs", zap.Int64("count", n))
			}
		}
	}
}

func (p *Pool) prunerLoop(ctx context.Context) {
	tick := time.NewTicker(p.cfg.PruneInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if _, err := p.q.store.PruneCompleted(ctx, p.cfg.CompletedMaxAge, p.cfg.CompletedKeep); err != nil {
				p.log.Error("prune completed failed", zap.Error(err))
			}
			if _, err := p.q.store.PruneFailed(ctx, p.cfg.FailedMaxAge); err != nil {
				p.log.Error("prune failed jobs failed", zap.Error(err))
			}
		}
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
