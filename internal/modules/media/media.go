package media

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"academybook/internal/domain"
	"academybook/internal/queue"
)

// JobPayload references an uploaded media object to normalize (reels,
// academy photos). Storage itself is an external collaborator.
type JobPayload struct {
	ObjectKey string `json:"objectKey"`
	Kind      string `json:"kind"`
	AcademyID int64  `json:"academyId"`
}

// Processor normalizes one uploaded object in place.
type Processor interface {
	Process(ctx context.Context, objectKey, kind string) error
}

// Bulk/media jobs are not latency sensitive, so the retry profile backs off
// much slower than the API-facing jobs.
var retryPolicy = queue.RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   30 * time.Second,
	MaxDelay:    10 * time.Minute,
}

func RegisterHandlers(q *queue.Queue, processor Processor) {
	q.Register(domain.JobMediaProcess, func(ctx context.Context, job *domain.Job) error {
		var p JobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode media payload: %w", err)
		}
		if err := processor.Process(ctx, p.ObjectKey, p.Kind); err != nil {
			return fmt.Errorf("process media %s: %w", p.ObjectKey, err)
		}
		return nil
	}, retryPolicy)
}
