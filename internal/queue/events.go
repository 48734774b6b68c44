package queue

// JobEvent is a queue lifecycle event for operational dashboards.
type JobEvent struct {
	Event    string `json:"event"`
	JobID    string `json:"job_id"`
	JobType  string `json:"job_type"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

const (
	EventJobCompleted      = "job_completed"
	EventJobRetry          = "job_retry"
	EventJobFailedTerminal = "job_failed_terminal"
)

// EventSink receives job lifecycle events. Publish must not block the
// worker; sinks buffer or drop.
type EventSink interface {
	Publish(event JobEvent)
}

type NopSink struct{}

func (NopSink) Publish(JobEvent) {}
