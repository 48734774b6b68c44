package notification

import (
	"context"

	"academybook/internal/domain"
	"academybook/internal/queue"
)

// PushResult mirrors the push provider's delivery outcome.
type PushResult struct {
	Success   bool
	Retryable bool
}

// PushClient is the synchronous push-delivery provider.
type PushClient interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (PushResult, error)
}

// TokenResolver looks up the device push token for a user.
type TokenResolver interface {
	TokenForUser(ctx context.Context, userID int64) (string, error)
}

// ContactResolver looks up the queued-channel addresses for a recipient.
type ContactResolver interface {
	ContactForUser(ctx context.Context, userID int64) (domain.Contact, error)
}

// Enqueuer is the slice of the job queue the dispatcher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts ...queue.Option) (*domain.Job, error)
}

// Channel delivery providers behind the queued job handlers.
type (
	EmailSender interface {
		Send(ctx context.Context, to, message string) error
	}
	SMSSender interface {
		Send(ctx context.Context, to, message string) error
	}
	WhatsAppSender interface {
		Send(ctx context.Context, to, message string) error
	}
)
