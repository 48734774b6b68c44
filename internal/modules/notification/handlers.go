package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"academybook/internal/domain"
	"academybook/internal/queue"
)

// Retry profile for externally-facing channel sends: short base delay,
// bounded attempts.
var channelRetryPolicy = queue.RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   2 * time.Second,
	MaxDelay:    time.Minute,
}

// RegisterHandlers binds the queued channel senders to their job types.
func RegisterHandlers(q *queue.Queue, email EmailSender, sms SMSSender, whatsapp WhatsAppSender) {
	q.Register(domain.JobNotificationEmail, channelHandler(email.Send), channelRetryPolicy)
	q.Register(domain.JobNotificationSMS, channelHandler(sms.Send), channelRetryPolicy)
	q.Register(domain.JobNotificationWhatsApp, channelHandler(whatsapp.Send), channelRetryPolicy)
}

// RegisterPolicies pins the channel retry policies on a producer-side queue.
// The API binary enqueues but never processes, and MaxAttempts is fixed at
// enqueue time, so it needs the policies without the handlers.
func RegisterPolicies(q *queue.Queue) {
	for _, jobType := range []string{
		domain.JobNotificationEmail,
		domain.JobNotificationSMS,
		domain.JobNotificationWhatsApp,
	} {
		q.RegisterPolicy(jobType, channelRetryPolicy)
	}
}

func channelHandler(send func(ctx context.Context, to, message string) error) queue.Handler {
	return func(ctx context.Context, job *domain.Job) error {
		var p Payload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode notification payload: %w", err)
		}
		if p.RecipientAddress == "" {
			return fmt.Errorf("notification payload has no recipient address")
		}
		return send(ctx, p.RecipientAddress, p.Message)
	}
}
