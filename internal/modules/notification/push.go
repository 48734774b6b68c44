package notification

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerPushClient wraps a push provider with a circuit breaker so a
// misbehaving provider sheds load fast instead of holding every transition
// on a slow synchronous call.
type BreakerPushClient struct {
	inner PushClient
	cb    *gobreaker.CircuitBreaker[PushResult]
}

func NewBreakerPushClient(inner PushClient) *BreakerPushClient {
	cb := gobreaker.NewCircuitBreaker[PushResult](gobreaker.Settings{
		Name:    "push-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakerPushClient{inner: inner, cb: cb}
}

func (c *BreakerPushClient) Send(ctx context.Context, token, title, body string, data map[string]string) (PushResult, error) {
	return c.cb.Execute(func() (PushResult, error) {
		return c.inner.Send(ctx, token, title, body, data)
	})
}
