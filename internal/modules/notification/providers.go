package notification

import (
	"context"

	"go.uber.org/zap"
)

// Logging providers stand in for the real delivery integrations in dev and
// local runs. They accept everything and write the would-be delivery to the
// log.

type LogPushClient struct{ Log *zap.Logger }

func (c LogPushClient) Send(_ context.Context, token, title, body string, _ map[string]string) (PushResult, error) {
	c.Log.Info("push (log provider)",
		zap.String("token", token),
		zap.String("title", title),
		zap.String("body", body))
	return PushResult{Success: true}, nil
}

type LogChannelSender struct {
	Log     *zap.Logger
	Channel string
}

func (s LogChannelSender) Send(_ context.Context, to, message string) error {
	s.Log.Info("send (log provider)",
		zap.String("channel", s.Channel),
		zap.String("to", to),
		zap.String("message", message))
	return nil
}
