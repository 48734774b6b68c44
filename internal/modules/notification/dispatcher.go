package notification

import (
	"context"

	"go.uber.org/zap"

	"academybook/internal/domain"
)

var channelJobTypes = map[Channel]string{
	ChannelEmail:    domain.JobNotificationEmail,
	ChannelSMS:      domain.JobNotificationSMS,
	ChannelWhatsApp: domain.JobNotificationWhatsApp,
}

// Dispatcher fans one logical notification out across channels. Push is
// delivered inline; every other channel goes through the job queue. Dispatch
// deliberately returns nothing: once it is called the orchestrator's
// transition is final, and no channel failure may surface past this point.
type Dispatcher struct {
	push     PushClient
	tokens   TokenResolver
	contacts ContactResolver
	jobs     Enqueuer
	log      *zap.Logger
}

func NewDispatcher(push PushClient, tokens TokenResolver, contacts ContactResolver, jobs Enqueuer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		push:     push,
		tokens:   tokens,
		contacts: contacts,
		jobs:     jobs,
		log:      log,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	for _, ch := range n.Channels {
		switch ch {
		case ChannelPush:
			d.sendPush(ctx, n)
		default:
			d.enqueueChannel(ctx, ch, n)
		}
	}
}

func (d *Dispatcher) sendPush(ctx context.Context, n Notification) {
	token, err := d.tokens.TokenForUser(ctx, n.RecipientUserID)
	if err != nil {
		d.log.Warn("push token lookup failed",
			zap.Int64("recipient", n.RecipientUserID),
			zap.Error(err))
		return
	}

	res, err := d.push.Send(ctx, token, n.Title, n.Body, n.Data)
	if err != nil {
		d.log.Warn("push delivery failed",
			zap.Int64("recipient", n.RecipientUserID),
			zap.String("title", n.Title),
			zap.Error(err))
		return
	}
	if !res.Success {
		d.log.Warn("push provider rejected message",
			zap.Int64("recipient", n.RecipientUserID),
			zap.Bool("retryable", res.Retryable))
	}
}

func (d *Dispatcher) enqueueChannel(ctx context.Context, ch Channel, n Notification) {
	jobType, ok := channelJobTypes[ch]
	if !ok {
		d.log.Warn("unknown notification channel", zap.String("channel", string(ch)))
		return
	}

	address, err := d.addressFor(ctx, ch, n.RecipientUserID)
	if err != nil {
		d.log.Warn("recipient address lookup failed",
			zap.String("channel", string(ch)),
			zap.Int64("recipient", n.RecipientUserID),
			zap.Error(err))
		return
	}
	if address == "" {
		d.log.Debug("recipient has no address for channel",
			zap.String("channel", string(ch)),
			zap.Int64("recipient", n.RecipientUserID))
		return
	}

	payload := Payload{
		RecipientAddress: address,
		Message:          n.Title + "\n" + n.Body,
		Priority:         n.Priority,
		Metadata: PayloadMetadata{
			Type:      n.Data["type"],
			BookingID: n.Data["booking_id"],
			Recipient: n.RecipientUserID,
		},
		Data: n.Data,
	}
	if _, err := d.jobs.Enqueue(ctx, jobType, payload); err != nil {
		d.log.Error("notification enqueue failed",
			zap.String("channel", string(ch)),
			zap.Int64("recipient", n.RecipientUserID),
			zap.Error(err))
	}
}

func (d *Dispatcher) addressFor(ctx context.Context, ch Channel, userID int64) (string, error) {
	contact, err := d.contacts.ContactForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if ch == ChannelEmail {
		return contact.Email, nil
	}
	return contact.Phone, nil
}
