package notifications

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
)

type envelopeProcessor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Runner pumps the notification subscription into the consumer.
type Runner struct {
	processor    envelopeProcessor
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

func NewRunner(processor envelopeProcessor, subscription *pubsub.Subscriber, logg *logger.Logger) (*Runner, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if subscription == nil {
		return nil, errors.New("notification subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Runner{processor: processor, subscription: subscription, logg: logg}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (r *Runner) Run(ctx context.Context) error {
	return r.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if r.handle(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether the message should be acked. Malformed messages ack
// so they do not poison the subscription; transient processing failures nack
// for redelivery.
func (r *Runner) handle(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
		"event_id":   msg.Attributes["event_id"],
	})

	eventType, err := enums.ParseOutboxEventType(msg.Attributes["event_type"])
	if err != nil {
		r.logg.Warn(logCtx, "message carries unknown event type, dropping")
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		r.logg.Error(logCtx, "failed to decode event envelope", err)
		return true
	}

	if err := r.processor.Process(ctx, eventType, envelope); err != nil {
		r.logg.Error(logCtx, "notification event processing failed", err)
		return false
	}
	return true
}
