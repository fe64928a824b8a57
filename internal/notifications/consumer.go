package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox/payloads"
)

const consumerName = "notifications"

// processedTTL bounds how long delivered event ids are remembered for
// duplicate suppression. Pub/Sub redelivery happens within minutes.
const processedTTL = 24 * time.Hour

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Consumer materializes notification_requested events into user inboxes.
type Consumer struct {
	repo   Repository
	dedupe dedupeStore
	logg   *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo Repository, dedupe dedupeStore, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{repo: repo, dedupe: dedupe, logg: logg}, nil
}

// Process handles one outbox envelope. Unsupported event types ack silently;
// at-least-once delivery is deduplicated per event id.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventNotificationRequested {
		c.logg.Info(logCtx, "event not handled by notifications consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	key := fmt.Sprintf("consumer:%s:%s", consumerName, envelope.EventID)
	fresh, err := c.dedupe.SetNX(ctx, key, 1, processedTTL)
	if err != nil {
		return fmt.Errorf("dedupe check: %w", err)
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	var payload payloads.NotificationRequestedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		_ = c.dedupe.Del(ctx, key)
		return fmt.Errorf("decode notification payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		c.logg.Warn(logCtx, "notification payload missing user id, dropping")
		return nil
	}

	notifType := payload.Type
	if !notifType.IsValid() {
		notifType = enums.NotificationTypeSystem
	}

	link := fmt.Sprintf("/auctions/%s", payload.AuctionID)
	row := &models.Notification{
		UserID:  payload.UserID,
		Type:    notifType,
		Title:   payload.Title,
		Message: payload.Message,
		Link:    &link,
	}
	if _, err := c.repo.Create(ctx, row); err != nil {
		_ = c.dedupe.Del(ctx, key)
		return fmt.Errorf("store notification: %w", err)
	}

	c.logg.Info(logCtx, "notification stored")
	return nil
}
