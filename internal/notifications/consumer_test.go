package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox/payloads"
	"github.com/gavelpoint/auctionhouse-backend/pkg/pagination"
)

type stubNotifRepo struct {
	created   []models.Notification
	createErr error
}

func (s *stubNotifRepo) Create(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	notification.ID = uuid.New()
	s.created = append(s.created, *notification)
	return notification, nil
}

func (s *stubNotifRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubNotifRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, readAt time.Time) (MarkReadResult, error) {
	return MarkReadResult{}, nil
}

func (s *stubNotifRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error) {
	return 0, nil
}

type stubDedupe struct {
	seen map[string]bool
	dels []string
}

func (s *stubDedupe) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubDedupe) Del(ctx context.Context, keys ...string) error {
	s.dels = append(s.dels, keys...)
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func notificationEnvelope(t *testing.T, payload payloads.NotificationRequestedEvent) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestConsumerStoresNotification(t *testing.T) {
	repo := &stubNotifRepo{}
	consumer, err := NewConsumer(repo, &stubDedupe{}, testLogger())
	if err != nil {
		t.Fatalf("build consumer: %v", err)
	}

	userID := uuid.New()
	auctionID := uuid.New()
	envelope := notificationEnvelope(t, payloads.NotificationRequestedEvent{
		UserID:    userID,
		AuctionID: auctionID,
		Type:      enums.NotificationTypeAuctionWon,
		Title:     "You won the auction",
		Message:   "Your bid of 120.00 won Sapphire Pendant Lot 9. Payment is due.",
	})

	if err := consumer.Process(context.Background(), enums.EventNotificationRequested, envelope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one stored notification, got %d", len(repo.created))
	}
	row := repo.created[0]
	if row.UserID != userID || row.Type != enums.NotificationTypeAuctionWon {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.Link == nil || *row.Link != "/auctions/"+auctionID.String() {
		t.Fatalf("unexpected link %+v", row.Link)
	}
}

func TestConsumerDeduplicatesByEventID(t *testing.T) {
	repo := &stubNotifRepo{}
	consumer, err := NewConsumer(repo, &stubDedupe{}, testLogger())
	if err != nil {
		t.Fatalf("build consumer: %v", err)
	}

	envelope := notificationEnvelope(t, payloads.NotificationRequestedEvent{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeAuctionWon,
		Title:   "You won the auction",
		Message: "Payment is due.",
	})

	if err := consumer.Process(context.Background(), enums.EventNotificationRequested, envelope); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := consumer.Process(context.Background(), enums.EventNotificationRequested, envelope); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("redelivery must not store twice, got %d rows", len(repo.created))
	}
}

func TestConsumerIgnoresOtherEventTypes(t *testing.T) {
	repo := &stubNotifRepo{}
	consumer, err := NewConsumer(repo, &stubDedupe{}, testLogger())
	if err != nil {
		t.Fatalf("build consumer: %v", err)
	}

	envelope := notificationEnvelope(t, payloads.NotificationRequestedEvent{UserID: uuid.New()})
	if err := consumer.Process(context.Background(), enums.EventAuctionClosed, envelope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("foreign event types must not create rows")
	}
}

func TestConsumerReleasesDedupeKeyOnStoreFailure(t *testing.T) {
	repo := &stubNotifRepo{createErr: errors.New("db down")}
	dedupe := &stubDedupe{}
	consumer, err := NewConsumer(repo, dedupe, testLogger())
	if err != nil {
		t.Fatalf("build consumer: %v", err)
	}

	envelope := notificationEnvelope(t, payloads.NotificationRequestedEvent{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeAuctionWon,
		Title:   "You won the auction",
		Message: "Payment is due.",
	})

	if err := consumer.Process(context.Background(), enums.EventNotificationRequested, envelope); err == nil {
		t.Fatal("store failure must surface for redelivery")
	}
	if len(dedupe.dels) != 1 {
		t.Fatal("dedupe key must be released so redelivery can retry")
	}

	repo.createErr = nil
	if err := consumer.Process(context.Background(), enums.EventNotificationRequested, envelope); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected a stored row after retry, got %d", len(repo.created))
	}
}
