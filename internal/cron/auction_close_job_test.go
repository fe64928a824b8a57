package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gavelpoint/auctionhouse-backend/internal/auctions"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

type fakeExpiredReader struct {
	rows []models.Auction
	err  error
}

func (f *fakeExpiredReader) ListOpenPastEndDate(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeCloser struct {
	results map[uuid.UUID]*auctions.CloseResult
	errs    map[uuid.UUID]error
	calls   []uuid.UUID
}

func (f *fakeCloser) CloseAuction(ctx context.Context, input auctions.CloseAuctionInput) (*auctions.CloseResult, error) {
	f.calls = append(f.calls, input.AuctionID)
	if err, ok := f.errs[input.AuctionID]; ok {
		return nil, err
	}
	if result, ok := f.results[input.AuctionID]; ok {
		return result, nil
	}
	return &auctions.CloseResult{}, nil
}

func newCloseJob(t *testing.T, reader *fakeExpiredReader, closer *fakeCloser, now time.Time) Job {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	job, err := NewAuctionCloseJob(AuctionCloseJobParams{
		Logger:  logg,
		Reader:  reader,
		Closer:  closer,
		NowFunc: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	return job
}

func TestAuctionCloseJobSweepsExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	first := models.Auction{ID: uuid.New()}
	second := models.Auction{ID: uuid.New()}
	reader := &fakeExpiredReader{rows: []models.Auction{first, second}}
	closer := &fakeCloser{
		results: map[uuid.UUID]*auctions.CloseResult{
			first.ID:  {Transaction: &models.Transaction{ID: uuid.New(), UserID: uuid.New()}},
			second.ID: {NoWinner: true},
		},
	}
	job := newCloseJob(t, reader, closer, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(closer.calls) != 2 {
		t.Fatalf("expected both auctions closed, got %d calls", len(closer.calls))
	}
}

func TestAuctionCloseJobContinuesPastFailures(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	failing := models.Auction{ID: uuid.New()}
	healthy := models.Auction{ID: uuid.New()}
	reader := &fakeExpiredReader{rows: []models.Auction{failing, healthy}}
	closer := &fakeCloser{
		errs: map[uuid.UUID]error{failing.ID: errors.New("settlement unavailable")},
		results: map[uuid.UUID]*auctions.CloseResult{
			healthy.ID: {NoWinner: true},
		},
	}
	job := newCloseJob(t, reader, closer, now)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected the aggregated failure to surface")
	}
	if len(closer.calls) != 2 {
		t.Fatalf("one failure must not stop the sweep, got %d calls", len(closer.calls))
	}
}

func TestAuctionCloseJobSkipsAlreadyClosed(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	raced := models.Auction{ID: uuid.New()}
	reader := &fakeExpiredReader{rows: []models.Auction{raced}}
	closer := &fakeCloser{
		results: map[uuid.UUID]*auctions.CloseResult{
			raced.ID: {AlreadyClosed: true},
		},
	}
	job := newCloseJob(t, reader, closer, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("a close raced by staff is not an error: %v", err)
	}
}

func TestAuctionCloseJobEmptySweep(t *testing.T) {
	job := newCloseJob(t, &fakeExpiredReader{}, &fakeCloser{}, time.Now().UTC())
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
