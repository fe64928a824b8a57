package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/gavelpoint/auctionhouse-backend/internal/auctions"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

const auctionCloseBatchSize = 100

type expiredAuctionReader interface {
	ListOpenPastEndDate(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
}

type auctionCloser interface {
	CloseAuction(ctx context.Context, input auctions.CloseAuctionInput) (*auctions.CloseResult, error)
}

// AuctionCloseJobParams configure the expired auction sweeper.
type AuctionCloseJobParams struct {
	Logger  *logger.Logger
	Reader  expiredAuctionReader
	Closer  auctionCloser
	Batch   int
	NowFunc func() time.Time
}

type auctionCloseJob struct {
	logg   *logger.Logger
	reader expiredAuctionReader
	closer auctionCloser
	batch  int
	now    func() time.Time
}

// NewAuctionCloseJob builds the cron job that sweeps auctions past their end
// date into the closed state. Closing is idempotent, so overlap with a staff
// close is harmless.
func NewAuctionCloseJob(params AuctionCloseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("auction reader required")
	}
	if params.Closer == nil {
		return nil, fmt.Errorf("auction closer required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = auctionCloseBatchSize
	}
	now := params.NowFunc
	if now == nil {
		now = time.Now
	}
	return &auctionCloseJob{
		logg:   params.Logger,
		reader: params.Reader,
		closer: params.Closer,
		batch:  batch,
		now:    now,
	}, nil
}

func (j *auctionCloseJob) Name() string {
	return "auction-close"
}

// Run closes every expired open auction. One failing auction does not stop
// the sweep; failures are aggregated and reported together.
func (j *auctionCloseJob) Run(ctx context.Context) error {
	expired, err := j.reader.ListOpenPastEndDate(ctx, j.now(), j.batch)
	if err != nil {
		return fmt.Errorf("list expired auctions: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	var errs error
	closed := 0
	for _, auction := range expired {
		result, err := j.closer.CloseAuction(ctx, auctions.CloseAuctionInput{
			AuctionID: auction.ID,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close auction %s: %w", auction.ID, err))
			continue
		}
		if result.AlreadyClosed {
			continue
		}
		closed++
		logCtx := j.logg.WithAuctionID(ctx, auction.ID.String())
		if result.NoWinner {
			j.logg.Info(logCtx, "expired auction closed with no bids")
			continue
		}
		if result.Transaction != nil {
			logCtx = j.logg.WithUserID(logCtx, result.Transaction.UserID.String())
		}
		j.logg.Info(logCtx, "expired auction closed and settled")
	}

	logCtx := j.logg.WithField(ctx, "expired", len(expired))
	logCtx = j.logg.WithField(logCtx, "closed", closed)
	j.logg.Info(logCtx, "auction close sweep finished")
	return errs
}
