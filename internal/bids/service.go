package bids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/internal/registrations"
	"github.com/gavelpoint/auctionhouse-backend/pkg/config"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// PlaceBidInput carries a registered bidder's price offer.
type PlaceBidInput struct {
	AuctionID uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
}

// Service owns the bid history ledger and bid acceptance.
type Service interface {
	PlaceBid(ctx context.Context, input PlaceBidInput) (*models.BidEvent, error)
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.BidEvent, error)
	BidHistory(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.BidEvent, error)
	UserBids(ctx context.Context, userID uuid.UUID, limit int) ([]models.BidEvent, error)
	CountUserBids(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo      Repository
	regs      registrations.Repository
	tx        txRunner
	outbox    outboxPublisher
	limiter   rateLimiter
	bidding   config.BiddingConfig
	rateLimit config.AuthRateLimitConfig
	now       func() time.Time
}

// NewService builds the bid ledger service. The limiter is optional; when nil
// bids are not rate limited.
func NewService(repo Repository, regs registrations.Repository, tx txRunner, outboxSvc outboxPublisher, limiter rateLimiter, bidding config.BiddingConfig, rateLimit config.AuthRateLimitConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if regs == nil {
		return nil, fmt.Errorf("registrations repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		regs:      regs,
		tx:        tx,
		outbox:    outboxSvc,
		limiter:   limiter,
		bidding:   bidding,
		rateLimit: rateLimit,
		now:       time.Now,
	}, nil
}

// PlaceBid validates and appends a bid. The auction row lock makes the
// check-and-update of last_price linearizable per auction: two concurrent
// bids cannot both pass validation against the same stale price.
func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*models.BidEvent, error) {
	if input.AuctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}

	if s.limiter != nil && s.rateLimit.BidUserLimit > 0 {
		scope := fmt.Sprintf("bid:%s", input.UserID)
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, scope, int64(s.rateLimit.BidUserLimit), s.rateLimit.BidWindow)
		if err == nil && !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many bids, slow down")
		}
	}

	var created *models.BidEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		regs := s.regs.WithTx(tx)

		auction, err := repo.FindAuctionForUpdate(ctx, input.AuctionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auction")
		}

		now := s.now()
		if auction.State != enums.AuctionStateOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction is not open for bidding")
		}
		if !now.Before(auction.EndDate) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction bidding window has ended")
		}

		if _, err := regs.FindValidRegistration(ctx, input.AuctionID, input.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "bidder holds no valid registration for this auction")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check registration")
		}

		highest, err := repo.HighestBid(ctx, input.AuctionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load highest bid")
		}

		minimum := s.minimumAcceptable(auction, highest)
		if input.Amount.LessThan(minimum) {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("bid must be at least %s", minimum.StringFixed(2)))
		}

		bid := &models.BidEvent{
			AuctionID: input.AuctionID,
			UserID:    input.UserID,
			Amount:    input.Amount,
			BidTime:   now,
		}
		created, err = repo.Append(ctx, bid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append bid")
		}

		if err := repo.UpdateAuctionLastPrice(ctx, input.AuctionID, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last price")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidAccepted,
			AggregateType: enums.AggregateAuction,
			AggregateID:   input.AuctionID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data: payloads.BidAcceptedEvent{
				BidID:     created.ID,
				AuctionID: created.AuctionID,
				UserID:    created.UserID,
				Amount:    created.Amount,
				BidTime:   created.BidTime,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// minimumAcceptable computes the bid floor. Subsequent bids must raise the
// current price by at least the step. The first bid is policy driven: either
// matching the first price is enough, or the step applies from the start.
func (s *service) minimumAcceptable(auction *models.Auction, highest *models.BidEvent) decimal.Decimal {
	if highest == nil {
		if s.bidding.FirstBidPolicy == config.FirstBidFirstPricePlusStep {
			return auction.FirstPrice.Add(auction.PriceStep)
		}
		return auction.FirstPrice
	}
	return highest.Amount.Add(auction.PriceStep)
}

func (s *service) HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.BidEvent, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	bid, err := s.repo.HighestBid(ctx, auctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no bids placed on this auction")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load highest bid")
	}
	return bid, nil
}

func (s *service) BidHistory(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.BidEvent, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	rows, err := s.repo.ListByAuction(ctx, auctionID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}
	return rows, nil
}

func (s *service) UserBids(ctx context.Context, userID uuid.UUID, limit int) ([]models.BidEvent, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user bids")
	}
	return rows, nil
}

func (s *service) CountUserBids(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count user bids")
	}
	return count, nil
}
