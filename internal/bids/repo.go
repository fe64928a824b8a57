package bids

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
)

// Repository exposes the append-only bid history ledger. It also reads the
// auction row under lock so bid acceptance serializes per auction without
// pulling in the lifecycle package.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, bid *models.BidEvent) (*models.BidEvent, error)
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.BidEvent, error)
	FindAuctionForUpdate(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error)
	UpdateAuctionLastPrice(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error
	ListByAuction(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.BidEvent, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BidEvent, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bid ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, bid *models.BidEvent) (*models.BidEvent, error) {
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return nil, err
	}
	return bid, nil
}

// HighestBid returns the winning candidate: highest amount, earliest
// timestamp on ties.
func (r *repository) HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.BidEvent, error) {
	var bid models.BidEvent
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC").
		Order("bid_time ASC").
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// FindAuctionForUpdate takes a row lock on the auction so concurrent bids
// validate against the committed price, not a stale one.
func (r *repository) FindAuctionForUpdate(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", auctionID).
		First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *repository) UpdateAuctionLastPrice(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", auctionID).
		Update("last_price", amount).Error
}

func (r *repository) ListByAuction(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.BidEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.BidEvent
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("bid_time DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BidEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.BidEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("bid_time DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BidEvent{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
