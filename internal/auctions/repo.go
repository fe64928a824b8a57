package auctions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// Repository exposes auction persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, auction *models.Auction) (*models.Auction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	FindActiveByJewelryID(ctx context.Context, jewelryID uuid.UUID) (*models.Auction, error)
	UpdateState(ctx context.Context, id uuid.UUID, state enums.AuctionState) error
	MarkClosed(ctx context.Context, id uuid.UUID, settledAt time.Time) error
	UpdateLastPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	List(ctx context.Context, opts listQuery) ([]models.Auction, error)
	ListTopByFirstPrice(ctx context.Context, states []enums.AuctionState, limit int) ([]models.Auction, error)
	ListOpenPastEndDate(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an auctions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, auction *models.Auction) (*models.Auction, error) {
	if err := r.db.WithContext(ctx).Create(auction).Error; err != nil {
		return nil, err
	}
	return auction, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// FindByIDForUpdate takes a row lock so concurrent bids and closes serialize
// on the auction row. Callers must hold an open transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *repository) FindActiveByJewelryID(ctx context.Context, jewelryID uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Where("jewelry_id = ?", jewelryID).
		Where("state <> ?", enums.AuctionStateDeleted).
		First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, state enums.AuctionState) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *repository) MarkClosed(ctx context.Context, id uuid.UUID, settledAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":      enums.AuctionStateClosed,
			"settled_at": settledAt,
		}).Error
}

func (r *repository) UpdateLastPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Update("last_price", price).Error
}

func (r *repository) List(ctx context.Context, opts listQuery) ([]models.Auction, error) {
	query := r.db.WithContext(ctx).Model(&models.Auction{})

	if len(opts.states) > 0 {
		query = query.Where("auctions.state IN ?", opts.states)
	}
	if opts.staffID != nil {
		query = query.Where("auctions.staff_id = ?", *opts.staffID)
	}
	if opts.jewelryID != nil {
		query = query.Where("auctions.jewelry_id = ?", *opts.jewelryID)
	}
	if category := strings.TrimSpace(opts.category); category != "" {
		query = query.
			Joins("JOIN jewelries ON jewelries.id = auctions.jewelry_id").
			Where("jewelries.category = ?", category)
	}
	if search := strings.TrimSpace(opts.nameContains); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(auctions.name) LIKE ?", pattern)
	}
	if opts.endingAfter != nil {
		query = query.Where("auctions.end_date >= ?", *opts.endingAfter)
	}
	if opts.endingBefore != nil {
		query = query.Where("auctions.end_date <= ?", *opts.endingBefore)
	}
	if opts.cursor != nil {
		query = query.Where("(auctions.created_at < ?) OR (auctions.created_at = ? AND auctions.id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("auctions.created_at DESC").Order("auctions.id DESC").Limit(opts.limit)

	var rows []models.Auction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTopByFirstPrice returns the highest-valued lots for featured listings.
func (r *repository) ListTopByFirstPrice(ctx context.Context, states []enums.AuctionState, limit int) ([]models.Auction, error) {
	query := r.db.WithContext(ctx).Model(&models.Auction{})
	if len(states) > 0 {
		query = query.Where("state IN ?", states)
	}
	var rows []models.Auction
	err := query.
		Order("first_price DESC").Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListOpenPastEndDate feeds the scheduler that sweeps expired auctions.
func (r *repository) ListOpenPastEndDate(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Auction
	err := r.db.WithContext(ctx).
		Where("state = ?", enums.AuctionStateOpen).
		Where("end_date <= ?", now).
		Order("end_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
