package registrations

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

// Repository exposes persistence for the registration ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reg *models.AuctionRegistration) (*models.AuctionRegistration, error)
	FindAuctionForUpdate(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error)
	FindValidRegistration(ctx context.Context, auctionID, userID uuid.UUID) (*models.AuctionRegistration, error)
	CountValidParticipants(ctx context.Context, auctionID uuid.UUID) (int64, error)
	SumRegistrationFees(ctx context.Context) (decimal.Decimal, error)
	CountDistinctUsersRegisteredInPeriod(ctx context.Context, month time.Month, year int) (int64, error)
	ListByUser(ctx context.Context, opts UserListQuery) ([]RegistrationWithAuction, error)
	ListValidByAuction(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.AuctionRegistration, error)
}

// UserListQuery filters a user's registration history.
type UserListQuery struct {
	UserID       uuid.UUID
	NameContains string
	Limit        int
}

// RegistrationWithAuction pairs a ledger row with its auction name for
// member-facing listings.
type RegistrationWithAuction struct {
	models.AuctionRegistration
	AuctionName string `gorm:"column:auction_name"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a registrations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reg *models.AuctionRegistration) (*models.AuctionRegistration, error) {
	if err := r.db.WithContext(ctx).Create(reg).Error; err != nil {
		return nil, err
	}
	return reg, nil
}

// FindAuctionForUpdate locks the auction row so registration serializes
// against close and against duplicate sign-ups for the same user.
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

func (r *repository) FindValidRegistration(ctx context.Context, auctionID, userID uuid.UUID) (*models.AuctionRegistration, error) {
	var reg models.AuctionRegistration
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Where("user_id = ?", userID).
		Where("state = ?", enums.RegistrationStateValid).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) CountValidParticipants(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AuctionRegistration{}).
		Where("auction_id = ?", auctionID).
		Where("state = ?", enums.RegistrationStateValid).
		Count(&count).Error
	return count, err
}

func (r *repository) SumRegistrationFees(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.AuctionRegistration{}).
		Select("SUM(registration_fee)").
		Where("state = ?", enums.RegistrationStateValid).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) CountDistinctUsersRegisteredInPeriod(ctx context.Context, month time.Month, year int) (int64, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AuctionRegistration{}).
		Distinct("user_id").
		Where("registration_date >= ? AND registration_date < ?", start, end).
		Count(&count).Error
	return count, err
}

func (r *repository) ListByUser(ctx context.Context, opts UserListQuery) ([]RegistrationWithAuction, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Model(&models.AuctionRegistration{}).
		Select("auction_registrations.*, auctions.name AS auction_name").
		Joins("JOIN auctions ON auctions.id = auction_registrations.auction_id").
		Where("auction_registrations.user_id = ?", opts.UserID)

	if search := strings.TrimSpace(opts.NameContains); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(auctions.name) LIKE ?", pattern)
	}

	var rows []RegistrationWithAuction
	err := query.
		Order("auction_registrations.registration_date DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListValidByAuction(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.AuctionRegistration, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var rows []models.AuctionRegistration
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Where("state = ?", enums.RegistrationStateValid).
		Order("registration_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
