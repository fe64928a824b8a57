package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// Repository exposes transaction persistence for the settlement engine.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByAuctionAndType(ctx context.Context, auctionID uuid.UUID, txnType enums.TransactionType) (*models.Transaction, error)
	UpdateState(ctx context.Context, id uuid.UUID, state enums.TransactionState) error
	SetPaymentMethod(ctx context.Context, id uuid.UUID, method enums.PaymentMethod) error
	List(ctx context.Context, opts ListQuery) ([]models.Transaction, error)
	SumSpendByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	TopSpenders(ctx context.Context, limit int) ([]SpenderRow, error)
	SumFeesIncurred(ctx context.Context) (decimal.Decimal, error)
	UserDashboard(ctx context.Context, userID uuid.UUID) (*DashboardRow, error)
}

// ListQuery filters transaction listings.
type ListQuery struct {
	Type   *enums.TransactionType
	State  *enums.TransactionState
	UserID *uuid.UUID
	Limit  int
}

// DashboardRow summarizes one user's marketplace activity.
type DashboardRow struct {
	RegistrationCount int64
	TotalSpend        decimal.Decimal
	AuctionsWon       int64
	TotalBids         int64
}

// SpenderRow is one entry of the top-spender ranking.
type SpenderRow struct {
	UserID     uuid.UUID       `gorm:"column:user_id"`
	TotalSpend decimal.Decimal `gorm:"column:total_spend"`
	Won        int64           `gorm:"column:won"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByAuctionAndType(ctx context.Context, auctionID uuid.UUID, txnType enums.TransactionType) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Where("type = ?", txnType).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, state enums.TransactionState) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *repository) SetPaymentMethod(ctx context.Context, id uuid.UUID, method enums.PaymentMethod) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("payment_method", method).Error
}

func (r *repository) List(ctx context.Context, opts ListQuery) ([]models.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&models.Transaction{})
	if opts.Type != nil {
		query = query.Where("type = ?", *opts.Type)
	}
	if opts.State != nil {
		query = query.Where("state = ?", *opts.State)
	}
	if opts.UserID != nil {
		query = query.Where("user_id = ?", *opts.UserID)
	}

	var rows []models.Transaction
	err := query.Order("create_date DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// SumSpendByUser totals a user's winning transactions. Cancelled and
// defaulted settlements do not count as spend.
func (r *repository) SumSpendByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("SUM(total_price)").
		Where("user_id = ?", userID).
		Where("type = ?", enums.TransactionTypePaymentToWinner).
		Where("state IN ?", spendStates()).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// TopSpenders ranks users by summed total_price descending, user id ascending
// on ties so the ordering is deterministic.
func (r *repository) TopSpenders(ctx context.Context, limit int) ([]SpenderRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []SpenderRow
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("user_id, SUM(total_price) AS total_spend, COUNT(*) AS won").
		Where("type = ?", enums.TransactionTypePaymentToWinner).
		Where("state IN ?", spendStates()).
		Group("user_id").
		Order("total_spend DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) SumFeesIncurred(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("SUM(fees_incurred)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// UserDashboard aggregates registrations, bids, and winning settlements for a
// single user.
func (r *repository) UserDashboard(ctx context.Context, userID uuid.UUID) (*DashboardRow, error) {
	var row DashboardRow

	err := r.db.WithContext(ctx).
		Model(&models.AuctionRegistration{}).
		Where("user_id = ?", userID).
		Where("state = ?", enums.RegistrationStateValid).
		Count(&row.RegistrationCount).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.BidEvent{}).
		Where("user_id = ?", userID).
		Count(&row.TotalBids).Error
	if err != nil {
		return nil, err
	}

	var winnings struct {
		TotalSpend decimal.NullDecimal `gorm:"column:total_spend"`
		Won        int64               `gorm:"column:won"`
	}
	err = r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("SUM(total_price) AS total_spend, COUNT(*) AS won").
		Where("user_id = ?", userID).
		Where("type = ?", enums.TransactionTypePaymentToWinner).
		Where("state IN ?", spendStates()).
		Scan(&winnings).Error
	if err != nil {
		return nil, err
	}
	if winnings.TotalSpend.Valid {
		row.TotalSpend = winnings.TotalSpend.Decimal
	} else {
		row.TotalSpend = decimal.Zero
	}
	row.AuctionsWon = winnings.Won

	return &row, nil
}

func spendStates() []enums.TransactionState {
	return []enums.TransactionState{
		enums.TransactionStatePending,
		enums.TransactionStatePaid,
		enums.TransactionStateHandover,
	}
}
