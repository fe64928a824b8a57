package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// Transaction is the financial record tracking payment for a settled
// auction. A unique index on (auction_id, type) guarantees a single
// payment-to-winner transaction per auction.
type Transaction struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuctionID     uuid.UUID              `gorm:"column:auction_id;type:uuid;not null"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Type          enums.TransactionType  `gorm:"column:type;type:transaction_type;not null"`
	State         enums.TransactionState `gorm:"column:state;type:transaction_state;not null;default:'pending'"`
	TotalPrice    decimal.Decimal        `gorm:"column:total_price;type:numeric(19,4);not null"`
	FeesIncurred  decimal.Decimal        `gorm:"column:fees_incurred;type:numeric(19,4);not null"`
	PaymentMethod *enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method"`
	CreateDate    time.Time              `gorm:"column:create_date;not null"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
