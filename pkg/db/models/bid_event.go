package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidEvent is an append-only record of an accepted bid. Rows are written
// once and never updated.
type BidEvent struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuctionID uuid.UUID       `gorm:"column:auction_id;type:uuid;not null;index"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(19,4);not null"`
	BidTime   time.Time       `gorm:"column:bid_time;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
