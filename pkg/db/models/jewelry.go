package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// Jewelry mirrors the consigned item catalog. Items are attached to at most
// one non-deleted auction at a time, enforced by a partial unique index on
// the auctions table.
type Jewelry struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string             `gorm:"column:name;type:text;not null"`
	Description string             `gorm:"column:description;type:text"`
	Category    string             `gorm:"column:category;type:text;not null"`
	OwnerID     uuid.UUID          `gorm:"column:owner_id;type:uuid;not null"`
	BuyNowPrice decimal.Decimal    `gorm:"column:buy_now_price;type:numeric(19,4);not null"`
	State       enums.JewelryState `gorm:"column:state;type:jewelry_state;not null;default:'approving'"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
