package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// Auction is the root aggregate for a time-bounded bidding event over a
// single jewelry item. Registrations and bid events exist only in the
// context of an auction; users are referenced by identifier only.
type Auction struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string             `gorm:"column:name;type:text;not null"`
	Description      string             `gorm:"column:description;type:text"`
	StaffID          uuid.UUID          `gorm:"column:staff_id;type:uuid;not null"`
	JewelryID        uuid.UUID          `gorm:"column:jewelry_id;type:uuid;not null"`
	FirstPrice       decimal.Decimal    `gorm:"column:first_price;type:numeric(19,4);not null"`
	PriceStep        decimal.Decimal    `gorm:"column:price_step;type:numeric(19,4);not null"`
	ParticipationFee decimal.Decimal    `gorm:"column:participation_fee;type:numeric(19,4);not null"`
	Deposit          decimal.Decimal    `gorm:"column:deposit;type:numeric(19,4);not null"`
	StartDate        time.Time          `gorm:"column:start_date;not null"`
	EndDate          time.Time          `gorm:"column:end_date;not null"`
	LastPrice        decimal.Decimal    `gorm:"column:last_price;type:numeric(19,4);not null"`
	State            enums.AuctionState `gorm:"column:state;type:auction_state;not null;default:'open'"`
	SettledAt        *time.Time         `gorm:"column:settled_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
