package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// AuctionRegistration records a user's fee-paying entry into an auction's
// bidding pool. At most one valid registration exists per (auction, user)
// pair, enforced by a partial unique index plus an application-level check.
type AuctionRegistration struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuctionID        uuid.UUID               `gorm:"column:auction_id;type:uuid;not null"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	RegistrationFee  decimal.Decimal         `gorm:"column:registration_fee;type:numeric(19,4);not null"`
	RegistrationDate time.Time               `gorm:"column:registration_date;not null"`
	State            enums.RegistrationState `gorm:"column:state;type:registration_state;not null;default:'valid'"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
