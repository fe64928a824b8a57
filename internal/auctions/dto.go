package auctions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgpagination "github.com/gavelpoint/auctionhouse-backend/pkg/pagination"
)

// CreateAuctionInput carries the staff-provided lot definition.
type CreateAuctionInput struct {
	Name             string
	Description      string
	StaffID          uuid.UUID
	JewelryID        uuid.UUID
	FirstPrice       decimal.Decimal
	PriceStep        decimal.Decimal
	ParticipationFee decimal.Decimal
	Deposit          decimal.Decimal
	StartDate        time.Time
	EndDate          time.Time
}

// CloseAuctionInput identifies the close request and who asked for it.
type CloseAuctionInput struct {
	AuctionID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.UserRole
	// Override lets staff close before end_date is reached.
	Override bool
}

// ListParams filters auction listings.
type ListParams struct {
	States         []enums.AuctionState
	StaffID        *uuid.UUID
	JewelryID      *uuid.UUID
	Category       string
	NameContains   string
	EndingAfter    *time.Time
	EndingBefore   *time.Time
	IncludeDeleted bool
	Limit          int
	Cursor         string
}

// ListResult is a cursor-paginated page of auctions.
type ListResult struct {
	Items  []models.Auction
	Cursor string
}

// CloseResult reports the outcome of a close, including settlement output.
type CloseResult struct {
	Auction     *models.Auction
	Transaction *models.Transaction
	// AlreadyClosed marks the idempotent path where a prior close won.
	AlreadyClosed bool
	NoWinner      bool
}

type listQuery struct {
	states       []enums.AuctionState
	staffID      *uuid.UUID
	jewelryID    *uuid.UUID
	category     string
	nameContains string
	endingAfter  *time.Time
	endingBefore *time.Time
	limit        int
	cursor       *pkgpagination.Cursor
}
