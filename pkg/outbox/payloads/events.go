package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// AuctionCreatedEvent signals a newly registered auction lot.
type AuctionCreatedEvent struct {
	AuctionID  uuid.UUID       `json:"auction_id"`
	JewelryID  uuid.UUID       `json:"jewelry_id"`
	StaffID    uuid.UUID       `json:"staff_id"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	FirstPrice decimal.Decimal `json:"first_price"`
}

// AuctionClosedEvent is emitted when bidding ends with a winner.
type AuctionClosedEvent struct {
	AuctionID     uuid.UUID       `json:"auction_id"`
	WinnerID      uuid.UUID       `json:"winner_id"`
	WinningAmount decimal.Decimal `json:"winning_amount"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	ClosedAt      time.Time       `json:"closed_at"`
}

// WinnerDeterminedEvent identifies the highest bidder once bidding ends.
type WinnerDeterminedEvent struct {
	AuctionID     uuid.UUID       `json:"auction_id"`
	WinnerID      uuid.UUID       `json:"winner_id"`
	WinningAmount decimal.Decimal `json:"winning_amount"`
	WinningBidID  uuid.UUID       `json:"winning_bid_id"`
}

// AuctionClosedNoWinnerEvent reports a close that attracted no bids.
type AuctionClosedNoWinnerEvent struct {
	AuctionID uuid.UUID `json:"auction_id"`
	ClosedAt  time.Time `json:"closed_at"`
}

// AuctionDeletedEvent is emitted on soft deletion.
type AuctionDeletedEvent struct {
	AuctionID uuid.UUID `json:"auction_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// RegistrationCreatedEvent records a participant joining an auction.
type RegistrationCreatedEvent struct {
	RegistrationID  uuid.UUID       `json:"registration_id"`
	AuctionID       uuid.UUID       `json:"auction_id"`
	UserID          uuid.UUID       `json:"user_id"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
}

// BidAcceptedEvent reports a bid that passed validation and raised the price.
type BidAcceptedEvent struct {
	BidID     uuid.UUID       `json:"bid_id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	BidTime   time.Time       `json:"bid_time"`
}

// TransactionStateChangedEvent surfaces payment lifecycle transitions.
type TransactionStateChangedEvent struct {
	TransactionID uuid.UUID              `json:"transaction_id"`
	AuctionID     uuid.UUID              `json:"auction_id"`
	UserID        uuid.UUID              `json:"user_id"`
	FromState     enums.TransactionState `json:"from_state"`
	ToState       enums.TransactionState `json:"to_state"`
}

// NotificationRequestedEvent tells the notification consumer to alert a user.
type NotificationRequestedEvent struct {
	UserID    uuid.UUID              `json:"user_id"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
}
