package enums

import "fmt"

// AuctionState tracks the lifecycle of an auction.
type AuctionState string

const (
	AuctionStateOpen    AuctionState = "open"
	AuctionStateClosed  AuctionState = "closed"
	AuctionStateDeleted AuctionState = "deleted"
)

var validAuctionStates = []AuctionState{
	AuctionStateOpen,
	AuctionStateClosed,
	AuctionStateDeleted,
}

// auctionTransitions is the closed set of allowed state edges. DELETED is
// terminal; CLOSED can only move to DELETED.
var auctionTransitions = map[AuctionState][]AuctionState{
	AuctionStateOpen:   {AuctionStateClosed, AuctionStateDeleted},
	AuctionStateClosed: {AuctionStateDeleted},
}

// String implements fmt.Stringer.
func (a AuctionState) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuctionState.
func (a AuctionState) IsValid() bool {
	for _, candidate := range validAuctionStates {
		if candidate == a {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge from the receiver to next is allowed.
func (a AuctionState) CanTransitionTo(next AuctionState) bool {
	for _, candidate := range auctionTransitions[a] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseAuctionState converts raw input into an AuctionState.
func ParseAuctionState(value string) (AuctionState, error) {
	for _, candidate := range validAuctionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid auction state %q", value)
}
