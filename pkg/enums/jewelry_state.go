package enums

import "fmt"

// JewelryState tracks where a jewelry item sits in the consignment flow.
type JewelryState string

const (
	JewelryStateApproving JewelryState = "approving"
	JewelryStateActive    JewelryState = "active"
	JewelryStateAuctioned JewelryState = "auctioned"
	JewelryStateSold      JewelryState = "sold"
	JewelryStateHidden    JewelryState = "hidden"
)

var validJewelryStates = []JewelryState{
	JewelryStateApproving,
	JewelryStateActive,
	JewelryStateAuctioned,
	JewelryStateSold,
	JewelryStateHidden,
}

// String implements fmt.Stringer.
func (j JewelryState) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JewelryState.
func (j JewelryState) IsValid() bool {
	for _, candidate := range validJewelryStates {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJewelryState converts raw input into a JewelryState.
func ParseJewelryState(value string) (JewelryState, error) {
	for _, candidate := range validJewelryStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid jewelry state %q", value)
}
