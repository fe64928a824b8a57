package enums

import "fmt"

// TransactionState tracks the settlement lifecycle of a transaction.
type TransactionState string

const (
	TransactionStatePending   TransactionState = "pending"
	TransactionStatePaid      TransactionState = "paid"
	TransactionStateHandover  TransactionState = "handover"
	TransactionStateDefaulted TransactionState = "defaulted"
	TransactionStateCancelled TransactionState = "cancelled"
)

var validTransactionStates = []TransactionState{
	TransactionStatePending,
	TransactionStatePaid,
	TransactionStateHandover,
	TransactionStateDefaulted,
	TransactionStateCancelled,
}

// transactionTransitions is the closed set of allowed state edges. A
// transaction must be paid before handover or default; a pending
// transaction can only be paid or cancelled.
var transactionTransitions = map[TransactionState][]TransactionState{
	TransactionStatePending: {TransactionStatePaid, TransactionStateCancelled},
	TransactionStatePaid:    {TransactionStateHandover, TransactionStateDefaulted},
}

// String implements fmt.Stringer.
func (t TransactionState) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionState.
func (t TransactionState) IsValid() bool {
	for _, candidate := range validTransactionStates {
		if candidate == t {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge from the receiver to next is allowed.
func (t TransactionState) CanTransitionTo(next TransactionState) bool {
	for _, candidate := range transactionTransitions[t] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseTransactionState converts raw input into a TransactionState.
func ParseTransactionState(value string) (TransactionState, error) {
	for _, candidate := range validTransactionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction state %q", value)
}
