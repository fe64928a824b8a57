package enums

import "fmt"

// RegistrationState marks whether an auction registration still grants
// bidding rights.
type RegistrationState string

const (
	RegistrationStateValid   RegistrationState = "valid"
	RegistrationStateInvalid RegistrationState = "invalid"
)

var validRegistrationStates = []RegistrationState{
	RegistrationStateValid,
	RegistrationStateInvalid,
}

// String implements fmt.Stringer.
func (r RegistrationState) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RegistrationState.
func (r RegistrationState) IsValid() bool {
	for _, candidate := range validRegistrationStates {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRegistrationState converts raw input into a RegistrationState.
func ParseRegistrationState(value string) (RegistrationState, error) {
	for _, candidate := range validRegistrationStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid registration state %q", value)
}
