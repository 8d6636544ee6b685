package booking

import "fmt"

// QuoteStatus represents the state of a submitted quote in the ledger.
type QuoteStatus string

const (
	QuoteStatusQuoted          QuoteStatus = "quoted"
	QuoteStatusCheckoutStarted QuoteStatus = "checkout_started"
	QuoteStatusBooked          QuoteStatus = "booked"
)

// validQuoteTransitions defines the state machine for quote status transitions.
// A quote can be revised or re-sent to checkout until it is booked.
var validQuoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusQuoted:          {QuoteStatusQuoted, QuoteStatusCheckoutStarted},
	QuoteStatusCheckoutStarted: {QuoteStatusQuoted, QuoteStatusCheckoutStarted, QuoteStatusBooked},
	QuoteStatusBooked:          {},
}

// IsValid returns true if the status is a recognized quote status.
func (s QuoteStatus) IsValid() bool {
	_, exists := validQuoteTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	for _, t := range validQuoteTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s QuoteStatus) IsTerminal() bool {
	return len(validQuoteTransitions[s]) == 0
}

// String returns the string representation of the status.
func (s QuoteStatus) String() string {
	return string(s)
}

// ParseQuoteStatus converts a string to a QuoteStatus, returning an error if invalid.
func ParseQuoteStatus(s string) (QuoteStatus, error) {
	status := QuoteStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid quote status: %s", s)
	}
	return status, nil
}
