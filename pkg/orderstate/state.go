// Package orderstate defines the order status values and the legal
// transitions between them.
package orderstate

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// transitions holds the full set of legal moves. Anything absent is illegal.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusRefunded},
	StatusShipped: {StatusDelivered},
}

// TransitionError reports an attempted illegal move between two statuses.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid order state transition: %s -> %s", e.From, e.To)
}

// Parse validates a raw status string.
func Parse(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions leave s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns nil when from -> to is legal, otherwise a
// *TransitionError describing the rejected move.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// ApplyPaid decides what a payment confirmation does to an order in the
// given status. It returns true when the order must move to paid, false with
// a nil error when the order is already paid (a repeat confirmation is
// success, not conflict), and a *TransitionError for every other status.
func ApplyPaid(current Status) (bool, error) {
	switch current {
	case StatusPending:
		return true, nil
	case StatusPaid:
		return false, nil
	default:
		return false, &TransitionError{From: current, To: StatusPaid}
	}
}
