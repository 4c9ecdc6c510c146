package domain

import "time"

var nextStatus = map[Status]Status{
	StatusNew:   StatusPrep,
	StatusPrep:  StatusReady,
	StatusReady: StatusCompleted,
}

// Transition is the result of a successful Advance. Persisting it is up to the caller.
type Transition struct {
	OrderID   string
	From      Status
	To        Status
	UpdatedAt time.Time
}

// NextStatus returns the immediate successor of s in the forward chain.
func NextStatus(s Status) (Status, bool) {
	next, ok := nextStatus[s]
	return next, ok
}

// CanTransition checks if from may move to requested.
func CanTransition(from, requested Status) bool {
	if from.IsTerminal() {
		return false
	}
	if requested == StatusCancelled {
		return true
	}
	next, ok := nextStatus[from]
	return ok && next == requested
}

// Advance validates moving order to requested. The order is never modified;
// on failure the error is an *InvalidTransitionError.
func Advance(order *Order, requested Status, now time.Time) (Transition, error) {
	if !CanTransition(order.Status, requested) {
		return Transition{}, &InvalidTransitionError{Current: order.Status, Requested: requested}
	}

	updatedAt := now.Truncate(TimestampPrecision)
	// updated_at must move forward even when clocks disagree.
	if !updatedAt.After(order.UpdatedAt) {
		updatedAt = order.UpdatedAt.Add(TimestampPrecision)
	}

	return Transition{
		OrderID:   order.ID,
		From:      order.Status,
		To:        requested,
		UpdatedAt: updatedAt,
	}, nil
}

// AdvanceNext requests the immediate successor, as the kitchen tap does.
func AdvanceNext(order *Order, now time.Time) (Transition, error) {
	next, ok := NextStatus(order.Status)
	if !ok {
		return Transition{}, &InvalidTransitionError{Current: order.Status, Requested: order.Status}
	}
	return Advance(order, next, now)
}

// Apply returns a copy of order with the transition applied.
func (t Transition) Apply(order *Order) *Order {
	c := order.Clone()
	c.Status = t.To
	c.UpdatedAt = t.UpdatedAt
	return c
}
