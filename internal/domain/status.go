package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusNew       Status = "NEW"
	StatusPrep      Status = "PREP"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ActiveStatuses are the statuses the kitchen still has to work on.
var ActiveStatuses = []Status{StatusNew, StatusPrep, StatusReady}

// ParseStatus accepts only the five known statuses (case-insensitive).
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusNew, StatusPrep, StatusReady, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

// TapMessage is the confirmation shown after the kitchen moves an order into s.
func (s Status) TapMessage() string {
	switch s {
	case StatusPrep:
		return "Order accepted - Now preparing"
	case StatusReady:
		return "Order ready for pickup"
	case StatusCompleted:
		return "Order completed"
	case StatusCancelled:
		return "Order cancelled"
	}
	return "Order updated"
}
