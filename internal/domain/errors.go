package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrOrderNotFound           = errors.New("order not found")
	ErrStoreUnavailable        = errors.New("order store unavailable")
	ErrSubscriptionDropped     = errors.New("change subscription dropped")
	ErrAcknowledgeWithoutAlert = errors.New("acknowledge called without an active alert")
	ErrValidation              = errors.New("validation failed")
)

// ErrorCodes maps sentinel errors to stable codes used in API responses and logs.
var ErrorCodes = map[error]string{
	ErrInvalidTransition:       "INVALID_TRANSITION",
	ErrInvalidStatus:           "INVALID_STATUS",
	ErrOrderNotFound:           "ORDER_NOT_FOUND",
	ErrStoreUnavailable:        "STORE_UNAVAILABLE",
	ErrSubscriptionDropped:     "SUBSCRIPTION_DROPPED",
	ErrAcknowledgeWithoutAlert: "ACK_WITHOUT_ALERT",
	ErrValidation:              "VALIDATION_FAILED",
}

// Code returns the code of the first sentinel err wraps, or INTERNAL_ERROR.
func Code(err error) string {
	for sentinel, code := range ErrorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "INTERNAL_ERROR"
}

// InvalidTransitionError carries the rejected (current, requested) pair.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.Current, e.Requested)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
