package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable = errors.New("event store unavailable")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownDimension = errors.New("unknown dimension")
)

// InvalidEventError describes a malformed raw event
type InvalidEventError struct {
	EventID string
	Reason  string
}

func (e *InvalidEventError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("invalid event: %s", e.Reason)
	}
	return fmt.Sprintf("invalid event %s: %s", e.EventID, e.Reason)
}

func (e *InvalidEventError) Is(target error) bool {
	return target == ErrInvalidEvent
}

// StoreError wraps a failure of the underlying store
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
