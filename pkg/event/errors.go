package event

import "errors"

var (
	// ErrUnknownEventType is returned when an event carries an unrecognized type.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrMissingEntityID is returned when an event has no entity reference.
	ErrMissingEntityID = errors.New("event entity id is required")
)
