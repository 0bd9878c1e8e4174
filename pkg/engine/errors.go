package engine

import "errors"

var (
	// ErrMissingDependency is returned by New when a required collaborator
	// is nil.
	ErrMissingDependency = errors.New("missing engine dependency")

	// ErrNotStarted is returned when the engine is used before Start.
	ErrNotStarted = errors.New("engine not started")

	// ErrBackpressure is returned by FireEvent when the ingest channel
	// stays full past the producer patience window.
	ErrBackpressure = errors.New("event channel full")

	// ErrRecipientSkipped is returned by SendAdHoc when the preference
	// filter declined the send.
	ErrRecipientSkipped = errors.New("recipient preferences skipped the send")

	// ErrNoAddress is returned by SendAdHoc when the recipient has no
	// address on the template's channel.
	ErrNoAddress = errors.New("recipient has no address for channel")
)
