package dispatch

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrNotFound is returned when a notification does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrAlreadyExists is returned when enqueueing a duplicate id.
	ErrAlreadyExists = errors.New("notification already exists")

	// ErrNotProcessing is returned when a completion or failure is reported
	// for a notification that is not in the processing state.
	ErrNotProcessing = errors.New("notification is not processing")

	// ErrNoAdapter is returned when no adapter serves a channel.
	ErrNoAdapter = errors.New("no adapter registered for channel")

	// ErrNoAdapters is returned when a worker is started without adapters.
	ErrNoAdapters = errors.New("no channel adapters registered")
)
