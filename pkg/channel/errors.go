package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrSendFailed is the generic transient delivery failure.
	ErrSendFailed = errors.New("failed to send message")

	// ErrMissingAddress is returned when a message has no delivery address.
	ErrMissingAddress = errors.New("message has no delivery address")

	// ErrInvalidConfig is returned when an adapter is misconfigured.
	ErrInvalidConfig = errors.New("invalid adapter config")
)

// PermanentError marks a delivery failure that retrying cannot fix. The
// dispatcher moves the notification straight to failed when it sees one.
type PermanentError struct {
	Code string
	Err  error
}

func (e *PermanentError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("permanent delivery failure (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("permanent delivery failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a permanent delivery failure.
func Permanent(code string, err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Code: code, Err: err}
}

// IsPermanent reports whether err is a permanent delivery failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
