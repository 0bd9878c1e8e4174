package template

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a template does not exist in the store.
	ErrNotFound = errors.New("template not found")

	// ErrAlreadyExists is returned when creating a template with a taken id.
	ErrAlreadyExists = errors.New("template already exists")

	// ErrInvalidChannel is returned for an unknown delivery channel.
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrInvalidType is returned for an unknown notification type.
	ErrInvalidType = errors.New("invalid notification type")

	// ErrBodyRequired is returned when a template has no body.
	ErrBodyRequired = errors.New("body template is required")

	// ErrHTMLNotSupported is returned when an HTML template is set on a
	// channel that cannot carry HTML.
	ErrHTMLNotSupported = errors.New("channel does not support html body")
)

// UndeclaredVariableError is an authoring error: a template references a
// placeholder not listed in AvailableVariables.
type UndeclaredVariableError struct {
	Variable string
}

func (e *UndeclaredVariableError) Error() string {
	return fmt.Sprintf("template references undeclared variable %q", e.Variable)
}
