package commands

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by handlers when the record a command names does
// not exist, and by the dispatcher for an unknown intent.
var ErrNotFound = errors.New("not found")

// ErrSealed is returned when registering into a sealed registry.
var ErrSealed = errors.New("registry is sealed")

// ValidationError reports a value that parsed but breaks a domain rule, such
// as a rating outside 1-5.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Invalid returns a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
