package normalize

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized means the raw text does not have the expected shape.
	ErrUnrecognized = errors.New("unrecognized value")
	// ErrMissing means a required field was not present in the message.
	ErrMissing = errors.New("required field missing")
	// ErrEmpty means the field label was present but carried no value.
	ErrEmpty = errors.New("empty value")
	// ErrNegative means a money amount was negative where that is not allowed.
	ErrNegative = errors.New("negative amount not allowed")
	// ErrInvalidDate means the numbers parsed but do not name a real date.
	ErrInvalidDate = errors.New("no such date")
)

// ParseError reports a value that could not be normalized. Field is empty
// when the error comes straight from a parser and is filled in by the
// extractor once the owning field is known.
type ParseError struct {
	Field string
	Kind  Kind
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %q (%s): %q: %v", e.Field, e.Kind, e.Raw, e.Err)
	}
	return fmt.Sprintf("%s: %q: %v", e.Kind, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(kind Kind, raw string, err error) *ParseError {
	return &ParseError{Kind: kind, Raw: raw, Err: err}
}
