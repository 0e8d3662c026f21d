// Package storage defines the record store the command handlers run against.
// Implementations live elsewhere (see store for SQLite); Memory is an
// in-process implementation for tests and the REPL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by handlers (not by Storage methods) when the
// record a command names does not exist.
var ErrNotFound = errors.New("record not found")

// Record is one stored row. Fields holds canonical value strings keyed by
// field name; absent optional fields are simply not present.
type Record struct {
	ID         int64
	Collection string
	Fields     map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filter narrows a Query. The zero Filter returns every record of the
// collection ordered by id.
type Filter struct {
	// ID, when non-zero, selects a single record.
	ID int64
	// Equals requires each field to hold exactly the given value.
	Equals map[string]string
	// OrderBy is a field name, "id" or "created_at". Empty means id.
	OrderBy string
	Desc    bool
	// Limit caps the number of records; zero means no limit.
	Limit int
}

// Storage is the persistence collaborator of the command pipeline.
type Storage interface {
	// Create inserts a record into collection and returns its id.
	Create(ctx context.Context, collection string, fields map[string]string) (int64, error)
	// Update merges fields into record id. It reports false when no such
	// record exists.
	Update(ctx context.Context, id int64, fields map[string]string) (bool, error)
	// Query returns the records of collection matching filter.
	Query(ctx context.Context, collection string, filter Filter) ([]Record, error)
	// Delete removes record id. It reports false when no such record exists.
	Delete(ctx context.Context, id int64) (bool, error)
}

// Error wraps every failure of a Storage implementation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as a *Error for op, or nil when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}
