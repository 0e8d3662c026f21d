// Package store provides the SQLite-backed record store for Kotoba. It
// implements storage.Storage and also keeps the audit log and the Matrix
// sync state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bdobrica/Kotoba/common/retry"
)

// Store is the SQLite record store.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	retry retry.Policy
}

// busyRetry is the write retry policy when SQLite reports SQLITE_BUSY
// despite busy_timeout.
var busyRetry = retry.Policy{
	Attempts:  4,
	Delay:     50 * time.Millisecond,
	MaxDelay:  time.Second,
	Retryable: IsBusy,
}

// pragmas apply to every connection the driver opens.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// New opens (creating if needed) the database at dbPath and brings its schema
// up to date.
func New(dbPath string) (*Store, error) {
	q := url.Values{"_txlock": {"immediate"}}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; a single connection queues callers in
	// database/sql rather than on the file lock.
	db.SetMaxOpenConns(1)

	s := NewWithDB(db)
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already-open and migrated database.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now, retry: busyRetry}
}

// WithClock replaces the clock used for timestamps.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.now = clock
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection to the Matrix sync store.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the connection, for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IsBusy reports whether err is SQLite's SQLITE_BUSY or SQLITE_LOCKED.
func IsBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// write runs fn under the busy retry policy.
func (s *Store) write(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, s.retry, fn)
}
