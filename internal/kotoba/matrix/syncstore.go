package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*DBSyncStore)(nil)

// syncColumn names a matrix_sync_state column. Only the constants below are
// ever interpolated into SQL.
type syncColumn string

const (
	colFilterID  syncColumn = "filter_id"
	colNextBatch syncColumn = "next_batch"
)

// DBSyncStore keeps the sync filter and next_batch token of the bot account
// in the Kotoba database, so a restarted bot resumes where it stopped instead
// of replaying room history and re-running old commands.
type DBSyncStore struct {
	db *sql.DB
}

// NewDBSyncStore needs the store migrations to have been applied to db.
func NewDBSyncStore(db *sql.DB) *DBSyncStore {
	return &DBSyncStore{db: db}
}

func (s *DBSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.set(ctx, userID, colFilterID, filterID)
}

func (s *DBSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.get(ctx, userID, colFilterID)
}

func (s *DBSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.set(ctx, userID, colNextBatch, nextBatchToken)
}

func (s *DBSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.get(ctx, userID, colNextBatch)
}

func (s *DBSyncStore) set(ctx context.Context, userID id.UserID, col syncColumn, value string) error {
	query := fmt.Sprintf(`INSERT INTO matrix_sync_state (user_id, %[1]s) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = CURRENT_TIMESTAMP`, col)
	if _, err := s.db.ExecContext(ctx, query, string(userID), value); err != nil {
		return fmt.Errorf("failed to save sync %s: %w", col, err)
	}
	return nil
}

// get returns "" when nothing was saved for userID.
func (s *DBSyncStore) get(ctx context.Context, userID id.UserID, col syncColumn) (string, error) {
	var value string
	query := fmt.Sprintf(`SELECT %s FROM matrix_sync_state WHERE user_id = ?`, col)
	err := s.db.QueryRowContext(ctx, query, string(userID)).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to load sync %s: %w", col, err)
	}
	return value, nil
}
