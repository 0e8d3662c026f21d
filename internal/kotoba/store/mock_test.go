package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
	"github.com/bdobrica/Kotoba/internal/kotoba/store"
)

func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewWithDB(db).WithClock(func() time.Time { return fixedNow }), mock
}

func TestMock_CreateFailureIsStorageError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO records").
		WithArgs("gifts", `{"item":"本"}`, fixedNow, fixedNow).
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.Create(context.Background(), "gifts", map[string]string{"item": "本"})
	var se *storage.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "create", se.Op)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet(), "non-busy errors are not retried")
}

func TestMock_UpdateNoRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE records SET fields_json = json_patch").
		WithArgs(`{"rating":"5"}`, fixedNow, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Update(context.Background(), 7, map[string]string{"rating": "5"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_QueryBuildsJSONFilters(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "collection", "fields_json", "created_at", "updated_at"}).
		AddRow(int64(2), "expenses", `{"item":"ランチ","category":"food"}`, fixedNow, fixedNow)
	mock.ExpectQuery(`SELECT id, collection, fields_json, created_at, updated_at FROM records WHERE collection = \? AND json_extract\(fields_json, \?\) = \? ORDER BY json_extract\(fields_json, \?\) DESC, id DESC LIMIT \?`).
		WithArgs("expenses", `$."category"`, "food", `$."date"`, 5).
		WillReturnRows(rows)

	recs, err := s.Query(context.Background(), "expenses", storage.Filter{
		Equals:  map[string]string{"category": "food"},
		OrderBy: "date",
		Desc:    true,
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]string{"item": "ランチ", "category": "food"}, recs[0].Fields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_QueryCorruptRecord(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "collection", "fields_json", "created_at", "updated_at"}).
		AddRow(int64(1), "gifts", `not json`, fixedNow, fixedNow)
	mock.ExpectQuery("SELECT id, collection").WillReturnRows(rows)

	_, err := s.Query(context.Background(), "gifts", storage.Filter{})
	var se *storage.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "query", se.Op)
}

func TestMock_DeleteFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM records").WithArgs(int64(3)).WillReturnError(errors.New("readonly database"))

	ok, err := s.Delete(context.Background(), 3)
	assert.False(t, ok)
	var se *storage.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "delete", se.Op)
}
