package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

var _ storage.Storage = (*Store)(nil)

// Create inserts a record and returns its id.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]string) (int64, error) {
	payload, err := encodeFields(fields)
	if err != nil {
		return 0, storage.Wrap("create", err)
	}
	now := s.now().UTC()

	var id int64
	err = s.write(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO records (collection, fields_json, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, collection, payload, now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, storage.Wrap("create", err)
	}
	return id, nil
}

// Update merges fields into the stored JSON object with json_patch.
func (s *Store) Update(ctx context.Context, id int64, fields map[string]string) (bool, error) {
	payload, err := encodeFields(fields)
	if err != nil {
		return false, storage.Wrap("update", err)
	}

	var n int64
	err = s.write(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE records SET fields_json = json_patch(fields_json, ?), updated_at = ?
			WHERE id = ?
		`, payload, s.now().UTC(), id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, storage.Wrap("update", err)
	}
	return n > 0, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := s.write(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, storage.Wrap("delete", err)
	}
	return n > 0, nil
}

// Query returns the records of collection matching filter. Equality
// filters and field ordering use json_extract on the stored object.
func (s *Store) Query(ctx context.Context, collection string, filter storage.Filter) ([]storage.Record, error) {
	query, args := buildQuery(collection, filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Wrap("query", err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var rec storage.Record
		var payload string
		if err := rows.Scan(&rec.ID, &rec.Collection, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, storage.Wrap("query", fmt.Errorf("scan record: %w", err))
		}
		if err := json.Unmarshal([]byte(payload), &rec.Fields); err != nil {
			return nil, storage.Wrap("query", fmt.Errorf("decode record %d: %w", rec.ID, err))
		}
		if rec.Fields == nil {
			rec.Fields = map[string]string{}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("query", err)
	}
	return out, nil
}

// CountRecords returns the number of stored records across collections.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, storage.Wrap("count", err)
	}
	return n, nil
}

func buildQuery(collection string, filter storage.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, collection, fields_json, created_at, updated_at FROM records WHERE collection = ?`)
	args := []any{collection}

	if filter.ID != 0 {
		b.WriteString(` AND id = ?`)
		args = append(args, filter.ID)
	}

	// Sorted keys keep the statement text stable for the same filter.
	keys := make([]string, 0, len(filter.Equals))
	for k := range filter.Equals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(` AND json_extract(fields_json, ?) = ?`)
		args = append(args, jsonPath(k), filter.Equals[k])
	}

	dir := "ASC"
	if filter.Desc {
		dir = "DESC"
	}
	switch filter.OrderBy {
	case "", "id":
		fmt.Fprintf(&b, ` ORDER BY id %s`, dir)
	case "created_at":
		fmt.Fprintf(&b, ` ORDER BY created_at %s, id %s`, dir, dir)
	default:
		fmt.Fprintf(&b, ` ORDER BY json_extract(fields_json, ?) %s, id %s`, dir, dir)
		args = append(args, jsonPath(filter.OrderBy))
	}

	if filter.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}
	return b.String(), args
}

// jsonPath addresses a top-level key, quoted so any field name is safe.
func jsonPath(key string) string {
	return `$.` + strconv.Quote(key)
}

func encodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}
