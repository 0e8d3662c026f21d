package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AuditPayload is the free-form part of an audit row, stored as JSON.
type AuditPayload map[string]any

// AuditRecord is one dispatched command as handed to WriteAudit.
type AuditRecord struct {
	TraceID string
	Sender  string
	Agent   string
	Intent  string
	// Result is "ok" or an error kind.
	Result  string
	Payload AuditPayload
	Error   string
}

// AuditEntry is an AuditRecord read back with its row id and time.
type AuditEntry struct {
	ID   int64
	Time time.Time
	AuditRecord
}

// MarshalJSON flattens the embedded record so `kotoba audit --format json`
// prints one object per row.
func (e AuditEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      int64        `json:"id"`
		Time    time.Time    `json:"time"`
		TraceID string       `json:"trace_id"`
		Sender  string       `json:"sender"`
		Agent   string       `json:"agent"`
		Intent  string       `json:"intent"`
		Result  string       `json:"result"`
		Payload AuditPayload `json:"payload,omitempty"`
		Error   string       `json:"error,omitempty"`
	}{e.ID, e.Time, e.TraceID, e.Sender, e.Agent, e.Intent, e.Result, e.Payload, e.Error})
}

// AuditQuery selects audit rows. Zero fields do not filter.
type AuditQuery struct {
	TraceID string
	Sender  string
	Agent   string
	// Limit caps the result; zero means 100.
	Limit int
}

// WriteAudit appends one row to the audit log.
func (s *Store) WriteAudit(ctx context.Context, rec AuditRecord) error {
	var payload, errMsg sql.NullString
	if len(rec.Payload) > 0 {
		b, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal audit payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Error != "" {
		errMsg = sql.NullString{String: rec.Error, Valid: true}
	}

	err := s.write(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO audit_log (ts, trace_id, sender, agent, intent, result, payload_json, error_message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.now().UTC(), rec.TraceID, rec.Sender, rec.Agent, rec.Intent, rec.Result, payload, errMsg)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// ListAudit returns matching rows, newest first.
func (s *Store) ListAudit(ctx context.Context, q AuditQuery) ([]AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	for _, f := range []struct{ col, val string }{
		{"trace_id", q.TraceID}, {"sender", q.Sender}, {"agent", q.Agent},
	} {
		if f.val != "" {
			where = append(where, f.col+" = ?")
			args = append(args, f.val)
		}
	}
	query := `SELECT id, ts, trace_id, sender, agent, intent, result, payload_json, error_message FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e       AuditEntry
			payload sql.NullString
			errMsg  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Time, &e.TraceID, &e.Sender, &e.Agent, &e.Intent, &e.Result, &payload, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("audit row %d: bad payload: %w", e.ID, err)
			}
		}
		e.Error = errMsg.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return out, nil
}
