package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a Storage kept in process memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]Record
	now     func() time.Time
}

// NewMemory returns an empty Memory. A nil clock means time.Now.
func NewMemory(clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{records: make(map[int64]Record), now: clock}
}

func (m *Memory) Create(ctx context.Context, collection string, fields map[string]string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, Wrap("create", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := m.now().UTC()
	m.records[m.nextID] = Record{
		ID:         m.nextID,
		Collection: collection,
		Fields:     copyFields(fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return m.nextID, nil
}

func (m *Memory) Update(ctx context.Context, id int64, fields map[string]string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, Wrap("update", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return false, nil
	}
	merged := copyFields(rec.Fields)
	for k, v := range fields {
		merged[k] = v
	}
	rec.Fields = merged
	rec.UpdatedAt = m.now().UTC()
	m.records[id] = rec
	return true, nil
}

func (m *Memory) Query(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("query", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.records {
		if rec.Collection != collection {
			continue
		}
		if filter.ID != 0 && rec.ID != filter.ID {
			continue
		}
		if !matches(rec, filter.Equals) {
			continue
		}
		rec.Fields = copyFields(rec.Fields)
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		less := lessBy(out[i], out[j], filter.OrderBy)
		if filter.Desc {
			return lessBy(out[j], out[i], filter.OrderBy)
		}
		return less
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, Wrap("delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

// Len returns the number of stored records across all collections.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func matches(rec Record, equals map[string]string) bool {
	for k, want := range equals {
		if got, ok := rec.Fields[k]; !ok || got != want {
			return false
		}
	}
	return true
}

// lessBy orders by a field value, falling back to id. Records missing the
// field sort first, as NULL does in SQLite.
func lessBy(a, b Record, orderBy string) bool {
	switch orderBy {
	case "", "id":
		return a.ID < b.ID
	case "created_at":
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	av, aok := a.Fields[orderBy]
	bv, bok := b.Fields[orderBy]
	switch {
	case aok != bok:
		return !aok
	case av != bv:
		return av < bv
	}
	return a.ID < b.ID
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
