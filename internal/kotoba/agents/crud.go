package agents

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

// Data keys shared by every handler; the renderer reads them.
const (
	DataAction  = "action"
	DataID      = "id"
	DataRecord  = "record"
	DataRecords = "records"
	DataCount   = "count"
	DataTotal   = "total"
)

// Actions reported under DataAction.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionList    = "list"
	ActionGet     = "get"
	ActionTotal   = "total"
	ActionStats   = "stats"
	ActionStatus  = "status"
)

// CRUD builds the generic handlers for one collection. Built-in agents use
// them for their plain intents and operator-defined agents use nothing else.
type CRUD struct {
	Collection string
	// Clock supplies "today" for date fields that default to it.
	Clock func() time.Time
}

func (c CRUD) today() normalize.Date {
	if c.Clock == nil {
		return normalize.DateOf(time.Now())
	}
	return normalize.DateOf(c.Clock())
}

// Create stores the command fields as a new record. Fields named in
// todayDefaults get today's date when absent.
func (c CRUD) Create(schema []extract.Field, todayDefaults ...string) commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		if err := checkBounds(schema, f); err != nil {
			return commands.Reply{}, err
		}
		values := f.Canonical()
		for _, name := range todayDefaults {
			if _, ok := values[name]; !ok {
				values[name] = c.today().Canonical()
			}
		}
		id, err := store.Create(ctx, c.Collection, values)
		if err != nil {
			return commands.Reply{}, err
		}
		return commands.Reply{
			Message: fmt.Sprintf("created %s %d", c.Collection, id),
			Data: map[string]any{
				DataAction: ActionCreated,
				DataID:     id,
				DataRecord: values,
			},
		}, nil
	}
}

// List returns the records of the collection. Any of filterFields present in
// the command narrows the result to records holding the same value.
func (c CRUD) List(orderBy string, desc bool, filterFields ...string) commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		recs, err := store.Query(ctx, c.Collection, storage.Filter{
			Equals:  equalsFrom(f, filterFields),
			OrderBy: orderBy,
			Desc:    desc,
		})
		if err != nil {
			return commands.Reply{}, err
		}
		return listReply(c.Collection, recs), nil
	}
}

// Get returns the record named by the "id" field.
func (c CRUD) Get() commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		rec, err := c.find(ctx, f, store)
		if err != nil {
			return commands.Reply{}, err
		}
		return commands.Reply{
			Message: fmt.Sprintf("%s %d", c.Collection, rec.ID),
			Data: map[string]any{
				DataAction: ActionGet,
				DataID:     rec.ID,
				DataRecord: rec.Fields,
			},
		}, nil
	}
}

// Update merges every field except "id" into the record named by "id".
func (c CRUD) Update(schema []extract.Field) commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		if err := checkBounds(schema, f); err != nil {
			return commands.Reply{}, err
		}
		rec, err := c.find(ctx, f, store)
		if err != nil {
			return commands.Reply{}, err
		}
		values := f.Canonical()
		delete(values, "id")
		if len(values) == 0 {
			return commands.Reply{}, commands.Invalid("", "nothing to update")
		}
		ok, err := store.Update(ctx, rec.ID, values)
		if err != nil {
			return commands.Reply{}, err
		}
		if !ok {
			return commands.Reply{}, fmt.Errorf("%s %d: %w", c.Collection, rec.ID, commands.ErrNotFound)
		}
		merged := rec.Fields
		for k, v := range values {
			merged[k] = v
		}
		return commands.Reply{
			Message: fmt.Sprintf("updated %s %d", c.Collection, rec.ID),
			Data: map[string]any{
				DataAction: ActionUpdated,
				DataID:     rec.ID,
				DataRecord: merged,
			},
		}, nil
	}
}

// DeleteByID removes the record named by the "id" field. Records of other
// collections are never touched.
func (c CRUD) DeleteByID() commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		rec, err := c.find(ctx, f, store)
		if err != nil {
			return commands.Reply{}, err
		}
		return c.remove(ctx, store, []storage.Record{rec})
	}
}

// DeleteWhere removes every record whose field equals the command's value
// for it.
func (c CRUD) DeleteWhere(field string) commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		v, ok := f[field]
		if !ok {
			return commands.Reply{}, commands.Invalid(field, "required")
		}
		recs, err := store.Query(ctx, c.Collection, storage.Filter{
			Equals: map[string]string{field: v.Canonical()},
		})
		if err != nil {
			return commands.Reply{}, err
		}
		if len(recs) == 0 {
			return commands.Reply{}, fmt.Errorf("%s %s=%q: %w", c.Collection, field, v.Canonical(), commands.ErrNotFound)
		}
		return c.remove(ctx, store, recs)
	}
}

// Total sums a money field over the records matching filterFields.
func (c CRUD) Total(moneyField string, filterFields ...string) commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		recs, err := store.Query(ctx, c.Collection, storage.Filter{Equals: equalsFrom(f, filterFields)})
		if err != nil {
			return commands.Reply{}, err
		}
		sum, counted, err := sumMoney(recs, moneyField)
		if err != nil {
			return commands.Reply{}, err
		}
		return commands.Reply{
			Message: fmt.Sprintf("%s total %s", c.Collection, sum.Canonical()),
			Data: map[string]any{
				DataAction: ActionTotal,
				DataTotal:  sum.Canonical(),
				DataCount:  counted,
				"filter":   equalsFrom(f, filterFields),
			},
		}, nil
	}
}

func (c CRUD) find(ctx context.Context, f commands.Fields, store storage.Storage) (storage.Record, error) {
	id, ok := f.Int("id")
	if !ok {
		return storage.Record{}, commands.Invalid("id", "required")
	}
	// Record ids start at 1; a zero Filter.ID would select the whole collection.
	if id <= 0 {
		return storage.Record{}, fmt.Errorf("%s %d: %w", c.Collection, id, commands.ErrNotFound)
	}
	recs, err := store.Query(ctx, c.Collection, storage.Filter{ID: id})
	if err != nil {
		return storage.Record{}, err
	}
	if len(recs) == 0 {
		return storage.Record{}, fmt.Errorf("%s %d: %w", c.Collection, id, commands.ErrNotFound)
	}
	return recs[0], nil
}

func (c CRUD) remove(ctx context.Context, store storage.Storage, recs []storage.Record) (commands.Reply, error) {
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		ok, err := store.Delete(ctx, rec.ID)
		if err != nil {
			return commands.Reply{}, err
		}
		if ok {
			ids = append(ids, rec.ID)
		}
	}
	if len(ids) == 0 {
		return commands.Reply{}, fmt.Errorf("%s: %w", c.Collection, commands.ErrNotFound)
	}
	data := map[string]any{
		DataAction: ActionDeleted,
		DataCount:  len(ids),
		"ids":      ids,
	}
	if len(ids) == 1 {
		data[DataID] = ids[0]
		data[DataRecord] = recs[0].Fields
	}
	return commands.Reply{
		Message: fmt.Sprintf("deleted %d %s record(s)", len(ids), c.Collection),
		Data:    data,
	}, nil
}

func listReply(collection string, recs []storage.Record) commands.Reply {
	return commands.Reply{
		Message: fmt.Sprintf("%d %s record(s)", len(recs), collection),
		Data: map[string]any{
			DataAction:  ActionList,
			DataRecords: views(recs),
			DataCount:   len(recs),
		},
	}
}

// views flattens records for rendering: the fields plus "id".
func views(recs []storage.Record) []map[string]string {
	out := make([]map[string]string, len(recs))
	for i, rec := range recs {
		v := make(map[string]string, len(rec.Fields)+1)
		for k, val := range rec.Fields {
			v[k] = val
		}
		v["id"] = strconv.FormatInt(rec.ID, 10)
		out[i] = v
	}
	return out
}

func equalsFrom(f commands.Fields, names []string) map[string]string {
	var eq map[string]string
	for _, name := range names {
		if v, ok := f[name]; ok {
			if eq == nil {
				eq = make(map[string]string)
			}
			eq[name] = v.Canonical()
		}
	}
	return eq
}

func sumMoney(recs []storage.Record, field string) (normalize.Money, int, error) {
	var sum normalize.Money
	counted := 0
	for _, rec := range recs {
		raw, ok := rec.Fields[field]
		if !ok {
			continue
		}
		m, err := normalize.ParseMoney(raw, true)
		if err != nil {
			return normalize.Money{}, 0, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		if sum, err = sum.Add(m); err != nil {
			return normalize.Money{}, 0, err
		}
		counted++
	}
	return sum, counted, nil
}

func checkBounds(schema []extract.Field, f commands.Fields) error {
	for _, field := range schema {
		v, ok := f[field.Name]
		if !ok || field.InBounds(v) {
			continue
		}
		switch {
		case field.Min != nil && field.Max != nil:
			return commands.Invalid(field.Name, "must be between %d and %d", *field.Min, *field.Max)
		case field.Min != nil:
			return commands.Invalid(field.Name, "must be at least %d", *field.Min)
		default:
			return commands.Invalid(field.Name, "must be at most %d", *field.Max)
		}
	}
	return nil
}
