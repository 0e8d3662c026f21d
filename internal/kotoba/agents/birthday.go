package agents

import (
	"context"
	"fmt"
	"sort"

	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

var birthdayNameField = extract.Field{
	Name: "name", Labels: []string{"名前", "name"}, Kind: normalize.KindText, Required: true, Positional: true,
}

func birthdayEntries(env Env) []commands.Entry {
	c := env.crud("birthdays")
	addFields := []extract.Field{
		birthdayNameField,
		{Name: "birth_date", Labels: []string{"日付", "生年月日", "date"}, Kind: normalize.KindMonthDay, Required: true},
		{Name: "year", Labels: []string{"年", "生まれ年", "year"}, Kind: normalize.KindInteger,
			Min: extract.Int64(1900), Max: extract.Int64(2100)},
	}
	return []commands.Entry{
		{
			Rule:    intent.Rule{Intent: "list", Patterns: []string{`誕生日一覧`, `birthdays`, `list\s+birthdays`}},
			Handler: birthdayList(env),
		},
		{
			Rule: intent.Rule{Intent: "delete_id", Patterns: []string{
				`誕生日削除\s*[:：]?\s*(?P<id>\d+)`,
				`delete\s+birthday\s*[:：]?\s*(?P<id>\d+)`,
			}},
			Fields:  []extract.Field{idField},
			Handler: c.DeleteByID(),
		},
		{
			Rule:    intent.Rule{Intent: "delete", Patterns: []string{`誕生日削除`, `delete\s+birthday`}},
			Fields:  []extract.Field{birthdayNameField},
			Handler: c.DeleteWhere("name"),
		},
		{
			Rule:    intent.Rule{Intent: "add", Patterns: []string{`誕生日`, `birthday`, `add\s+birthday`}},
			Fields:  addFields,
			Handler: birthdayAdd(c, addFields),
		},
	}
}

// birthdayAdd refuses a second entry for the same name, then creates.
func birthdayAdd(c CRUD, schema []extract.Field) commands.Handler {
	create := c.Create(schema)
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		name, _ := f.Text("name")
		existing, err := store.Query(ctx, c.Collection, storage.Filter{Equals: map[string]string{"name": name}, Limit: 1})
		if err != nil {
			return commands.Reply{}, err
		}
		if len(existing) > 0 {
			return commands.Reply{}, commands.Invalid("name", "%s is already registered (id %d)", name, existing[0].ID)
		}
		return create(ctx, f, store)
	}
}

// birthdayList orders birthdays by their next occurrence from today and adds
// "next", "days_until" and, when the year is known, the age being turned.
func birthdayList(env Env) commands.Handler {
	return func(ctx context.Context, _ commands.Fields, store storage.Storage) (commands.Reply, error) {
		recs, err := store.Query(ctx, "birthdays", storage.Filter{})
		if err != nil {
			return commands.Reply{}, err
		}
		today := normalize.DateOf(env.now())

		type upcoming struct {
			view map[string]string
			next normalize.Date
		}
		var items []upcoming
		for _, v := range views(recs) {
			md, err := normalize.ParseMonthDay(v["birth_date"])
			if err != nil {
				return commands.Reply{}, fmt.Errorf("birthday %s: %w", v["id"], err)
			}
			next := md.Next(today)
			v["next"] = next.Canonical()
			v["days_until"] = fmt.Sprint(daysBetween(today, next))
			if y, err := normalize.ParseInteger(v["year"]); err == nil {
				v["age"] = fmt.Sprint(next.Year - int(y))
			}
			items = append(items, upcoming{view: v, next: next})
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].next.Canonical() < items[j].next.Canonical()
		})

		out := make([]map[string]string, len(items))
		for i, it := range items {
			out[i] = it.view
		}
		return commands.Reply{
			Message: fmt.Sprintf("%d birthday(s)", len(out)),
			Data: map[string]any{
				DataAction:  ActionList,
				DataRecords: out,
				DataCount:   len(out),
			},
		}, nil
	}
}

func daysBetween(from, to normalize.Date) int {
	return int(to.Time(nil).Sub(from.Time(nil)).Hours() / 24)
}
