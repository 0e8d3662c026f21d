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

func habitEntries(env Env) []commands.Entry {
	c := env.crud("habits")
	habit := extract.Field{Name: "habit", Labels: []string{"習慣", "habit"}, Kind: normalize.KindText}
	logFields := []extract.Field{
		{Name: "habit", Labels: []string{"習慣", "habit"}, Kind: normalize.KindText, Required: true, Positional: true},
		{Name: "duration", Labels: []string{"時間", "duration", "time"}, Kind: normalize.KindDuration,
			Min: extract.Int64(1), Max: extract.Int64(24 * 60)},
		{Name: "date", Labels: []string{"日付", "date"}, Kind: normalize.KindDate},
	}
	return []commands.Entry{
		{
			Rule:    intent.Rule{Intent: "stats", Patterns: []string{`習慣統計`, `記録集計`, `habit\s+stats`}},
			Fields:  []extract.Field{habit},
			Handler: habitStats(c),
		},
		{
			Rule: intent.Rule{Intent: "delete_id", Patterns: []string{
				`記録削除\s*[:：]?\s*(?P<id>\d+)`,
				`delete\s+log\s*[:：]?\s*(?P<id>\d+)`,
			}},
			Fields:  []extract.Field{idField},
			Handler: c.DeleteByID(),
		},
		{
			Rule:    intent.Rule{Intent: "log", Patterns: []string{`記録`, `done`, `log`}},
			Fields:  logFields,
			Handler: c.Create(logFields, "date"),
		},
	}
}

// HabitStat is the per-habit aggregate reported by the stats intent.
type HabitStat struct {
	Habit   string `json:"habit"`
	Count   int    `json:"count"`
	Minutes int64  `json:"minutes"`
	Last    string `json:"last"`
}

// habitStats counts entries and sums minutes per habit.
func habitStats(c CRUD) commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		recs, err := store.Query(ctx, c.Collection, storage.Filter{Equals: equalsFrom(f, []string{"habit"})})
		if err != nil {
			return commands.Reply{}, err
		}
		byHabit := make(map[string]*HabitStat)
		for _, rec := range recs {
			name := rec.Fields["habit"]
			st, ok := byHabit[name]
			if !ok {
				st = &HabitStat{Habit: name}
				byHabit[name] = st
			}
			st.Count++
			if raw, ok := rec.Fields["duration"]; ok {
				d, err := normalize.ParseDuration(raw)
				if err != nil {
					return commands.Reply{}, fmt.Errorf("habit record %d: %w", rec.ID, err)
				}
				st.Minutes += d.Minutes()
			}
			if date := rec.Fields["date"]; date > st.Last {
				st.Last = date
			}
		}

		stats := make([]HabitStat, 0, len(byHabit))
		for _, st := range byHabit {
			stats = append(stats, *st)
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Count != stats[j].Count {
				return stats[i].Count > stats[j].Count
			}
			return stats[i].Habit < stats[j].Habit
		})
		return commands.Reply{
			Message: fmt.Sprintf("%d habit(s)", len(stats)),
			Data: map[string]any{
				DataAction: ActionStats,
				"stats":    stats,
				DataCount:  len(recs),
			},
		}, nil
	}
}
