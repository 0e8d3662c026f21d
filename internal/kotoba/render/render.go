// Package render turns an ActionResult into the Markdown reply a chat user
// sees, in Japanese or English, and converts that Markdown to the HTML subset
// Matrix clients display.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bdobrica/Kotoba/internal/kotoba/agents"
	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

// Lang selects the reply language.
type Lang string

const (
	LangJA Lang = "ja"
	LangEN Lang = "en"
)

// LangFor picks the reply language for a parsing locale. Only an explicit
// English locale gets English replies.
func LangFor(locale normalize.Locale) Lang {
	if locale == normalize.LocaleEN {
		return LangEN
	}
	return LangJA
}

type phrases struct {
	created      func(n int) string
	updated      func(n int) string
	deleted      func(n int) string
	records      func(n int) string
	empty        string
	total        func(total string, n int) string
	statsHeader  func(n int) string
	stat         func(s agents.HabitStat) string
	settings     string
	defaults     string
	parseField   string
	parseAny     string
	invalidField string
	invalidAny   string
	notFound     string
	failed       string
}

var catalog = map[Lang]phrases{
	LangJA: {
		created: func(int) string { return "✅ 登録しました" },
		updated: func(int) string { return "✅ 更新しました" },
		deleted: func(n int) string { return fmt.Sprintf("🗑️ %d件削除しました", n) },
		records: func(n int) string { return fmt.Sprintf("📋 %d件", n) },
		empty:   "該当する記録はありません。",
		total: func(total string, n int) string {
			return fmt.Sprintf("💰 合計: **%s** (%d件)", total, n)
		},
		statsHeader: func(n int) string { return fmt.Sprintf("📊 %d件の記録", n) },
		stat: func(s agents.HabitStat) string {
			return fmt.Sprintf("- **%s**: %d回, %d分, 最終 %s", s.Habit, s.Count, s.Minutes, s.Last)
		},
		settings:     "⚙️ 設定",
		defaults:     "(未設定のためデフォルト値です)",
		parseField:   "❌ **%s** を読み取れませんでした。",
		parseAny:     "❌ 入力を読み取れませんでした。",
		invalidField: "⚠️ **%s** の値が正しくありません: %s",
		invalidAny:   "⚠️ 入力が正しくありません: %s",
		notFound:     "🔍 見つかりませんでした。",
		failed:       "💥 処理できませんでした。",
	},
	LangEN: {
		created: func(int) string { return "✅ Saved" },
		updated: func(int) string { return "✅ Updated" },
		deleted: func(n int) string { return fmt.Sprintf("🗑️ Deleted %d %s", n, plural(n, "record", "records")) },
		records: func(n int) string { return fmt.Sprintf("📋 %d %s", n, plural(n, "record", "records")) },
		empty:   "No records.",
		total: func(total string, n int) string {
			return fmt.Sprintf("💰 Total: **%s** (%d %s)", total, n, plural(n, "record", "records"))
		},
		statsHeader: func(n int) string {
			return fmt.Sprintf("📊 %d log %s", n, plural(n, "entry", "entries"))
		},
		stat: func(s agents.HabitStat) string {
			return fmt.Sprintf("- **%s**: %d %s, %d min, last %s",
				s.Habit, s.Count, plural(s.Count, "time", "times"), s.Minutes, s.Last)
		},
		settings:     "⚙️ Settings",
		defaults:     "(not configured, showing defaults)",
		parseField:   "❌ Could not read **%s**.",
		parseAny:     "❌ Could not read the input.",
		invalidField: "⚠️ Invalid **%s**: %s",
		invalidAny:   "⚠️ Invalid input: %s",
		notFound:     "🔍 Not found.",
		failed:       "💥 The command could not be completed.",
	},
}

// Markdown renders res as a Markdown reply. The result never ends in a
// newline.
func Markdown(res commands.ActionResult, lang Lang) string {
	p, ok := catalog[lang]
	if !ok {
		p = catalog[LangJA]
	}
	var lines []string
	if res.OK {
		lines = success(p, res)
	} else {
		lines = failure(p, res)
	}
	return strings.Join(lines, "\n")
}

// Reply renders res as the plain-text body and HTML formatted body of a
// Matrix message.
func Reply(res commands.ActionResult, lang Lang) (plain, html string) {
	md := Markdown(res, lang)
	return md, HTML(md)
}

func success(p phrases, res commands.ActionResult) []string {
	data := res.Data
	action, _ := data[agents.DataAction].(string)
	count := toInt(data[agents.DataCount])

	switch action {
	case agents.ActionCreated:
		return withRecord(headerWithID(p.created(count), data), data)
	case agents.ActionUpdated:
		return withRecord(headerWithID(p.updated(count), data), data)
	case agents.ActionGet:
		return withRecord(headerWithID("🔎", data), data)
	case agents.ActionDeleted:
		return []string{p.deleted(count)}
	case agents.ActionList:
		recs := recordList(data[agents.DataRecords])
		if len(recs) == 0 {
			return []string{p.empty}
		}
		lines := []string{p.records(len(recs))}
		for _, r := range recs {
			lines = append(lines, recordLine(r))
		}
		return lines
	case agents.ActionTotal:
		total, _ := data[agents.DataTotal].(string)
		return []string{p.total(total, count)}
	case agents.ActionStats:
		lines := []string{p.statsHeader(count)}
		stats, _ := data["stats"].([]agents.HabitStat)
		for _, s := range stats {
			lines = append(lines, p.stat(s))
		}
		return lines
	case agents.ActionStatus:
		lines := withRecord(p.settings, data)
		if configured, ok := data["configured"].(bool); ok && !configured {
			lines = append(lines, p.defaults)
		}
		return lines
	}
	return []string{"✅ " + res.Message}
}

func failure(p phrases, res commands.ActionResult) []string {
	switch res.ErrorKind {
	case commands.KindParseError:
		head := p.parseAny
		if res.Field != "" {
			head = fmt.Sprintf(p.parseField, res.Field)
		}
		if res.Message == "" {
			return []string{head}
		}
		return []string{head, "`" + res.Message + "`"}
	case commands.KindValidationError:
		if res.Field != "" {
			return []string{fmt.Sprintf(p.invalidField, res.Field, res.Message)}
		}
		return []string{fmt.Sprintf(p.invalidAny, res.Message)}
	case commands.KindNotFound:
		return []string{p.notFound}
	}
	line := p.failed
	if res.TraceID != "" {
		line += " (trace: " + res.TraceID + ")"
	}
	return []string{line}
}

func headerWithID(head string, data map[string]any) string {
	if id, ok := data[agents.DataID]; ok {
		return fmt.Sprintf("%s (ID: %v)", head, id)
	}
	return head
}

func withRecord(head string, data map[string]any) []string {
	lines := []string{head}
	rec := stringMap(data[agents.DataRecord])
	for _, k := range sortedKeys(rec) {
		lines = append(lines, fmt.Sprintf("- **%s**: %s", k, rec[k]))
	}
	return lines
}

// recordLine renders one listed record as "- `#id` k: v, k: v".
func recordLine(rec map[string]string) string {
	var parts []string
	for _, k := range sortedKeys(rec) {
		if k == "id" {
			continue
		}
		parts = append(parts, k+": "+rec[k])
	}
	return fmt.Sprintf("- `#%s` %s", rec["id"], strings.Join(parts, ", "))
}

func recordList(v any) []map[string]string {
	switch recs := v.(type) {
	case []map[string]string:
		return recs
	case []any:
		out := make([]map[string]string, 0, len(recs))
		for _, r := range recs {
			out = append(out, stringMap(r))
		}
		return out
	}
	return nil
}

func stringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = fmt.Sprint(val)
		}
		return out
	}
	return nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural[N int | int64](n N, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
