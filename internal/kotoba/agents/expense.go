package agents

import (
	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

// ExpenseCategories are the canonical expense categories.
var ExpenseCategories = []string{"food", "transport", "housing", "utilities", "entertainment", "health", "other"}

var expenseSynonyms = invert(map[string][]string{
	"food":          {"食費", "食べ物", "ごはん", "外食"},
	"transport":     {"交通費", "交通", "電車"},
	"housing":       {"家賃", "住居", "rent"},
	"utilities":     {"光熱費", "電気代", "utility"},
	"entertainment": {"娯楽", "趣味", "fun"},
	"health":        {"医療", "病院"},
	"other":         {"その他", "misc"},
})

// invert turns canonical -> synonyms into synonym -> canonical.
func invert(groups map[string][]string) map[string]string {
	out := make(map[string]string)
	for canonical, syns := range groups {
		for _, s := range syns {
			out[s] = canonical
		}
	}
	return out
}

func expenseEntries(env Env) []commands.Entry {
	c := env.crud("expenses")
	category := extract.Field{
		Name: "category", Labels: []string{"カテゴリ", "分類", "category"}, Kind: normalize.KindEnum,
		EnumValues: ExpenseCategories, Synonyms: expenseSynonyms,
	}
	addFields := []extract.Field{
		{Name: "item", Labels: []string{"品目", "item"}, Kind: normalize.KindText, Required: true, Positional: true},
		{Name: "amount", Labels: []string{"金額", "amount"}, Kind: normalize.KindMoney, Required: true, Min: extract.Int64(0)},
		category,
		{Name: "date", Labels: []string{"日付", "date"}, Kind: normalize.KindDate},
	}
	return []commands.Entry{
		{
			Rule:    intent.Rule{Intent: "list", Patterns: []string{`支出一覧`, `expenses`, `list\s+expenses`}},
			Fields:  []extract.Field{category},
			Handler: c.List("date", true, "category"),
		},
		{
			Rule:    intent.Rule{Intent: "total", Patterns: []string{`支出合計`, `expense\s+total`}},
			Fields:  []extract.Field{category},
			Handler: c.Total("amount", "category"),
		},
		{
			Rule: intent.Rule{Intent: "delete_id", Patterns: []string{
				`支出削除\s*[:：]?\s*(?P<id>\d+)`,
				`delete\s+expense\s*[:：]?\s*(?P<id>\d+)`,
			}},
			Fields:  []extract.Field{idField},
			Handler: c.DeleteByID(),
		},
		{
			Rule:    intent.Rule{Intent: "add", Patterns: []string{`支出`, `expense`, `spent`}},
			Fields:  addFields,
			Handler: c.Create(addFields, "date"),
		},
	}
}
