package agents

import (
	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

func giftEntries(env Env) []commands.Entry {
	c := env.crud("gifts")
	to := extract.Field{Name: "to", Labels: []string{"相手", "宛先", "to"}, Kind: normalize.KindText}
	category := extract.Field{Name: "category", Labels: []string{"カテゴリ", "category"}, Kind: normalize.KindText}
	addFields := []extract.Field{
		{Name: "item", Labels: []string{"品物", "item"}, Kind: normalize.KindText, Required: true, Positional: true},
		category,
		to,
		{Name: "price", Labels: []string{"金額", "値段", "price"}, Kind: normalize.KindMoney, Min: extract.Int64(0)},
		{Name: "date", Labels: []string{"日付", "date"}, Kind: normalize.KindDate},
	}
	return []commands.Entry{
		{
			Rule:    intent.Rule{Intent: "list", Patterns: []string{`ギフト一覧`, `gifts`, `list\s+gifts`}},
			Fields:  []extract.Field{to, category},
			Handler: c.List("date", true, "to", "category"),
		},
		{
			Rule:    intent.Rule{Intent: "total", Patterns: []string{`ギフト合計`, `gift\s+total`}},
			Fields:  []extract.Field{to, category},
			Handler: c.Total("price", "to", "category"),
		},
		{
			Rule: intent.Rule{Intent: "delete_id", Patterns: []string{
				`ギフト削除\s*[:：]?\s*(?P<id>\d+)`,
				`delete\s+gift\s*[:：]?\s*(?P<id>\d+)`,
			}},
			Fields:  []extract.Field{idField},
			Handler: c.DeleteByID(),
		},
		{
			Rule:    intent.Rule{Intent: "add", Patterns: []string{`ギフト`, `プレゼント`, `gift`, `add\s+gift`}},
			Fields:  addFields,
			Handler: c.Create(addFields, "date"),
		},
	}
}
