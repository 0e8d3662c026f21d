package agents

import (
	"context"
	"net/url"

	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

func bookmarkEntries(env Env) []commands.Entry {
	c := env.crud("bookmarks")
	rating := extract.Field{
		Name: "rating", Labels: []string{"評価", "rating"}, Kind: normalize.KindInteger,
		Min: extract.Int64(1), Max: extract.Int64(5),
	}
	tags := extract.Field{Name: "tags", Labels: []string{"タグ", "tags", "tag"}, Kind: normalize.KindText}
	addFields := []extract.Field{
		{Name: "title", Labels: []string{"タイトル", "title"}, Kind: normalize.KindText, Required: true, Positional: true},
		{Name: "url", Labels: []string{"URL", "リンク", "link"}, Kind: normalize.KindText},
		tags,
		rating,
	}
	// "評価: 4, ID: 3": the rating follows the trigger directly.
	rateRating := rating
	rateRating.Required = true
	rateRating.Positional = true
	rateFields := []extract.Field{rateRating, idField}

	return []commands.Entry{
		{
			Rule:    intent.Rule{Intent: "list", Patterns: []string{`ブックマーク一覧`, `bookmarks`, `list\s+bookmarks`}},
			Fields:  []extract.Field{tags},
			Handler: c.List("id", false, "tags"),
		},
		{
			Rule:    intent.Rule{Intent: "rate", Patterns: []string{`評価`, `rate`}},
			Fields:  rateFields,
			Handler: c.Update(rateFields),
		},
		{
			Rule: intent.Rule{Intent: "delete_id", Patterns: []string{
				`ブックマーク削除\s*[:：]?\s*(?P<id>\d+)`,
				`delete\s+bookmark\s*[:：]?\s*(?P<id>\d+)`,
			}},
			Fields:  []extract.Field{idField},
			Handler: c.DeleteByID(),
		},
		{
			Rule:    intent.Rule{Intent: "add", Patterns: []string{`ブックマーク`, `bookmark`, `add\s+bookmark`}},
			Fields:  addFields,
			Handler: bookmarkAdd(c, addFields),
		},
	}
}

// bookmarkAdd rejects URLs that are not absolute http(s) links.
func bookmarkAdd(c CRUD, schema []extract.Field) commands.Handler {
	create := c.Create(schema)
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		if raw, ok := f.Text("url"); ok {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return commands.Reply{}, commands.Invalid("url", "not an http(s) link: %s", raw)
			}
		}
		return create(ctx, f, store)
	}
}
