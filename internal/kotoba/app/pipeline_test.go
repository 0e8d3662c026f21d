package app_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdobrica/Kotoba/internal/kotoba/agents"
	"github.com/bdobrica/Kotoba/internal/kotoba/app"
	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/ratelimit"
	"github.com/bdobrica/Kotoba/internal/kotoba/render"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
	"github.com/bdobrica/Kotoba/internal/kotoba/store"
)

type fakeAuditor struct {
	mu   sync.Mutex
	rows []store.AuditRecord
}

func (f *fakeAuditor) WriteAudit(_ context.Context, rec store.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rec)
	return nil
}

func testConfig() *app.Config {
	return &app.Config{
		DatabasePath:   ":memory:",
		Locale:         normalize.LocaleAny,
		Location:       time.UTC,
		Agents:         agents.Names(),
		CommandTimeout: time.Second,
	}
}

func newPipeline(t *testing.T, opts app.PipelineOptions) (*app.Pipeline, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory(time.Now)
	interps, err := app.BuildInterpreters(testConfig(), mem, nil)
	require.NoError(t, err)
	return app.NewPipeline(interps, opts), mem
}

func TestPipeline_AgentsInConfiguredOrder(t *testing.T) {
	p, _ := newPipeline(t, app.PipelineOptions{})
	assert.Equal(t, agents.Names(), p.Agents())
}

func TestPipeline_HandleRoutesToRecognizingAgent(t *testing.T) {
	auditor := &fakeAuditor{}
	p, mem := newPipeline(t, app.PipelineOptions{Auditor: auditor, Lang: render.LangEN})
	ctx := context.Background()

	tests := []struct {
		text   string
		agent  string
		intent string
	}{
		{"誕生日 山田, 日付: 5/20", "birthday", "add"},
		{"ギフト ネクタイ, 金額: ¥1,500", "gift", "add"},
		{"bookmark Go blog, URL: https://go.dev/blog", "bookmark", "add"},
		{"記録 読書, 時間: 30分", "habit", "log"},
		{"支出 ランチ, 金額: 800, カテゴリ: 食費", "expense", "add"},
		{"バックアップ設定 自動: 有効", "backup", "set"},
	}
	for _, tt := range tests {
		out, ok := p.Handle(ctx, "@alice:example.org", tt.text)
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.agent, out.Agent, tt.text)
		assert.Equal(t, tt.intent, out.Result.Intent, tt.text)
		assert.True(t, out.Result.OK, "%s: %+v", tt.text, out.Result)
		assert.True(t, strings.HasPrefix(out.Plain, "✅"), out.Plain)
		assert.True(t, strings.HasPrefix(out.Result.TraceID, "t_"))
	}
	assert.Equal(t, len(tests), mem.Len())

	require.Len(t, auditor.rows, len(tests))
	first := auditor.rows[0]
	assert.Equal(t, "birthday", first.Agent)
	assert.Equal(t, "add", first.Intent)
	assert.Equal(t, "ok", first.Result)
	assert.Equal(t, "@alice:example.org", first.Sender)
	assert.Equal(t, "誕生日 山田, 日付: 5/20", first.Payload["text"])
}

func TestPipeline_NotACommand(t *testing.T) {
	auditor := &fakeAuditor{}
	p, mem := newPipeline(t, app.PipelineOptions{Auditor: auditor})

	for _, text := range []string{"", "おはよう", "hello there", "addresses"} {
		_, ok := p.Handle(context.Background(), "@bob:example.org", text)
		assert.False(t, ok, text)
	}
	assert.Zero(t, mem.Len())
	assert.Empty(t, auditor.rows)
}

func TestPipeline_FailuresAreAuditedAndRendered(t *testing.T) {
	auditor := &fakeAuditor{}
	p, _ := newPipeline(t, app.PipelineOptions{Auditor: auditor, Lang: render.LangJA})

	out, ok := p.Handle(context.Background(), "@carol:example.org", "誕生日 山田, 日付: 2/30")
	require.True(t, ok)
	assert.Equal(t, commands.KindParseError, out.Result.ErrorKind)
	assert.Contains(t, out.Plain, "**birth_date**")
	assert.Contains(t, out.HTML, "<strong>birth_date</strong>")

	require.Len(t, auditor.rows, 1)
	assert.Equal(t, "parse_error", auditor.rows[0].Result)
	assert.Equal(t, "birth_date", auditor.rows[0].Payload["field"])
	assert.NotEmpty(t, auditor.rows[0].Error)
}

func TestPipeline_RateLimit(t *testing.T) {
	p, mem := newPipeline(t, app.PipelineOptions{Limiter: ratelimit.New(2, time.Minute)})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, ok := p.Handle(ctx, "@dave:example.org", "ギフト 本")
		require.True(t, ok)
	}
	_, ok := p.Handle(ctx, "@dave:example.org", "ギフト 本")
	assert.False(t, ok, "third message in the window must be dropped")
	assert.Equal(t, 2, mem.Len())

	_, ok = p.Handle(ctx, "@erin:example.org", "ギフト 本")
	assert.True(t, ok, "other senders are unaffected")
}

func TestPipeline_Parse(t *testing.T) {
	p, mem := newPipeline(t, app.PipelineOptions{})

	agent, cmd, ok, err := p.Parse("支出 ランチ, 金額: 1,200円, カテゴリ: 食費")
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "expense", agent)
	assert.Equal(t, "add", cmd.Intent)
	assert.Equal(t, "1200", cmd.Canonical()["amount"])
	assert.Equal(t, "food", cmd.Canonical()["category"])
	assert.Zero(t, mem.Len(), "parse must not touch storage")

	_, _, ok, _ = p.Parse("こんにちは")
	assert.False(t, ok)
}

func TestBuildInterpreters_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Agents = []string{"gift", "gift"}
	_, err := app.BuildInterpreters(cfg, storage.NewMemory(time.Now), nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Agents = []string{"weather"}
	_, err = app.BuildInterpreters(cfg, storage.NewMemory(time.Now), nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.RulesFile = "testdata/does-not-exist.yaml"
	_, err = app.BuildInterpreters(cfg, storage.NewMemory(time.Now), nil)
	assert.Error(t, err)
}
