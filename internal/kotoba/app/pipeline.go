package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/Kotoba/common/trace"
	"github.com/bdobrica/Kotoba/internal/kotoba/agents"
	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/metrics"
	"github.com/bdobrica/Kotoba/internal/kotoba/ratelimit"
	"github.com/bdobrica/Kotoba/internal/kotoba/render"
	"github.com/bdobrica/Kotoba/internal/kotoba/rulesfile"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
	"github.com/bdobrica/Kotoba/internal/kotoba/store"
)

// Auditor records dispatched commands. *store.Store implements it.
type Auditor interface {
	WriteAudit(ctx context.Context, rec store.AuditRecord) error
}

// Outcome is a handled message: the result plus the rendered reply.
type Outcome struct {
	Agent  string
	Result commands.ActionResult
	Plain  string
	HTML   string
}

// PipelineOptions configures a Pipeline. Zero values disable the optional
// parts.
type PipelineOptions struct {
	Lang    render.Lang
	Timeout time.Duration
	Limiter *ratelimit.Limiter
	Auditor Auditor
	Logger  *slog.Logger
}

// Pipeline offers a message to each agent in order and turns the first
// recognition into a rendered reply.
type Pipeline struct {
	interpreters []*commands.Interpreter
	opts         PipelineOptions
	logger       *slog.Logger
}

// NewPipeline returns a Pipeline over interpreters, tried in the given order.
func NewPipeline(interpreters []*commands.Interpreter, opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Lang == "" {
		opts.Lang = render.LangJA
	}
	return &Pipeline{interpreters: interpreters, opts: opts, logger: logger}
}

// Agents lists the agents in matching order.
func (p *Pipeline) Agents() []string {
	out := make([]string, len(p.interpreters))
	for i, in := range p.interpreters {
		out[i] = in.Agent()
	}
	return out
}

// Parse dry-runs text: it returns the command the first recognizing agent
// would dispatch, without touching storage.
func (p *Pipeline) Parse(text string) (agent string, cmd *commands.Command, ok bool, err error) {
	for _, in := range p.interpreters {
		cmd, ok, err := in.Parse(text)
		if ok {
			return in.Agent(), cmd, true, err
		}
	}
	return "", nil, false, nil
}

// Handle runs one chat message from sender. ok is false when the message is
// not a command for any agent or the sender is over the rate limit; nothing
// should be sent back in that case.
func (p *Pipeline) Handle(ctx context.Context, sender, text string) (Outcome, bool) {
	if p.opts.Limiter != nil && !p.opts.Limiter.Allow(sender) {
		p.logger.Warn("rate limit exceeded; dropping message", "sender", sender)
		metrics.Ignored(metrics.ReasonRateLimited)
		return Outcome{}, false
	}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	ctx, traceID := trace.Ensure(ctx)

	start := time.Now()
	for _, in := range p.interpreters {
		res, ok := in.Handle(ctx, text)
		if !ok {
			continue
		}
		metrics.ObserveCommand(in.Agent(), res.Intent, res.Result(), time.Since(start))
		p.audit(ctx, sender, in.Agent(), text, res)
		plain, html := render.Reply(res, p.opts.Lang)
		return Outcome{Agent: in.Agent(), Result: res, Plain: plain, HTML: html}, true
	}
	metrics.Ignored(metrics.ReasonNoMatch)
	p.logger.Debug("message is not a command", "trace_id", traceID)
	return Outcome{}, false
}

func (p *Pipeline) audit(ctx context.Context, sender, agent, text string, res commands.ActionResult) {
	if p.opts.Auditor == nil {
		return
	}
	rec := store.AuditRecord{
		TraceID: res.TraceID,
		Sender:  sender,
		Agent:   agent,
		Intent:  res.Intent,
		Result:  res.Result(),
		Payload: store.AuditPayload{"text": text},
	}
	if !res.OK {
		rec.Error = res.Message
		if res.Field != "" {
			rec.Payload["field"] = res.Field
		}
	}
	// The audit row must be written even when the command ran out of time.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.opts.Auditor.WriteAudit(auditCtx, rec); err != nil {
		trace.Logger(ctx, p.logger).Error("failed to write audit row", "err", err)
	}
}

// BuildInterpreters builds one interpreter per enabled built-in agent, in
// the order given, followed by the rules-file agent when one is configured.
func BuildInterpreters(cfg *Config, st storage.Storage, logger *slog.Logger) ([]*commands.Interpreter, error) {
	clock := cfg.Clock()
	env := agents.Env{Clock: clock}
	opts := commands.Options{Locale: cfg.Locale, Clock: clock, Logger: logger}

	var regs []*commands.Registry
	seen := make(map[string]bool)
	for _, name := range cfg.Agents {
		if seen[name] {
			return nil, fmt.Errorf("agent %q enabled twice", name)
		}
		seen[name] = true
		reg, err := agents.Registry(name, env)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if cfg.RulesFile != "" {
		f, err := rulesfile.Load(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		if seen[f.Agent] {
			return nil, fmt.Errorf("rules file agent %q clashes with a built-in agent", f.Agent)
		}
		reg, err := f.Registry(env)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}

	out := make([]*commands.Interpreter, 0, len(regs))
	for _, reg := range regs {
		in, err := commands.NewInterpreter(reg, st, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// LangFor is the reply language for cfg.
func LangFor(cfg *Config) render.Lang {
	return render.LangFor(cfg.Locale)
}
