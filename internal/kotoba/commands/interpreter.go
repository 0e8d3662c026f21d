package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/bdobrica/Kotoba/common/trace"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

// Options configures an Interpreter.
type Options struct {
	Locale normalize.Locale
	// Clock supplies "now" for relative dates. Nil means time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Interpreter runs the whole pipeline for one agent: match, build, dispatch.
// It holds only immutable data and is safe for concurrent use.
type Interpreter struct {
	agent      string
	matcher    *intent.Matcher
	builder    *Builder
	dispatcher *Dispatcher
}

// NewInterpreter wires a sealed registry to store.
func NewInterpreter(reg *Registry, store storage.Storage, opts Options) (*Interpreter, error) {
	m, schemas, handlers, err := reg.compiled()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("agent", reg.Agent())
	return &Interpreter{
		agent:      reg.Agent(),
		matcher:    m,
		builder:    NewBuilder(schemas, opts.Locale, opts.Clock),
		dispatcher: NewDispatcher(handlers, store, logger),
	}, nil
}

// Agent returns the agent this interpreter serves.
func (in *Interpreter) Agent() string { return in.agent }

// Parse recognizes and builds text without running it. ok is false when the
// text is not a command for this agent.
func (in *Interpreter) Parse(text string) (cmd *Command, ok bool, err error) {
	_, cmd, ok, err = in.parse(text)
	return cmd, ok, err
}

func (in *Interpreter) parse(text string) (intent.Match, *Command, bool, error) {
	m, ok := in.matcher.Match(normalize.Fold(text))
	if !ok {
		return intent.Match{}, nil, false, nil
	}
	cmd, err := in.builder.BuildMatch(m, text)
	return m, cmd, true, err
}

// Handle runs text through the pipeline. ok is false when the text is not a
// command for this agent; no handler or storage call happens in that case,
// nor when a required field fails to parse.
func (in *Interpreter) Handle(ctx context.Context, text string) (ActionResult, bool) {
	m, cmd, ok, err := in.parse(text)
	if !ok {
		return ActionResult{}, false
	}
	ctx, traceID := trace.Ensure(ctx)
	if err != nil {
		return ParseFailure(m.Intent, traceID, err), true
	}
	return in.dispatcher.Dispatch(ctx, cmd), true
}
