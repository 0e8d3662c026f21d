// Package app wires the Kotoba bot together: storage, agents, the Matrix
// transport and the health server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/matrix"
	"github.com/bdobrica/Kotoba/internal/kotoba/observability"
	"github.com/bdobrica/Kotoba/internal/kotoba/ratelimit"
	"github.com/bdobrica/Kotoba/internal/kotoba/store"
)

// replier sends a reply to a message. *matrix.Client implements it.
type replier interface {
	ReplyToMessage(ctx context.Context, roomID, eventID, html, plaintext string) error
}

// App is the Matrix bot: one store, one pipeline, one Matrix client.
type App struct {
	config       *Config
	store        *store.Store
	matrix       *matrix.Client
	replier      replier
	pipeline     *Pipeline
	limiter      *ratelimit.Limiter
	healthServer *HealthServer
	stopOnce     sync.Once
}

// New opens the database, builds the enabled agents and prepares the Matrix
// client. Nothing starts until Run.
func New(cfg *Config) (*App, error) {
	if err := cfg.ValidateMatrix(); err != nil {
		return nil, err
	}
	slog.Info("starting Kotoba", observability.ConfigAttrs(cfg.LogFields())...)

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	st = st.WithClock(cfg.Clock())

	interpreters, err := BuildInterpreters(cfg, st, slog.Default())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to build agents: %w", err)
	}

	mcfg := cfg.Matrix
	mcfg.DB = st.DB()
	mc, err := matrix.New(&mcfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	limiter := ratelimit.New(cfg.RateLimit, time.Minute)
	a := &App{
		config:  cfg,
		store:   st,
		matrix:  mc,
		replier: mc,
		limiter: limiter,
		pipeline: NewPipeline(interpreters, PipelineOptions{
			Lang:    LangFor(cfg),
			Timeout: cfg.CommandTimeout,
			Limiter: limiter,
			Auditor: st,
		}),
	}
	if cfg.HTTPAddr != "" {
		a.healthServer = NewHealthServer(cfg.HTTPAddr, st, a.pipeline.Agents())
	}
	return a, nil
}

// Run serves until ctx is cancelled. A health server that cannot bind is
// logged and skipped; a Matrix client that cannot start is fatal.
func (a *App) Run(ctx context.Context) error {
	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			slog.Warn("running without the http server", "err", err)
		}
	}
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}
	go a.forgetIdleSenders(ctx)

	slog.Info("listening for commands", "agents", a.pipeline.Agents(), "rooms", a.config.Matrix.Rooms)
	<-ctx.Done()
	return nil
}

// Stop releases everything New and Run acquired. It is safe to call more
// than once.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.matrix.Stop()
		if a.healthServer != nil {
			a.healthServer.Stop()
		}
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close database", "err", err)
		}
		slog.Info("stopped")
	})
}

// handleMessage runs one incoming message through the pipeline and replies
// when an agent recognized it. Ordinary chat is ignored silently.
func (a *App) handleMessage(ctx context.Context, msg matrix.Message) {
	out, ok := a.pipeline.Handle(ctx, msg.Sender, msg.Body)
	if !ok {
		return
	}
	if err := a.replier.ReplyToMessage(ctx, msg.RoomID, msg.EventID, out.HTML, out.Plain); err != nil {
		slog.Error("failed to send reply",
			"room", msg.RoomID, "trace_id", out.Result.TraceID, "err", err)
	}
}

func (a *App) forgetIdleSenders(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.Forget()
		}
	}
}
