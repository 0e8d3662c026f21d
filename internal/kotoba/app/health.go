package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bdobrica/Kotoba/common/version"
)

// probeTimeout bounds each database check made on behalf of an HTTP request.
const probeTimeout = 2 * time.Second

// statusProvider is what the health server reads from the store.
type statusProvider interface {
	CountRecords(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// HealthServer serves /health, /status and /metrics on KOTOBA_HTTP_ADDR.
type HealthServer struct {
	addr      string
	store     statusProvider
	agents    []string
	startedAt time.Time
	handler   http.Handler
	server    *http.Server
}

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	version.Build
}

type statusBody struct {
	healthBody
	StartedAt   time.Time `json:"started_at"`
	Uptime      float64   `json:"uptime_seconds"`
	Agents      []string  `json:"agents"`
	RecordCount int64     `json:"record_count"`
}

// NewHealthServer builds the handler; Start opens the listener.
func NewHealthServer(addr string, sp statusProvider, agents []string) *HealthServer {
	hs := &HealthServer{addr: addr, store: sp, agents: agents, startedAt: time.Now()}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", hs.health)
	mux.HandleFunc("GET /status", hs.status)
	mux.Handle("GET /metrics", promhttp.Handler())
	hs.handler = mux
	return hs
}

func (h *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background until ctx is done.
func (h *HealthServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.server = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "err", err)
		}
	}()
	context.AfterFunc(ctx, h.Stop)
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (h *HealthServer) Stop() {
	if h.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		slog.Warn("http server shutdown", "err", err)
	}
}

// probe reports the database state; 503 when it does not answer.
func (h *HealthServer) probe(ctx context.Context) (healthBody, int) {
	body := healthBody{Status: "ok", Database: "ok", Build: version.Get()}
	if h.store == nil {
		body.Database = "none"
		return body, http.StatusOK
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("database ping failed", "err", err)
		body.Status, body.Database = "unavailable", "unreachable"
		return body, http.StatusServiceUnavailable
	}
	return body, http.StatusOK
}

func (h *HealthServer) health(w http.ResponseWriter, r *http.Request) {
	body, code := h.probe(r.Context())
	respond(w, code, body)
}

func (h *HealthServer) status(w http.ResponseWriter, r *http.Request) {
	hb, code := h.probe(r.Context())
	body := statusBody{
		healthBody: hb,
		StartedAt:  h.startedAt,
		Uptime:     time.Since(h.startedAt).Seconds(),
		Agents:     h.agents,
	}
	if code == http.StatusOK && h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		n, err := h.store.CountRecords(ctx)
		if err != nil {
			slog.Warn("failed to count records", "err", err)
		}
		body.RecordCount = n
	}
	respond(w, code, body)
}

func respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}
