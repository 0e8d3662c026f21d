package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bdobrica/Kotoba/internal/kotoba/app"
)

type fakeStatus struct {
	count   int64
	pingErr error
}

func (f *fakeStatus) CountRecords(_ context.Context) (int64, error) { return f.count, nil }
func (f *fakeStatus) Ping(_ context.Context) error                 { return f.pingErr }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthServer_Health(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{}, nil)

	w := get(t, hs, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" || resp["database"] != "ok" {
		t.Errorf("unexpected body %v", resp)
	}
	if resp["version"] == "" {
		t.Error("expected build version in the body")
	}
}

func TestHealthServer_RejectsPost(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{}, nil)
	w := httptest.NewRecorder()
	hs.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestHealthServer_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{}, nil)
	if err := hs.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	hs.Stop()
}

func TestHealthServer_HealthDatabaseDown(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{pingErr: errors.New("closed")}, nil)

	w := get(t, hs, "/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w := get(t, hs, "/status"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from /status, got %d", w.Code)
	}
}

func TestHealthServer_Status(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{count: 7}, []string{"birthday", "gift"})

	w := get(t, hs, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Status      string   `json:"status"`
		Agents      []string `json:"agents"`
		RecordCount int64    `json:"record_count"`
		Uptime      float64  `json:"uptime_seconds"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RecordCount != 7 {
		t.Errorf("record_count = %d, want 7", resp.RecordCount)
	}
	if len(resp.Agents) != 2 || resp.Agents[0] != "birthday" {
		t.Errorf("agents = %v", resp.Agents)
	}
	if resp.Uptime < 0 {
		t.Errorf("uptime = %v", resp.Uptime)
	}
}

func TestHealthServer_Metrics(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{}, nil)

	w := get(t, hs, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected the default Go collectors in /metrics output")
	}
}
