package app_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/agents"
	"github.com/bdobrica/Kotoba/internal/kotoba/app"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/ratelimit"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"KOTOBA_DATABASE_PATH", "KOTOBA_LOCALE", "KOTOBA_TIMEZONE", "KOTOBA_AGENTS", "KOTOBA_RATE_LIMIT"} {
		t.Setenv(k, "")
	}
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.DatabasePath != app.DefaultDatabasePath {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Locale != normalize.LocaleAny {
		t.Errorf("Locale = %q", cfg.Locale)
	}
	if cfg.Location.String() != app.DefaultTimezone {
		t.Errorf("Location = %v", cfg.Location)
	}
	if strings.Join(cfg.Agents, ",") != strings.Join(agents.Names(), ",") {
		t.Errorf("Agents = %v", cfg.Agents)
	}
	if cfg.RateLimit != ratelimit.DefaultLimit {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
	if cfg.CommandTimeout != app.DefaultCommandTimeout {
		t.Errorf("CommandTimeout = %v", cfg.CommandTimeout)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("KOTOBA_LOCALE", "en")
	t.Setenv("KOTOBA_TIMEZONE", "UTC")
	t.Setenv("KOTOBA_AGENTS", "expense, gift")
	t.Setenv("KOTOBA_COMMAND_TIMEOUT", "3s")
	t.Setenv("MATRIX_ROOMS", "!a:example.org, !b:example.org")

	cfg, err := app.ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Locale != normalize.LocaleEN {
		t.Errorf("Locale = %q", cfg.Locale)
	}
	if got := strings.Join(cfg.Agents, ","); got != "expense,gift" {
		t.Errorf("Agents = %q", got)
	}
	if cfg.CommandTimeout != 3*time.Second {
		t.Errorf("CommandTimeout = %v", cfg.CommandTimeout)
	}
	if len(cfg.Matrix.Rooms) != 2 || cfg.Matrix.Rooms[1] != "!b:example.org" {
		t.Errorf("Rooms = %v", cfg.Matrix.Rooms)
	}
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"bad locale":   {"KOTOBA_LOCALE", "fr"},
		"bad timezone": {"KOTOBA_TIMEZONE", "Mars/Olympus"},
		"bad agent":    {"KOTOBA_AGENTS", "weather"},
		"bad limit":    {"KOTOBA_RATE_LIMIT", "lots"},
		"bad timeout":  {"KOTOBA_COMMAND_TIMEOUT", "10"},
		"zero timeout": {"KOTOBA_COMMAND_TIMEOUT", "0s"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := app.ConfigFromEnv(); err == nil {
				t.Errorf("expected an error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestValidateMatrix(t *testing.T) {
	cfg := &app.Config{}
	if err := cfg.ValidateMatrix(); err == nil || !strings.Contains(err.Error(), "MATRIX_HOMESERVER") {
		t.Errorf("expected homeserver error, got %v", err)
	}
	cfg.Matrix.Homeserver = "https://matrix.example.org"
	cfg.Matrix.UserID = "@kotoba:example.org"
	if err := cfg.ValidateMatrix(); err == nil || !strings.Contains(err.Error(), "MATRIX_ACCESS_TOKEN") {
		t.Errorf("expected token error, got %v", err)
	}
	cfg.Matrix.AccessToken = "syt_x"
	if err := cfg.ValidateMatrix(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KOTOBA_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KOTOBA_TEST_DOTENV", "")
	os.Unsetenv("KOTOBA_TEST_DOTENV")

	if err := app.LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("KOTOBA_TEST_DOTENV"); got != "from-file" {
		t.Errorf("KOTOBA_TEST_DOTENV = %q", got)
	}
	if err := app.LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("a missing file is not an error: %v", err)
	}
}
