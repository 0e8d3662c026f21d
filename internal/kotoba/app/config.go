package app

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/bdobrica/Kotoba/common/environment"
	"github.com/bdobrica/Kotoba/internal/kotoba/agents"
	"github.com/bdobrica/Kotoba/internal/kotoba/matrix"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/ratelimit"
)

// Defaults for values not set in the environment.
const (
	DefaultDatabasePath   = "./kotoba.db"
	DefaultTimezone       = "Asia/Tokyo"
	DefaultCommandTimeout = 10 * time.Second
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	LogLevel     string
	LogFormat    string

	// Locale selects which relative-date words and reply language apply.
	Locale normalize.Locale
	// Location is the timezone "today" is computed in.
	Location *time.Location
	// Agents lists the enabled built-in agents in matching order.
	Agents []string
	// RulesFile is an optional YAML file with an operator-defined agent. It
	// is tried after the built-in agents.
	RulesFile string

	// HTTPAddr is the TCP address for the optional health/status HTTP server
	// (e.g. ":8080"). When empty the server is disabled.
	HTTPAddr string
	// RateLimit is the number of messages one sender may send per minute.
	RateLimit int
	// CommandTimeout bounds the handling of one message.
	CommandTimeout time.Duration

	Matrix matrix.Config
}

// LoadDotEnv loads path into the process environment when it exists.
// Variables already set win over the file.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ConfigFromEnv reads the configuration from environment variables.
func ConfigFromEnv() (*Config, error) {
	env := environment.New()
	locale, err := normalize.ParseLocale(env.StringOr("KOTOBA_LOCALE", string(normalize.LocaleAny)))
	if err != nil {
		return nil, fmt.Errorf("KOTOBA_LOCALE: %w", err)
	}
	tzName := env.StringOr("KOTOBA_TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("KOTOBA_TIMEZONE: %w", err)
	}

	cfg := &Config{
		DatabasePath:   env.StringOr("KOTOBA_DATABASE_PATH", DefaultDatabasePath),
		LogLevel:       env.StringOr("KOTOBA_LOG_LEVEL", "info"),
		LogFormat:      env.StringOr("KOTOBA_LOG_FORMAT", "text"),
		Locale:         locale,
		Location:       loc,
		Agents:         env.StringSliceOr("KOTOBA_AGENTS", agents.Names()),
		RulesFile:      env.StringOr("KOTOBA_RULES_FILE", ""),
		HTTPAddr:       env.StringOr("KOTOBA_HTTP_ADDR", ""),
		RateLimit:      env.IntOr("KOTOBA_RATE_LIMIT", ratelimit.DefaultLimit),
		CommandTimeout: env.DurationOr("KOTOBA_COMMAND_TIMEOUT", DefaultCommandTimeout),
		Matrix: matrix.Config{
			Homeserver:     env.StringOr("MATRIX_HOMESERVER", ""),
			UserID:         env.StringOr("MATRIX_USER_ID", ""),
			AccessToken:    env.StringOr("MATRIX_ACCESS_TOKEN", ""),
			Rooms:          env.StringSliceOr("MATRIX_ROOMS", nil),
			AllowedSenders: env.StringSliceOr("MATRIX_ALLOWED_SENDERS", nil),
		},
	}
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every mode needs.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("KOTOBA_DATABASE_PATH must not be empty")
	}
	if len(c.Agents) == 0 && c.RulesFile == "" {
		return errors.New("no agents enabled: set KOTOBA_AGENTS or KOTOBA_RULES_FILE")
	}
	for _, name := range c.Agents {
		if _, ok := agents.Lookup(name); !ok {
			return fmt.Errorf("KOTOBA_AGENTS: unknown agent %q", name)
		}
	}
	if c.CommandTimeout <= 0 {
		return errors.New("KOTOBA_COMMAND_TIMEOUT must be positive")
	}
	return nil
}

// ValidateMatrix checks the settings the Matrix bot needs.
func (c *Config) ValidateMatrix() error {
	switch {
	case c.Matrix.Homeserver == "":
		return errors.New("MATRIX_HOMESERVER is required")
	case c.Matrix.UserID == "":
		return errors.New("MATRIX_USER_ID is required")
	case c.Matrix.AccessToken == "":
		return errors.New("MATRIX_ACCESS_TOKEN is required")
	}
	return nil
}

// Clock returns "now" in the configured timezone.
func (c *Config) Clock() func() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// LogFields returns the configuration as a flat map for startup logging.
func (c *Config) LogFields() map[string]any {
	tz := ""
	if c.Location != nil {
		tz = c.Location.String()
	}
	return map[string]any{
		"database_path":       c.DatabasePath,
		"locale":              string(c.Locale),
		"timezone":            tz,
		"agents":              c.Agents,
		"rules_file":          c.RulesFile,
		"http_addr":           c.HTTPAddr,
		"rate_limit":          c.RateLimit,
		"command_timeout":     c.CommandTimeout.String(),
		"matrix_homeserver":   c.Matrix.Homeserver,
		"matrix_user_id":      c.Matrix.UserID,
		"matrix_access_token": c.Matrix.AccessToken,
		"matrix_rooms":        c.Matrix.Rooms,
	}
}
