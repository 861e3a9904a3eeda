// Package config holds runtime settings for the BriefPulse client and the
// logic that layers them: defaults, then a JSON file, then environment
// variables, then command-line flags. Later sources win.
package config

import (
	"log/slog"
	"time"
)

// Config holds runtime settings for the BriefPulse CLI.
type Config struct {
	// APIBaseURL is the base URL of the BriefPulse REST API.
	APIBaseURL string `env:"API_BASE_URL"`

	// StoreDSN is the SQLite DSN for the durable local store.
	StoreDSN string `env:"STORE_DSN"`

	// RequestTimeout bounds every API call.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// RetryMax is the transport-level retry cap for retryable failures.
	RetryMax int `env:"RETRY_MAX"`

	// OnlineCheckInterval is how often the client probes API reachability.
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`

	// VerifyRedirectDelay is the pause after a successful magic-link
	// verification before navigating away, long enough to show confirmation.
	VerifyRedirectDelay time.Duration `env:"VERIFY_REDIRECT_DELAY"`

	// SuccessRedirectDelay is the pause on the terminal onboarding step
	// before the dashboard redirect.
	SuccessRedirectDelay time.Duration `env:"SUCCESS_REDIRECT_DELAY"`

	Env      string `env:"ENV"`
	LogLevel string `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:4000"
	c.StoreDSN = "briefpulse.db"
	c.RequestTimeout = 15 * time.Second
	c.RetryMax = 3
	c.OnlineCheckInterval = 3 * time.Second
	c.VerifyRedirectDelay = 1500 * time.Millisecond
	c.SuccessRedirectDelay = 3 * time.Second
	c.Env = "local"
	c.LogLevel = "info"
}

// SlogLevel maps the textual LogLevel to a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if a -c/-config file is given), environment variables, and
// command-line flags, in that order.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
