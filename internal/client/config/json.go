package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// jsonDuration accepts either a Go duration string ("15s") or integer
// nanoseconds, so config files can use whichever is convenient.
type jsonDuration struct {
	time.Duration
}

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
}

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Parsed values
// are copied into the runtime Config; absent fields leave it untouched.
type jsonConfig struct {
	APIBaseURL           *string       `json:"api_base_url"`
	StoreDSN             *string       `json:"store_dsn"`
	RequestTimeout       *jsonDuration `json:"request_timeout"`
	RetryMax             *int          `json:"retry_max"`
	OnlineCheckInterval  *jsonDuration `json:"online_check_interval"`
	VerifyRedirectDelay  *jsonDuration `json:"verify_redirect_delay"`
	SuccessRedirectDelay *jsonDuration `json:"success_redirect_delay"`
	Env                  *string       `json:"env"`
	LogLevel             *string       `json:"log_level"`
}

// parseJSON overlays cfg with values from the JSON file named by the -c or
// -config flag. No flag, no file, no overlay.
func parseJSON(cfg *Config) error {
	path := jsonConfigFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if jc.APIBaseURL != nil {
		cfg.APIBaseURL = *jc.APIBaseURL
	}
	if jc.StoreDSN != nil {
		cfg.StoreDSN = *jc.StoreDSN
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RetryMax != nil {
		cfg.RetryMax = *jc.RetryMax
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.VerifyRedirectDelay != nil {
		cfg.VerifyRedirectDelay = jc.VerifyRedirectDelay.Duration
	}
	if jc.SuccessRedirectDelay != nil {
		cfg.SuccessRedirectDelay = jc.SuccessRedirectDelay.Duration
	}
	if jc.Env != nil {
		cfg.Env = *jc.Env
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	return nil
}
