package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays cfg with BP_-prefixed environment variables
// (BP_API_BASE_URL, BP_REQUEST_TIMEOUT, ...). Unset variables leave the
// current values in place.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "BP_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
