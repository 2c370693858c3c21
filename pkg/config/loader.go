package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
//	    CSRFCookieName string `env:"CSRF_COOKIE_NAME" envDefault:"roorq_csrf"`
//	}
func Load(cfg any) error {
	return LoadWithPrefix(cfg, "")
}

// LoadWithPrefix is Load with every variable name prefixed, so several
// deployments of the storefront can share one environment (ROORQ_HTTP_PORT).
func LoadWithPrefix(cfg any, prefix string) error {
	opts := env.Options{Prefix: prefix}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
