package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Option customises how Load resolves variables.
type Option func(*env.Options)

// WithPrefix prepends prefix to every `env` tag before lookup.
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithEnvironment resolves variables from the given map instead of the
// process environment.
func WithEnvironment(environ map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = environ
	}
}

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"PORT" envDefault:"5000"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any, opts ...Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(cfg, o); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
