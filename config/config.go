// Package config loads a tenant process's configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/next-trace/scg-event-router/contract/bus"
)

// Config is the environment contract of one tenant process: its identity,
// the global bus it publishes to, and the dispatch/retry knobs.
type Config struct {
	// ServiceIdentifier stamps the source field of every published envelope.
	ServiceIdentifier string `env:"SERVICE_IDENTIFIER,required,notEmpty"`
	// BusName addresses the global bus on submission.
	BusName string `env:"BUS_NAME" envDefault:"global-bus"`

	// FulfillmentDelay simulates downstream delivery work. It must stay
	// under HandlerTimeout.
	FulfillmentDelay time.Duration `env:"FULFILLMENT_DELAY" envDefault:"5s"`

	HandlerTimeout  time.Duration `env:"HANDLER_TIMEOUT" envDefault:"10s"`
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	InitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"50ms"`
	MaxInterval     time.Duration `env:"RETRY_MAX_INTERVAL" envDefault:"2s"`

	// AuditDBPath, when set, switches the audit and dead-letter stores from
	// in-memory to SQLite at the given path.
	AuditDBPath string `env:"AUDIT_DB_PATH"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.FulfillmentDelay >= cfg.HandlerTimeout {
		return Config{}, fmt.Errorf("parse env: FULFILLMENT_DELAY %s must stay under HANDLER_TIMEOUT %s",
			cfg.FulfillmentDelay, cfg.HandlerTimeout)
	}

	return cfg, nil
}

// RetryPolicy maps the configured knobs onto the dispatch retry policy.
func (c Config) RetryPolicy() bus.RetryPolicy {
	return bus.RetryPolicy{
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: c.InitialInterval,
		MaxInterval:     c.MaxInterval,
		Timeout:         c.HandlerTimeout,
	}.OrDefaults()
}
