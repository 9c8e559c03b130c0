package config_test

import (
	"testing"
	"time"

	"github.com/next-trace/scg-event-router/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_IDENTIFIER", "order-service")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServiceIdentifier != "order-service" {
		t.Fatalf("identifier: %q", cfg.ServiceIdentifier)
	}

	if cfg.BusName != "global-bus" {
		t.Fatalf("bus default: %q", cfg.BusName)
	}

	if cfg.FulfillmentDelay != 5*time.Second || cfg.HandlerTimeout != 10*time.Second {
		t.Fatalf("timing defaults: %+v", cfg)
	}

	p := cfg.RetryPolicy()
	if p.MaxAttempts != 3 || p.Timeout != 10*time.Second {
		t.Fatalf("retry policy: %+v", p)
	}
}

func TestLoad_RequiresIdentifier(t *testing.T) {
	// The variable may leak in from the process environment.
	t.Setenv("SERVICE_IDENTIFIER", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("want error for missing SERVICE_IDENTIFIER")
	}
}

func TestLoad_RejectsDelayOverTimeout(t *testing.T) {
	t.Setenv("SERVICE_IDENTIFIER", "delivery-service")
	t.Setenv("FULFILLMENT_DELAY", "15s")
	t.Setenv("HANDLER_TIMEOUT", "10s")

	if _, err := config.Load(); err == nil {
		t.Fatal("want error when delay exceeds handler timeout")
	}
}
