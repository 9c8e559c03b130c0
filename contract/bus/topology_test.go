package bus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

func noopHandler() bus.Handler {
	return bus.HandlerFunc(func(ctx context.Context, env bus.Envelope) error { return nil })
}

func TestTopology_Validate(t *testing.T) {
	valid := bus.Topology{
		Bus: "global-bus",
		Tenants: []bus.Tenant{
			{Identifier: "order-service", Account: "acc-orders"},
			{Identifier: "delivery-service", Account: "acc-delivery"},
		},
		Subscriptions: []bus.Subscription{
			{Tenant: "delivery-service", Pattern: "Order.Created", Name: "order-delivery", Handler: noopHandler()},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid topology rejected: %v", err)
	}

	tests := []struct {
		name string
		mut  func(tp *bus.Topology)
	}{
		{"empty bus", func(tp *bus.Topology) { tp.Bus = "" }},
		{"no tenants", func(tp *bus.Topology) { tp.Tenants = nil }},
		{"empty identifier", func(tp *bus.Topology) { tp.Tenants[0].Identifier = "" }},
		{"empty account", func(tp *bus.Topology) { tp.Tenants[1].Account = "" }},
		{"duplicate tenant", func(tp *bus.Topology) { tp.Tenants[1].Identifier = "order-service" }},
		{"unknown subscription tenant", func(tp *bus.Topology) { tp.Subscriptions[0].Tenant = "ghost" }},
		{"empty pattern", func(tp *bus.Topology) { tp.Subscriptions[0].Pattern = "" }},
		{"nil handler", func(tp *bus.Topology) { tp.Subscriptions[0].Handler = nil }},
	}

	for _, tc := range tests {
		tp := bus.Topology{
			Bus: valid.Bus,
			Tenants: []bus.Tenant{
				{Identifier: "order-service", Account: "acc-orders"},
				{Identifier: "delivery-service", Account: "acc-delivery"},
			},
			Subscriptions: []bus.Subscription{
				{Tenant: "delivery-service", Pattern: "Order.Created", Name: "order-delivery", Handler: noopHandler()},
			},
		}
		tc.mut(&tp)

		if err := tp.Validate(); !errors.Is(err, rerr.ErrInvalidTopology) {
			t.Fatalf("%s: want ErrInvalidTopology, got %v", tc.name, err)
		}
	}
}

func TestTopology_AccountsDeduplicated(t *testing.T) {
	tp := bus.Topology{
		Bus: "global-bus",
		Tenants: []bus.Tenant{
			{Identifier: "order-service", Account: "acc-shared"},
			{Identifier: "billing-service", Account: "acc-shared"},
			{Identifier: "delivery-service", Account: "acc-delivery"},
		},
	}

	got := tp.Accounts()
	want := []string{"acc-shared", "acc-delivery"}

	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}

func TestTopology_TenantByIdentifier(t *testing.T) {
	tp := bus.Topology{
		Bus:     "global-bus",
		Tenants: []bus.Tenant{{Identifier: "order-service", Account: "acc-orders"}},
	}

	tn, ok := tp.TenantByIdentifier("order-service")
	if !ok || tn.Account != "acc-orders" {
		t.Fatalf("lookup failed: %+v %v", tn, ok)
	}

	if _, ok := tp.TenantByIdentifier("ghost"); ok {
		t.Fatal("unknown tenant resolved")
	}
}
