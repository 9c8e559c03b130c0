// Package memory builds a fully in-process deployment backed by in-memory
// stores, for tests, examples, and local development.
package memory

import (
	"context"
	"time"

	"github.com/next-trace/scg-event-router/contract/bus"
	"github.com/next-trace/scg-event-router/eventrouter"
)

const drainGrace = 5 * time.Second

// New constructs a Bridge over the topology with default in-memory stores
// and returns it along with a cleanup function that drains in-flight work.
func New(topo bus.Topology, opts ...eventrouter.Option) (*eventrouter.Bridge, func(), error) {
	b, err := eventrouter.New(topo, opts...)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainGrace)
		defer cancel()

		_ = b.Drain(ctx)
	}

	return b, cleanup, nil
}
