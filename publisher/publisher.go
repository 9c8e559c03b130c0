// Package publisher provides the small client every handler uses to format
// and submit events to the global bus in a consistent shape.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

// Publisher stamps envelopes with the calling tenant's identity and submits
// them to the configured bus. It does not retry: acceptance by the router is
// all a publish guarantees, and the caller decides what a failed submission
// means for it.
type Publisher struct {
	source  string
	busName string
	sub     bus.Submitter
	logger  *slog.Logger
}

// New constructs a publisher for one tenant. The submitter is either an
// in-process router ingress or a broker adapter.
func New(source, busName string, sub bus.Submitter, logger *slog.Logger) (*Publisher, error) {
	if source == "" {
		return nil, fmt.Errorf("new publisher: source is empty: %w", rerr.ErrInvalidEnvelope)
	}

	if busName == "" {
		return nil, fmt.Errorf("new publisher %s: bus name is empty: %w", source, rerr.ErrUnknownBus)
	}

	if sub == nil {
		return nil, fmt.Errorf("new publisher %s: nil submitter: %w", source, rerr.ErrPublishFailed)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Publisher{source: source, busName: busName, sub: sub, logger: logger}, nil
}

// Source returns the tenant identity stamped on published envelopes.
func (p *Publisher) Source() string { return p.source }

// Publish builds an envelope for the event and submits it. The returned
// error covers submission only; delivery and handling stay asynchronous and
// invisible to the caller.
func (p *Publisher) Publish(ctx context.Context, detailType string, data any) error {
	env, err := bus.NewEnvelope(p.source, detailType, data)
	if err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "sending event",
		"bus", p.busName, "source", p.source, "detailType", detailType, "id", env.ID)

	if err := p.sub.Submit(ctx, p.busName, []bus.Envelope{env}); err != nil {
		return fmt.Errorf("publish %s: %w", detailType, errors.Join(rerr.ErrPublishFailed, err))
	}

	return nil
}
