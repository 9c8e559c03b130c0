package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

const subjectPrefix = "events."

// Client is a minimal NATS-like publisher interface decoupled from any
// concrete library. Users can provide a wrapper around their NATS
// connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter implements bus.Submitter over an injected NATS-like Client. It is
// the remote counterpart of the in-process router ingress: tenants publish
// here and a bridge process consumes the subject into Router.Ingest.
type Adapter struct {
	Client Client
}

var _ bus.Submitter = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

// Submit publishes each envelope to the bus subject.
func (a *Adapter) Submit(ctx context.Context, busName string, entries []bus.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats submit: %w", rerr.ErrPublishFailed)
	}

	subject := subjectPrefix + busName

	for _, env := range entries {
		if err := env.Validate(); err != nil {
			return err
		}

		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("nats submit serialize: %w", errors.Join(rerr.ErrSerializationFailed, err))
		}

		if err := a.Client.Publish(subject, body, envelopeHeaders(env)); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			return fmt.Errorf("nats submit publish: %w", errors.Join(rerr.ErrPublishFailed, err))
		}
	}

	return nil
}

func envelopeHeaders(env bus.Envelope) map[string]string {
	return map[string]string{
		"id":          env.ID,
		"source":      env.Source,
		"detail-type": env.DetailType,
	}
}
