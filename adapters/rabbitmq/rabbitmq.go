package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

// PubMsg is the wire message handed to a Publisher.
type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

// Publisher is a minimal AMQP-like publisher interface decoupled from any
// concrete library.
type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter implements bus.Submitter over an injected Publisher. Envelopes are
// published to the events topic exchange with routing key <bus>.<detailType>
// so a consuming bridge can bind per bus or per event type.
type Adapter struct {
	Publisher Publisher
}

var _ bus.Submitter = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// Submit publishes each envelope to the events exchange.
func (a *Adapter) Submit(ctx context.Context, busName string, entries []bus.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq submit: %w", rerr.ErrPublishFailed)
	}

	for _, env := range entries {
		if err := env.Validate(); err != nil {
			return err
		}

		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("rabbitmq submit serialize: %w", errors.Join(rerr.ErrSerializationFailed, err))
		}

		msg := PubMsg{
			Exchange:   eventsExchange,
			RoutingKey: busName + "." + env.DetailType,
			Body:       body,
			Headers: map[string]string{
				"id":          env.ID,
				"source":      env.Source,
				"detail-type": env.DetailType,
			},
		}

		if err := a.Publisher.Publish(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			return fmt.Errorf("rabbitmq submit publish: %w", errors.Join(rerr.ErrPublishFailed, err))
		}
	}

	return nil
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	var h amqp.Table
	if len(m.Headers) > 0 {
		h = amqp.Table{}
		for k, v := range m.Headers {
			h[k] = v
		}
	}

	return p.ch.PublishWithContext(
		ctx,
		m.Exchange,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			Headers:     h,
			Body:        m.Body,
			ContentType: "application/json",
		},
	)
}

// NewWithAMQPChannel wraps an existing channel. The caller owns the channel
// lifecycle and must have declared the events exchange.
func NewWithAMQPChannel(ch *amqp.Channel) *Adapter {
	return &Adapter{Publisher: amqpChannelPublisher{ch: ch}}
}
