package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

const topicPrefix = "events."

// Writer is a minimal Kafka-like writer interface.
// Users can adapt segmentio/kafka-go or any other client to this.
type Writer interface {
	Write(topic string, key, value []byte, headers map[string]string) error
}

// Adapter implements bus.Submitter using an injected Writer. The record key
// is the envelope source so all events from one tenant land on the same
// partition and keep their relative order.
type Adapter struct {
	Writer Writer
}

var _ bus.Submitter = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

// Submit writes each envelope to the bus topic.
func (a *Adapter) Submit(ctx context.Context, busName string, entries []bus.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka submit: %w", rerr.ErrPublishFailed)
	}

	topic := topicPrefix + busName

	for _, env := range entries {
		if err := env.Validate(); err != nil {
			return err
		}

		val, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("kafka submit serialize: %w", errors.Join(rerr.ErrSerializationFailed, err))
		}

		headers := map[string]string{
			"id":          env.ID,
			"source":      env.Source,
			"detail-type": env.DetailType,
		}

		if err = a.Writer.Write(topic, []byte(env.Source), val, headers); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			return fmt.Errorf("kafka submit write: %w", errors.Join(rerr.ErrPublishFailed, err))
		}
	}

	return nil
}
