// Package delivery implements the fulfillment side of the choreography: it
// consumes Order.Created events, performs the (simulated) delivery work, and
// reports back with Delivery.Updated.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/next-trace/scg-event-router/contract/bus"
	"github.com/next-trace/scg-event-router/publisher"
)

// Event names this service emits and consumes.
const (
	EventOrderCreated    = "Order.Created"
	EventDeliveryUpdated = "Delivery.Updated"
)

// Update is the Delivery.Updated payload. The order travels through as the
// opaque blob it arrived as; this service does not own the order schema.
type Update struct {
	Order       json.RawMessage `json:"order"`
	DeliveryID  string          `json:"deliveryId"`
	DeliveredAt int64           `json:"deliveredAt"`
}

// Fulfiller handles Order.Created events. The configured delay models
// variable-latency downstream work; it must stay under the dispatcher's
// per-invocation timeout and respects cancellation.
//
// The handler is idempotent in the at-least-once sense: redelivering the
// same Order.Created independently produces a fresh, internally consistent
// Delivery.Updated for the same order.
type Fulfiller struct {
	pub    *publisher.Publisher
	delay  time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ bus.Handler = (*Fulfiller)(nil)

// Option configures a Fulfiller.
type Option func(*Fulfiller)

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option { return func(f *Fulfiller) { f.logger = l } }

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option { return func(f *Fulfiller) { f.now = now } }

// NewFulfiller constructs the fulfillment handler.
func NewFulfiller(pub *publisher.Publisher, delay time.Duration, opts ...Option) (*Fulfiller, error) {
	if pub == nil {
		return nil, fmt.Errorf("delivery: nil publisher")
	}

	f := &Fulfiller{pub: pub, delay: delay, now: time.Now}

	for _, o := range opts {
		o(f)
	}

	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}

	return f, nil
}

// Handle performs the fulfillment step for one Order.Created envelope and
// publishes the resulting Delivery.Updated.
func (f *Fulfiller) Handle(ctx context.Context, env bus.Envelope) error {
	order := append(json.RawMessage(nil), env.Detail.Data...)

	// Simulated delivery processing.
	if f.delay > 0 {
		t := time.NewTimer(f.delay)
		defer t.Stop()

		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	upd := Update{
		Order:       order,
		DeliveryID:  uuid.NewString(),
		DeliveredAt: f.now().UnixMilli(),
	}

	if err := f.pub.Publish(ctx, EventDeliveryUpdated, upd); err != nil {
		return err
	}

	f.logger.InfoContext(ctx, "delivery completed",
		"deliveryId", upd.DeliveryID, "deliveredAt", upd.DeliveredAt)

	return nil
}
