// Package orders implements the order side of the fulfillment choreography:
// creating orders, announcing them on the bus, and folding delivery
// confirmations back into the order.
package orders

import (
	"context"
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
	EventOrderUpdated    = "Order.Updated"
	EventDeliveryUpdated = "Delivery.Updated"
)

// Order is the business entity owned by this service. Timestamps are epoch
// milliseconds on the wire.
type Order struct {
	OrderID     string `json:"orderId"`
	CreatedAt   int64  `json:"createdAt"`
	DeliveredAt int64  `json:"deliveredAt,omitempty"`
	UpdatedAt   int64  `json:"updatedAt,omitempty"`
}

// deliveryUpdate is this service's view of the Delivery.Updated payload.
// Only the wire format is shared with the delivery service, never types.
type deliveryUpdate struct {
	Order       Order `json:"order"`
	DeliveredAt int64 `json:"deliveredAt"`
}

// Service creates and updates orders. It is stateless between invocations;
// every order travels inside the events themselves.
type Service struct {
	pub    *publisher.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService constructs the order service around its publisher.
func NewService(pub *publisher.Publisher, opts ...Option) (*Service, error) {
	if pub == nil {
		return nil, fmt.Errorf("orders: nil publisher")
	}

	s := &Service{pub: pub, now: time.Now}

	for _, o := range opts {
		o(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	return s, nil
}

// CreateOrder generates a fresh order and announces it with Order.Created.
// The order is returned to the caller synchronously; everything downstream
// (fulfillment, the eventual Order.Updated) happens through the bus.
func (s *Service) CreateOrder(ctx context.Context) (Order, error) {
	order := Order{
		OrderID:   uuid.NewString(),
		CreatedAt: s.now().UnixMilli(),
	}

	if err := s.pub.Publish(ctx, EventOrderCreated, order); err != nil {
		return Order{}, err
	}

	s.logger.InfoContext(ctx, "order created", "orderId", order.OrderID)

	return order, nil
}

// DeliveryUpdateHandler reacts to Delivery.Updated events: it merges the
// delivery confirmation into the original order and emits Order.Updated.
// Redelivery of the same confirmation reproduces the same merged order (only
// updatedAt moves), so the handler is safe under at-least-once dispatch.
func (s *Service) DeliveryUpdateHandler() bus.Handler {
	return bus.HandlerFunc(func(ctx context.Context, env bus.Envelope) error {
		var upd deliveryUpdate
		if err := env.DecodeData(&upd); err != nil {
			return err
		}

		merged := upd.Order
		merged.DeliveredAt = upd.DeliveredAt
		merged.UpdatedAt = s.now().UnixMilli()

		if err := s.pub.Publish(ctx, EventOrderUpdated, merged); err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "order updated",
			"orderId", merged.OrderID, "deliveredAt", merged.DeliveredAt)

		return nil
	})
}
