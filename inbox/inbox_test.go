package inbox_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
	"github.com/next-trace/scg-event-router/inbox"
	storemem "github.com/next-trace/scg-event-router/store/memory"
)

func fastRetry(attempts int) bus.RetryPolicy {
	return bus.RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Timeout:         time.Second,
	}
}

func newInbox(t *testing.T, opts ...inbox.Option) (*inbox.Inbox, *storemem.DeadLetterStore) {
	t.Helper()

	dlq := storemem.NewDeadLetterStore()

	opts = append(opts, inbox.WithRetryPolicy(fastRetry(3)))

	in, err := inbox.New("acc-delivery", dlq, opts...)
	if err != nil {
		t.Fatalf("new inbox: %v", err)
	}

	return in, dlq
}

func mustEnvelope(t *testing.T, source, detailType string, data any) bus.Envelope {
	t.Helper()

	env, err := bus.NewEnvelope(source, detailType, data)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	return env
}

func TestDeliver_ExactMatchDispatch(t *testing.T) {
	in, _ := newInbox(t)

	var created, updated atomic.Int32

	mustSubscribe(t, in, "on-created", "Order.Created", func(ctx context.Context, env bus.Envelope) error {
		created.Add(1)

		return nil
	})
	mustSubscribe(t, in, "on-updated", "Order.Updated", func(ctx context.Context, env bus.Envelope) error {
		updated.Add(1)

		return nil
	})

	if err := in.Deliver(t.Context(), mustEnvelope(t, "order-service", "Order.Created", nil)); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if err := in.Drain(t.Context()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if created.Load() != 1 || updated.Load() != 0 {
		t.Fatalf("exact match broken: created=%d updated=%d", created.Load(), updated.Load())
	}
}

func TestDeliver_CatchAllSeesEverything(t *testing.T) {
	in, _ := newInbox(t)

	var all atomic.Int32

	mustSubscribe(t, in, "tap", bus.MatchAll, func(ctx context.Context, env bus.Envelope) error {
		all.Add(1)

		return nil
	})

	for _, dt := range []string{"Order.Created", "Delivery.Updated", "Totally.Unknown"} {
		if err := in.Deliver(t.Context(), mustEnvelope(t, "order-service", dt, nil)); err != nil {
			t.Fatalf("deliver %s: %v", dt, err)
		}
	}

	if err := in.Drain(t.Context()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if all.Load() != 3 {
		t.Fatalf("catch-all missed envelopes: got %d", all.Load())
	}
}

func TestDeliver_FailingHandlerRetriedThenDeadLettered(t *testing.T) {
	in, dlq := newInbox(t)

	var calls atomic.Int32

	mustSubscribe(t, in, "always-fails", "Order.Created", func(ctx context.Context, env bus.Envelope) error {
		calls.Add(1)

		return errors.New("boom")
	})

	env := mustEnvelope(t, "order-service", "Order.Created", map[string]string{"orderId": "o1"})
	if err := in.Deliver(t.Context(), env); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if err := in.Drain(t.Context()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if calls.Load() != 3 {
		t.Fatalf("want exactly 3 attempts, got %d", calls.Load())
	}

	dls, err := dlq.List(t.Context())
	if err != nil {
		t.Fatalf("list dead letters: %v", err)
	}

	if len(dls) != 1 {
		t.Fatalf("want 1 dead letter, got %d", len(dls))
	}

	if dls[0].Destination != "always-fails" || dls[0].Attempts != 3 || dls[0].Envelope.ID != env.ID {
		t.Fatalf("unexpected dead letter: %+v", dls[0])
	}
}

func TestDeliver_FailureDoesNotBlockOtherSubscriptions(t *testing.T) {
	in, _ := newInbox(t)

	var healthy atomic.Int32

	mustSubscribe(t, in, "broken", "Order.Created", func(ctx context.Context, env bus.Envelope) error {
		return errors.New("boom")
	})
	mustSubscribe(t, in, "healthy", "Order.Created", func(ctx context.Context, env bus.Envelope) error {
		healthy.Add(1)

		return nil
	})

	if err := in.Deliver(t.Context(), mustEnvelope(t, "order-service", "Order.Created", nil)); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if err := in.Drain(t.Context()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if healthy.Load() != 1 {
		t.Fatalf("healthy handler starved: got %d", healthy.Load())
	}
}

func TestDeliver_SlowHandlerTimesOutAndDeadLetters(t *testing.T) {
	dlq := storemem.NewDeadLetterStore()

	in, err := inbox.New("acc-delivery", dlq, inbox.WithRetryPolicy(bus.RetryPolicy{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Timeout:         5 * time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("new inbox: %v", err)
	}

	mustSubscribe(t, in, "too-slow", "Order.Created", func(ctx context.Context, env bus.Envelope) error {
		<-ctx.Done()

		return ctx.Err()
	})

	if err := in.Deliver(t.Context(), mustEnvelope(t, "order-service", "Order.Created", nil)); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if err := in.Drain(t.Context()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	dls, _ := dlq.List(t.Context())
	if len(dls) != 1 || dls[0].Attempts != 2 {
		t.Fatalf("want 1 dead letter after 2 timed-out attempts, got %+v", dls)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	in, _ := newInbox(t)

	h := bus.HandlerFunc(func(ctx context.Context, env bus.Envelope) error { return nil })

	if err := in.Subscribe("dup", "Order.Created", h); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := in.Subscribe("dup", "Order.Updated", h); !errors.Is(err, rerr.ErrSubscriptionExists) {
		t.Fatalf("want ErrSubscriptionExists, got %v", err)
	}

	if err := in.Subscribe("", "Order.Created", h); !errors.Is(err, rerr.ErrInvalidTopology) {
		t.Fatalf("want ErrInvalidTopology for empty name, got %v", err)
	}

	if err := in.Subscribe("x", "", h); !errors.Is(err, rerr.ErrInvalidTopology) {
		t.Fatalf("want ErrInvalidTopology for empty pattern, got %v", err)
	}

	if err := in.Subscribe("y", "Order.Created", nil); !errors.Is(err, rerr.ErrInvalidTopology) {
		t.Fatalf("want ErrInvalidTopology for nil handler, got %v", err)
	}
}

func mustSubscribe(t *testing.T, in *inbox.Inbox, name, pattern string, f func(ctx context.Context, env bus.Envelope) error) {
	t.Helper()

	if err := in.Subscribe(name, pattern, bus.HandlerFunc(f)); err != nil {
		t.Fatalf("subscribe %s: %v", name, err)
	}
}
