// Package inbox implements the per-account local bus: the last-mile
// dispatcher that matches delivered envelopes against registered
// subscriptions and invokes handlers with bounded retries.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

// LoggingSubscription is the name of the catch-all subscription every inbox
// carries unconditionally. It mirrors the match-all logging rule of the
// global bus on the local side.
const LoggingSubscription = "local-logging"

type subscription struct {
	name    string
	pattern string
	handler bus.Handler
}

// Inbox is one account's landing zone. Deliver acknowledges before handlers
// run; handler invocation is asynchronous, retried with backoff up to the
// configured attempt bound, and dead-lettered on exhaustion. A failing
// handler never blocks delivery to other matching subscriptions.
type Inbox struct {
	account string
	dlq     bus.DeadLetterStore
	retry   bus.RetryPolicy

	mu   sync.RWMutex
	subs []subscription

	wg     sync.WaitGroup
	logger *slog.Logger
	now    func() time.Time
}

var _ bus.Deliverer = (*Inbox)(nil)

// Option configures an Inbox instance.
type Option func(*Inbox)

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option { return func(in *Inbox) { in.logger = l } }

// WithRetryPolicy bounds handler retries. Zero fields fall back to defaults.
func WithRetryPolicy(p bus.RetryPolicy) Option { return func(in *Inbox) { in.retry = p } }

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option { return func(in *Inbox) { in.now = now } }

// New constructs an inbox for one account. The catch-all logging
// subscription is registered here, so every inbox observes every envelope it
// accepts.
func New(account string, dlq bus.DeadLetterStore, opts ...Option) (*Inbox, error) {
	if account == "" {
		return nil, fmt.Errorf("new inbox: account is empty: %w", rerr.ErrInvalidTopology)
	}

	if dlq == nil {
		return nil, fmt.Errorf("new inbox %s: nil dead-letter store: %w", account, rerr.ErrInvalidTopology)
	}

	in := &Inbox{
		account: account,
		dlq:     dlq,
		retry:   bus.DefaultRetryPolicy(),
		now:     time.Now,
	}

	for _, o := range opts {
		o(in)
	}

	in.retry = in.retry.OrDefaults()

	if in.logger == nil {
		in.logger = slog.New(slog.DiscardHandler)
	}

	in.subs = append(in.subs, subscription{
		name:    LoggingSubscription,
		pattern: bus.MatchAll,
		handler: bus.HandlerFunc(in.logEnvelope),
	})

	return in, nil
}

// Account returns the isolation boundary this inbox belongs to.
func (in *Inbox) Account() string { return in.account }

// Subscribe registers a handler for an event pattern. Subscriptions are
// expected at topology-build time; names must be unique per inbox because
// dead-letter records are keyed on them.
func (in *Inbox) Subscribe(name, pattern string, h bus.Handler) error {
	if name == "" {
		return fmt.Errorf("subscribe on %s: empty name: %w", in.account, rerr.ErrInvalidTopology)
	}

	if pattern == "" {
		return fmt.Errorf("subscribe %s on %s: empty pattern: %w", name, in.account, rerr.ErrInvalidTopology)
	}

	if h == nil {
		return fmt.Errorf("subscribe %s on %s: nil handler: %w", name, in.account, rerr.ErrInvalidTopology)
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	for _, s := range in.subs {
		if s.name == name {
			return fmt.Errorf("subscribe %s on %s: %w", name, in.account, rerr.ErrSubscriptionExists)
		}
	}

	in.subs = append(in.subs, subscription{name: name, pattern: pattern, handler: h})

	return nil
}

// Deliver accepts an envelope from the router or a local publisher and
// dispatches it to every matching subscription. The nil return acknowledges
// acceptance only; handlers run asynchronously afterwards.
func (in *Inbox) Deliver(ctx context.Context, env bus.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	in.mu.RLock()
	matched := make([]subscription, 0, len(in.subs))

	for _, s := range in.subs {
		if s.pattern == bus.MatchAll || s.pattern == env.DetailType {
			matched = append(matched, s)
		}
	}
	in.mu.RUnlock()

	// Handlers outlive the delivery call; the router's ack must not be
	// chained to any handler's lifetime.
	hctx := context.WithoutCancel(ctx)

	for _, s := range matched {
		in.wg.Add(1)

		go in.dispatch(hctx, s, env.Clone())
	}

	return nil
}

func (in *Inbox) dispatch(ctx context.Context, s subscription, env bus.Envelope) {
	defer in.wg.Done()

	p := in.retry
	attempts := 0

	attempt := func() error {
		attempts++

		actx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		return s.handler.Handle(actx, env)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		in.logger.WarnContext(ctx, "handler retry",
			"account", in.account, "subscription", s.name, "detailType", env.DetailType, "wait", wait, "err", err)
	})
	if err == nil {
		return
	}

	dl := bus.DeadLetter{
		Envelope:    env,
		Destination: s.name,
		Attempts:    attempts,
		Reason:      fmt.Sprintf("dispatch: %v", errors.Join(rerr.ErrDeliveryFailed, err)),
		FailedAt:    in.now().UTC(),
	}

	if dlErr := in.dlq.Append(ctx, dl); dlErr != nil {
		in.logger.ErrorContext(ctx, "dead-letter append failed",
			"account", in.account, "subscription", s.name, "detailType", env.DetailType, "err", dlErr)

		return
	}

	in.logger.ErrorContext(ctx, "handler dead-lettered",
		"account", in.account, "subscription", s.name, "detailType", env.DetailType, "attempts", attempts, "err", err)
}

func (in *Inbox) logEnvelope(ctx context.Context, env bus.Envelope) error {
	in.logger.InfoContext(ctx, "event received",
		"account", in.account, "source", env.Source, "detailType", env.DetailType,
		"origin", env.OriginAccount, "id", env.ID)

	return nil
}

// Drain blocks until all in-flight handler invocations settle or the
// context expires.
func (in *Inbox) Drain(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		in.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
