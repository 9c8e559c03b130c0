package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

// Router is the single global ingress and fan-out point. Every event
// published by any tenant passes through it exactly once before being
// forwarded to the other accounts' inboxes.
//
// The router performs no semantic filtering: unknown detail types are
// forwarded like any other; filtering happens only at the destination inbox.
type Router struct {
	name  string
	topo  bus.Topology
	audit bus.AuditStore
	dlq   bus.DeadLetterStore
	retry bus.RetryPolicy

	mu      sync.RWMutex
	inboxes map[string]bus.Deliverer // keyed by account

	wg       sync.WaitGroup
	ingested atomic.Uint64
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Router instance.
type Option func(*Router)

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option { return func(r *Router) { r.logger = l } }

// WithRetryPolicy bounds forward retries. Zero fields fall back to defaults.
func WithRetryPolicy(p bus.RetryPolicy) Option { return func(r *Router) { r.retry = p } }

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option { return func(r *Router) { r.now = now } }

// New constructs a Router over a validated topology. The audit store is
// mandatory: ingestion without a trail is not a mode this router supports.
func New(topo bus.Topology, audit bus.AuditStore, dlq bus.DeadLetterStore, opts ...Option) (*Router, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}

	if audit == nil {
		return nil, fmt.Errorf("router %s: nil audit store: %w", topo.Bus, rerr.ErrInvalidTopology)
	}

	if dlq == nil {
		return nil, fmt.Errorf("router %s: nil dead-letter store: %w", topo.Bus, rerr.ErrInvalidTopology)
	}

	r := &Router{
		name:    topo.Bus,
		topo:    topo,
		audit:   audit,
		dlq:     dlq,
		retry:   bus.DefaultRetryPolicy(),
		inboxes: make(map[string]bus.Deliverer),
		now:     time.Now,
	}

	for _, o := range opts {
		o(r)
	}

	r.retry = r.retry.OrDefaults()

	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}

	return r, nil
}

// Name returns the bus name submissions must address.
func (r *Router) Name() string { return r.name }

// RegisterInbox wires the deliverer for one account. Registration happens at
// topology-build time; the account must be part of the topology.
func (r *Router) RegisterInbox(account string, d bus.Deliverer) error {
	known := false

	for _, a := range r.topo.Accounts() {
		if a == account {
			known = true

			break
		}
	}

	if !known {
		return fmt.Errorf("register inbox: account %s not in topology: %w", account, rerr.ErrUnknownTenant)
	}

	if d == nil {
		return fmt.Errorf("register inbox %s: nil deliverer: %w", account, rerr.ErrInvalidTopology)
	}

	r.mu.Lock()
	r.inboxes[account] = d
	r.mu.Unlock()

	return nil
}

// Ingest accepts an envelope from an authenticated tenant. It appends the
// audit record, then fans the envelope out to every other account's inbox
// asynchronously. A nil return acknowledges ingestion only; forwarding
// failures are retried and eventually dead-lettered without informing the
// origin.
func (r *Router) Ingest(ctx context.Context, from string, env bus.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	tenant, ok := r.topo.TenantByIdentifier(from)
	if !ok {
		return fmt.Errorf("ingest from %s: %w", from, rerr.ErrUnknownTenant)
	}

	if env.Source != from {
		return fmt.Errorf("ingest: envelope claims source %s but submitter is %s: %w",
			env.Source, from, rerr.ErrUnauthorizedSource)
	}

	stamped := env.WithOrigin(tenant.Account)

	rec := bus.AuditRecord{Envelope: stamped, OriginAccount: tenant.Account, ReceivedAt: r.now().UTC()}
	if err := r.audit.Append(ctx, rec); err != nil {
		return fmt.Errorf("ingest %s: %w", env.DetailType, errors.Join(rerr.ErrAuditFailed, err))
	}

	r.ingested.Add(1)

	r.logger.DebugContext(ctx, "event ingested",
		"bus", r.name, "source", env.Source, "detailType", env.DetailType, "id", env.ID)

	r.mu.RLock()
	targets := make(map[string]bus.Deliverer, len(r.inboxes))

	for account, d := range r.inboxes {
		if account != tenant.Account {
			targets[account] = d
		}
	}
	r.mu.RUnlock()

	// Forwarding continues after the submitter's context is released; the
	// ack covers ingestion, not delivery.
	fctx := context.WithoutCancel(ctx)

	for account, d := range targets {
		r.wg.Add(1)

		go r.forward(fctx, account, d, stamped.Clone())
	}

	return nil
}

func (r *Router) forward(ctx context.Context, account string, d bus.Deliverer, env bus.Envelope) {
	defer r.wg.Done()

	p := r.retry
	attempts := 0

	attempt := func() error {
		attempts++

		actx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		return d.Deliver(actx, env)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "forward retry",
			"bus", r.name, "account", account, "detailType", env.DetailType, "wait", wait, "err", err)
	})
	if err == nil {
		return
	}

	dl := bus.DeadLetter{
		Envelope:    env,
		Destination: account,
		Attempts:    attempts,
		Reason:      fmt.Sprintf("forward: %v", errors.Join(rerr.ErrForwardFailed, err)),
		FailedAt:    r.now().UTC(),
	}

	if dlErr := r.dlq.Append(ctx, dl); dlErr != nil {
		r.logger.ErrorContext(ctx, "dead-letter append failed",
			"bus", r.name, "account", account, "detailType", env.DetailType, "err", dlErr)

		return
	}

	r.logger.ErrorContext(ctx, "forward dead-lettered",
		"bus", r.name, "account", account, "detailType", env.DetailType, "attempts", attempts, "err", err)
}

// Audit exposes the trail every ingested envelope is appended to.
func (r *Router) Audit() bus.AuditStore { return r.audit }

// DeadLetters exposes the store of permanently failed forwards.
func (r *Router) DeadLetters() bus.DeadLetterStore { return r.dlq }

// Ingested reports how many envelopes have been accepted so far. Useful for
// observability and for detecting quiescence when draining a whole topology.
func (r *Router) Ingested() uint64 { return r.ingested.Load() }

// Drain blocks until all in-flight forwards settle or the context expires.
func (r *Router) Drain(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
