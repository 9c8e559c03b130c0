/*
Package eventrouter assembles a complete choreography deployment from a
topology descriptor: one global router plus one inbox per account, with the
subscriptions wired onto the inbox of the tenant that registered them.

The topology is consumed once at build time; the resulting Bridge holds no
mutable registration state.
*/
package eventrouter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
	"github.com/next-trace/scg-event-router/inbox"
	"github.com/next-trace/scg-event-router/publisher"
	"github.com/next-trace/scg-event-router/router"
	storemem "github.com/next-trace/scg-event-router/store/memory"
)

// Bridge is a fully wired deployment: router, inboxes, and the topology they
// were built from.
type Bridge struct {
	topo    bus.Topology
	router  *router.Router
	inboxes map[string]*inbox.Inbox // keyed by account
	logger  *slog.Logger
}

type settings struct {
	audit  bus.AuditStore
	dlq    bus.DeadLetterStore
	retry  bus.RetryPolicy
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Bridge build.
type Option func(*settings)

// WithLogger sets the structured logger shared by router and inboxes.
func WithLogger(l *slog.Logger) Option { return func(s *settings) { s.logger = l } }

// WithAuditStore overrides the default in-memory audit store.
func WithAuditStore(st bus.AuditStore) Option { return func(s *settings) { s.audit = st } }

// WithDeadLetterStore overrides the default in-memory dead-letter store.
// Router forwards and inbox dispatches share it; the record's Destination
// field tells them apart.
func WithDeadLetterStore(st bus.DeadLetterStore) Option { return func(s *settings) { s.dlq = st } }

// WithRetryPolicy bounds both forward and handler retries.
func WithRetryPolicy(p bus.RetryPolicy) Option { return func(s *settings) { s.retry = p } }

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option { return func(s *settings) { s.now = now } }

// New validates the topology and builds the deployment.
func New(topo bus.Topology, opts ...Option) (*Bridge, error) {
	st := settings{retry: bus.DefaultRetryPolicy(), now: time.Now}

	for _, o := range opts {
		o(&st)
	}

	if st.audit == nil {
		st.audit = storemem.NewAuditStore()
	}

	if st.dlq == nil {
		st.dlq = storemem.NewDeadLetterStore()
	}

	if st.logger == nil {
		st.logger = slog.New(slog.DiscardHandler)
	}

	r, err := router.New(topo, st.audit, st.dlq,
		router.WithLogger(st.logger),
		router.WithRetryPolicy(st.retry),
		router.WithClock(st.now),
	)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		topo:    topo,
		router:  r,
		inboxes: make(map[string]*inbox.Inbox),
		logger:  st.logger,
	}

	for _, account := range topo.Accounts() {
		in, err := inbox.New(account, st.dlq,
			inbox.WithLogger(st.logger),
			inbox.WithRetryPolicy(st.retry),
			inbox.WithClock(st.now),
		)
		if err != nil {
			return nil, err
		}

		if err := r.RegisterInbox(account, in); err != nil {
			return nil, err
		}

		b.inboxes[account] = in
	}

	for _, s := range topo.Subscriptions {
		tn, _ := topo.TenantByIdentifier(s.Tenant) // Validate already checked membership

		if err := b.inboxes[tn.Account].Subscribe(s.Name, s.Pattern, s.Handler); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Router exposes the global bus, mainly for audit/dead-letter inspection.
func (b *Bridge) Router() *router.Router { return b.router }

// Inbox returns the inbox owning the given account.
func (b *Bridge) Inbox(account string) (*inbox.Inbox, bool) {
	in, ok := b.inboxes[account]

	return in, ok
}

// InboxFor returns the inbox serving the given tenant.
func (b *Bridge) InboxFor(tenant string) (*inbox.Inbox, bool) {
	tn, ok := b.topo.TenantByIdentifier(tenant)
	if !ok {
		return nil, false
	}

	return b.Inbox(tn.Account)
}

// PublisherFor builds a publisher bound to the given tenant's identity,
// submitting through the in-process router ingress.
func (b *Bridge) PublisherFor(tenant string) (*publisher.Publisher, error) {
	if _, ok := b.topo.TenantByIdentifier(tenant); !ok {
		return nil, fmt.Errorf("publisher for %s: %w", tenant, rerr.ErrUnknownTenant)
	}

	return publisher.New(tenant, b.topo.Bus, router.NewIngress(b.router, tenant), b.logger)
}

// Drain blocks until the whole pipeline is quiescent: no in-flight forwards,
// no running handlers, and no new ingestions produced by either. Handlers
// publish new events, so draining loops until a full round settles without
// fresh ingress.
func (b *Bridge) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		before := b.router.Ingested()

		if err := b.router.Drain(ctx); err != nil {
			return err
		}

		for _, in := range b.inboxes {
			if err := in.Drain(ctx); err != nil {
				return err
			}
		}

		if b.router.Ingested() == before {
			return nil
		}
	}
}
