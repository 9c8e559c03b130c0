package inmemory

import (
	"context"
	"sync"

	"github.com/next-trace/scg-event-router/contract/bus"
)

// Submitter is a thread-safe in-memory implementation of bus.Submitter.
// It records submitted entries for testing and examples.
type Submitter struct {
	mu      sync.Mutex
	Buses   []string
	Entries []bus.Envelope
}

var _ bus.Submitter = (*Submitter)(nil)

func (s *Submitter) Submit(ctx context.Context, busName string, entries []bus.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.Buses = append(s.Buses, busName)
	s.Entries = append(s.Entries, entries...)
	s.mu.Unlock()

	return nil
}

// Last returns the most recently submitted envelope.
func (s *Submitter) Last() (bus.Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Entries) == 0 {
		return bus.Envelope{}, false
	}

	return s.Entries[len(s.Entries)-1], true
}

// Deliverer is a thread-safe in-memory implementation of bus.Deliverer.
type Deliverer struct {
	mu        sync.Mutex
	Envelopes []bus.Envelope
}

var _ bus.Deliverer = (*Deliverer)(nil)

func (d *Deliverer) Deliver(ctx context.Context, env bus.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	d.Envelopes = append(d.Envelopes, env)
	d.mu.Unlock()

	return nil
}

// Received returns a snapshot copy of everything delivered so far.
func (d *Deliverer) Received() []bus.Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]bus.Envelope(nil), d.Envelopes...)
}

// New creates a recording Submitter. Use NewDeliverer for the inbox side.
func New() *Submitter { return &Submitter{} }

// NewDeliverer creates a recording Deliverer.
func NewDeliverer() *Deliverer { return &Deliverer{} }
