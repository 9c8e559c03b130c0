// Package memory provides in-memory audit and dead-letter stores, used for
// tests, examples, and single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/next-trace/scg-event-router/contract/bus"
)

// AuditStore is a thread-safe, append-only in-memory bus.AuditStore.
type AuditStore struct {
	mu   sync.Mutex
	recs []bus.AuditRecord
}

var _ bus.AuditStore = (*AuditStore)(nil)

// NewAuditStore creates an empty in-memory audit store.
func NewAuditStore() *AuditStore { return &AuditStore{} }

func (s *AuditStore) Append(ctx context.Context, rec bus.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()

	return nil
}

// List returns a snapshot copy of all records in append order.
func (s *AuditStore) List(ctx context.Context) ([]bus.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := append([]bus.AuditRecord(nil), s.recs...)
	s.mu.Unlock()

	return out, nil
}

// DeadLetterStore is a thread-safe in-memory bus.DeadLetterStore.
type DeadLetterStore struct {
	mu  sync.Mutex
	dls []bus.DeadLetter
}

var _ bus.DeadLetterStore = (*DeadLetterStore)(nil)

// NewDeadLetterStore creates an empty in-memory dead-letter store.
func NewDeadLetterStore() *DeadLetterStore { return &DeadLetterStore{} }

func (s *DeadLetterStore) Append(ctx context.Context, dl bus.DeadLetter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.dls = append(s.dls, dl)
	s.mu.Unlock()

	return nil
}

// List returns a snapshot copy of all dead letters in append order.
func (s *DeadLetterStore) List(ctx context.Context) ([]bus.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := append([]bus.DeadLetter(nil), s.dls...)
	s.mu.Unlock()

	return out, nil
}
