package bus

import (
	"context"
	"time"
)

// AuditRecord is one entry of the append-only ingress trail. Every ingested
// envelope produces exactly one record, regardless of forwarding outcome.
type AuditRecord struct {
	Envelope      Envelope  `json:"envelope"`
	OriginAccount string    `json:"originAccount"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// AuditStore persists the ingress trail. Entries are independent and
// immutable, so implementations only need append-level concurrency safety.
type AuditStore interface {
	Append(ctx context.Context, rec AuditRecord) error
	List(ctx context.Context) ([]AuditRecord, error)
}

// DeadLetter is the terminal record of an envelope whose forwarding or
// handling permanently failed after bounded retries.
type DeadLetter struct {
	Envelope Envelope `json:"envelope"`
	// Destination names what could not be reached: an account for router
	// forwards, a subscription name for handler invocations.
	Destination string    `json:"destination"`
	Attempts    int       `json:"attempts"`
	Reason      string    `json:"reason"`
	FailedAt    time.Time `json:"failedAt"`
}

// DeadLetterStore records exhausted-retry failures for manual inspection.
type DeadLetterStore interface {
	Append(ctx context.Context, dl DeadLetter) error
	List(ctx context.Context) ([]DeadLetter, error)
}
