package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/next-trace/scg-event-router/contract/bus"
	"github.com/next-trace/scg-event-router/store/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := sqlite.Open(""); err == nil {
		t.Fatal("want error for empty path")
	}
}

func TestAuditRoundTrip(t *testing.T) {
	s := openStore(t)

	env, err := bus.NewEnvelope("order-service", "Order.Created", map[string]any{"orderId": "o1"})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	rec := bus.AuditRecord{
		Envelope:      env.WithOrigin("acc-orders"),
		OriginAccount: "acc-orders",
		ReceivedAt:    time.UnixMilli(1234).UTC(),
	}

	audit := s.Audit()

	if err := audit.Append(t.Context(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := audit.List(t.Context())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("want 1 record, got %d", len(got))
	}

	if got[0].Envelope.ID != env.ID || got[0].OriginAccount != "acc-orders" {
		t.Fatalf("record mangled: %+v", got[0])
	}

	if !got[0].ReceivedAt.Equal(rec.ReceivedAt) {
		t.Fatalf("received at mangled: %v", got[0].ReceivedAt)
	}

	if string(got[0].Envelope.Detail.Data) != string(env.Detail.Data) {
		t.Fatalf("payload mangled: %s", got[0].Envelope.Detail.Data)
	}
}

func TestDeadLetterRoundTrip(t *testing.T) {
	s := openStore(t)

	env, err := bus.NewEnvelope("order-service", "Order.Created", nil)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	dl := bus.DeadLetter{
		Envelope:    env,
		Destination: "acc-delivery",
		Attempts:    3,
		Reason:      "forward: inbox unreachable",
		FailedAt:    time.UnixMilli(5678).UTC(),
	}

	dlq := s.DeadLetters()

	if err := dlq.Append(t.Context(), dl); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := dlq.List(t.Context())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("want 1 dead letter, got %d", len(got))
	}

	if got[0].Destination != "acc-delivery" || got[0].Attempts != 3 || got[0].Reason != dl.Reason {
		t.Fatalf("dead letter mangled: %+v", got[0])
	}

	if !got[0].FailedAt.Equal(dl.FailedAt) {
		t.Fatalf("failed at mangled: %v", got[0].FailedAt)
	}
}
