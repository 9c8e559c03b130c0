// Package sqlite provides SQLite-backed audit and dead-letter stores for
// deployments that need the trail to survive a restart.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	"github.com/next-trace/scg-event-router/contract/bus"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	envelope TEXT NOT NULL,
	origin_account TEXT NOT NULL,
	received_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS dead_letters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	envelope TEXT NOT NULL,
	destination TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	reason TEXT NOT NULL,
	failed_at INTEGER NOT NULL
);
`

// Store persists the audit trail and dead letters in one SQLite database.
// The Audit and DeadLetters views expose it as the two store contracts.
type Store struct {
	sqlDB *sql.DB
}

type auditView struct{ s *Store }

func (v auditView) Append(ctx context.Context, rec bus.AuditRecord) error {
	return v.s.AppendAudit(ctx, rec)
}

func (v auditView) List(ctx context.Context) ([]bus.AuditRecord, error) {
	return v.s.ListAudit(ctx)
}

type deadLetterView struct{ s *Store }

func (v deadLetterView) Append(ctx context.Context, dl bus.DeadLetter) error {
	return v.s.AppendDeadLetter(ctx, dl)
}

func (v deadLetterView) List(ctx context.Context) ([]bus.DeadLetter, error) {
	return v.s.ListDeadLetters(ctx)
}

var (
	_ bus.AuditStore      = auditView{}
	_ bus.DeadLetterStore = deadLetterView{}
)

// Audit exposes the store as a bus.AuditStore.
func (s *Store) Audit() bus.AuditStore { return auditView{s: s} }

// DeadLetters exposes the store as a bus.DeadLetterStore.
func (s *Store) DeadLetters() bus.DeadLetterStore { return deadLetterView{s: s} }

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the store at path and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}

	return s.sqlDB.Close()
}

// AppendAudit inserts one audit record.
func (s *Store) AppendAudit(ctx context.Context, rec bus.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(rec.Envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO audit_events (envelope, origin_account, received_at) VALUES (?, ?, ?)
`,
		string(raw), rec.OriginAccount, toMillis(rec.ReceivedAt))
	if err != nil {
		return fmt.Errorf("put audit event: %w", err)
	}

	return nil
}

// ListAudit returns all audit records in append order.
func (s *Store) ListAudit(ctx context.Context) ([]bus.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT envelope, origin_account, received_at FROM audit_events ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []bus.AuditRecord

	for rows.Next() {
		var (
			raw      string
			origin   string
			received int64
		)

		if err := rows.Scan(&raw, &origin, &received); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		var env bus.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}

		out = append(out, bus.AuditRecord{
			Envelope:      env,
			OriginAccount: origin,
			ReceivedAt:    fromMillis(received),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	return out, nil
}
