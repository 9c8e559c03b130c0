package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/next-trace/scg-event-router/contract/bus"
)

// AppendDeadLetter inserts one dead-letter record.
func (s *Store) AppendDeadLetter(ctx context.Context, dl bus.DeadLetter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(dl.Envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO dead_letters (envelope, destination, attempts, reason, failed_at) VALUES (?, ?, ?, ?, ?)
`,
		string(raw), dl.Destination, dl.Attempts, dl.Reason, toMillis(dl.FailedAt))
	if err != nil {
		return fmt.Errorf("put dead letter: %w", err)
	}

	return nil
}

// ListDeadLetters returns all dead letters in append order.
func (s *Store) ListDeadLetters(ctx context.Context) ([]bus.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT envelope, destination, attempts, reason, failed_at FROM dead_letters ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []bus.DeadLetter

	for rows.Next() {
		var (
			raw         string
			destination string
			attempts    int
			reason      string
			failed      int64
		)

		if err := rows.Scan(&raw, &destination, &attempts, &reason, &failed); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}

		var env bus.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}

		out = append(out, bus.DeadLetter{
			Envelope:    env,
			Destination: destination,
			Attempts:    attempts,
			Reason:      reason,
			FailedAt:    fromMillis(failed),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	return out, nil
}
