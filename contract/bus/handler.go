package bus

import "context"

// Handler reacts to one delivered envelope. Implementations must be safe for
// concurrent use and idempotent with respect to redelivery of the same
// logical event; at-least-once dispatch may invoke them more than once.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, env Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error { return f(ctx, env) }
