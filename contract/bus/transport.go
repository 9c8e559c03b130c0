package bus

import "context"

// Submitter is the bus submission interface consumed by publishers and
// provided by the router (directly in-process, or via a broker adapter).
// Entries are accepted as a batch; acceptance acknowledges ingestion only,
// never delivery or handling.
type Submitter interface {
	Submit(ctx context.Context, busName string, entries []Envelope) error
}

// Deliverer is the delivery interface provided by inboxes and consumed by
// the router and by local publishers. Delivery is fire-and-forget from the
// caller's view: a nil return acknowledges acceptance, not handling.
type Deliverer interface {
	Deliver(ctx context.Context, env Envelope) error
}
