package router

import (
	"context"
	"fmt"

	"github.com/next-trace/scg-event-router/contract/bus"
	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

// Ingress is an in-process bus.Submitter bound to one authenticated tenant
// identity. It is the trust boundary the router relies on when it compares
// an envelope's claimed source against the submitting tenant.
type Ingress struct {
	r      *Router
	tenant string
}

var _ bus.Submitter = (*Ingress)(nil)

// NewIngress binds a submitter to the given tenant identity.
func NewIngress(r *Router, tenant string) *Ingress {
	return &Ingress{r: r, tenant: tenant}
}

// Submit ingests each entry in order and stops at the first failure.
// Submissions addressed to a different bus are rejected.
func (i *Ingress) Submit(ctx context.Context, busName string, entries []bus.Envelope) error {
	if busName != i.r.Name() {
		return fmt.Errorf("submit to %s via %s: %w", busName, i.r.Name(), rerr.ErrUnknownBus)
	}

	for _, env := range entries {
		if err := i.r.Ingest(ctx, i.tenant, env); err != nil {
			return err
		}
	}

	return nil
}
