package bus

import (
	"fmt"

	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

// MatchAll is the reserved catch-all subscription pattern. It is used by the
// unconditional logging subscription every inbox carries; business handlers
// subscribe with concrete event names matched by exact equality.
const MatchAll = "*"

// Tenant is a registered participant of the bus.
type Tenant struct {
	// Identifier is the stable service name, e.g. "order-service".
	Identifier string
	// Account is the isolation boundary that owns the tenant's inbox.
	// Several tenants may share one account; forwarding exclusion is keyed
	// on the account, not the tenant identity.
	Account string
}

// Subscription binds a handler to an event pattern on one tenant's inbox.
// Subscriptions are registered at topology-build time and are static for the
// process lifetime.
type Subscription struct {
	Tenant  string
	Pattern string
	// Name labels the subscription in logs and dead-letter records.
	Name    string
	Handler Handler
}

// Topology describes the full participant set of a deployment: the bus name,
// every tenant with its account, and every subscription. It is constructed
// once at process start and treated as immutable afterwards.
type Topology struct {
	Bus           string
	Tenants       []Tenant
	Subscriptions []Subscription
}

// Validate checks the topology for structural defects: duplicate or empty
// tenant identifiers, missing accounts, and subscriptions referencing
// unregistered tenants.
func (t Topology) Validate() error {
	if t.Bus == "" {
		return fmt.Errorf("topology: bus name is empty: %w", rerr.ErrInvalidTopology)
	}

	if len(t.Tenants) == 0 {
		return fmt.Errorf("topology: no tenants registered: %w", rerr.ErrInvalidTopology)
	}

	seen := make(map[string]struct{}, len(t.Tenants))

	for _, tn := range t.Tenants {
		if tn.Identifier == "" {
			return fmt.Errorf("topology: tenant with empty identifier: %w", rerr.ErrInvalidTopology)
		}

		if tn.Account == "" {
			return fmt.Errorf("topology: tenant %s has no account: %w", tn.Identifier, rerr.ErrInvalidTopology)
		}

		if _, dup := seen[tn.Identifier]; dup {
			return fmt.Errorf("topology: duplicate tenant %s: %w", tn.Identifier, rerr.ErrInvalidTopology)
		}

		seen[tn.Identifier] = struct{}{}
	}

	for _, s := range t.Subscriptions {
		if _, ok := seen[s.Tenant]; !ok {
			return fmt.Errorf("topology: subscription %s references unknown tenant %s: %w",
				s.Name, s.Tenant, rerr.ErrInvalidTopology)
		}

		if s.Pattern == "" {
			return fmt.Errorf("topology: subscription %s has empty pattern: %w", s.Name, rerr.ErrInvalidTopology)
		}

		if s.Handler == nil {
			return fmt.Errorf("topology: subscription %s has nil handler: %w", s.Name, rerr.ErrInvalidTopology)
		}
	}

	return nil
}

// TenantByIdentifier looks up a tenant by its stable name.
func (t Topology) TenantByIdentifier(id string) (Tenant, bool) {
	for _, tn := range t.Tenants {
		if tn.Identifier == id {
			return tn, true
		}
	}

	return Tenant{}, false
}

// Accounts returns the distinct account set in first-seen order.
func (t Topology) Accounts() []string {
	seen := make(map[string]struct{}, len(t.Tenants))
	out := make([]string, 0, len(t.Tenants))

	for _, tn := range t.Tenants {
		if _, ok := seen[tn.Account]; ok {
			continue
		}

		seen[tn.Account] = struct{}{}
		out = append(out, tn.Account)
	}

	return out
}
