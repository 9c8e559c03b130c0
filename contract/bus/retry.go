package bus

import "time"

// Default retry bounds shared by router forwarding and inbox dispatch.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 50 * time.Millisecond
	DefaultMaxInterval     = 2 * time.Second
	DefaultTimeout         = 10 * time.Second
)

// RetryPolicy bounds at-least-once redelivery. MaxAttempts counts total
// attempts, not retries; after the last failed attempt the envelope is
// dead-lettered. Timeout caps a single attempt, so a deliberately slow
// handler must stay under it.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		Timeout:         DefaultTimeout,
	}
}

// OrDefaults fills zero fields from DefaultRetryPolicy.
func (p RetryPolicy) OrDefaults() RetryPolicy {
	d := DefaultRetryPolicy()

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}

	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}

	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}

	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}

	return p
}
