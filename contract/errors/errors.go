package errors

// Error codes for the router contracts. Keep stable; used across adapters, router and inboxes.
const (
	ErrCodeUnauthorizedSource  = "eventrouter.unauthorized_source"
	ErrCodeUnknownTenant       = "eventrouter.unknown_tenant"
	ErrCodeUnknownBus          = "eventrouter.unknown_bus"
	ErrCodeInvalidEnvelope     = "eventrouter.invalid_envelope"
	ErrCodeInvalidTopology     = "eventrouter.invalid_topology"
	ErrCodeSubscriptionExists  = "eventrouter.subscription_exists"
	ErrCodePublishFailed       = "eventrouter.publish_failed"
	ErrCodeForwardFailed       = "eventrouter.forward_failed"
	ErrCodeDeliveryFailed      = "eventrouter.delivery_failed"
	ErrCodeAuditFailed         = "eventrouter.audit_failed"
	ErrCodeSerializationFailed = "eventrouter.serialization_failed"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrUnauthorizedSource  = Code(ErrCodeUnauthorizedSource)
	ErrUnknownTenant       = Code(ErrCodeUnknownTenant)
	ErrUnknownBus          = Code(ErrCodeUnknownBus)
	ErrInvalidEnvelope     = Code(ErrCodeInvalidEnvelope)
	ErrInvalidTopology     = Code(ErrCodeInvalidTopology)
	ErrSubscriptionExists  = Code(ErrCodeSubscriptionExists)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrForwardFailed       = Code(ErrCodeForwardFailed)
	ErrDeliveryFailed      = Code(ErrCodeDeliveryFailed)
	ErrAuditFailed         = Code(ErrCodeAuditFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
)
