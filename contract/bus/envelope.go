package bus

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

// Detail carries the opaque event payload and a metadata map reserved for
// cross-cutting concerns (tracing correlation, future versioning).
// The router and inboxes never interpret Data.
type Detail struct {
	Data json.RawMessage   `json:"data"`
	Meta map[string]string `json:"meta"`
}

// Envelope is the canonical message unit exchanged on the bus.
//
// Envelopes are value types and must not be mutated after creation;
// transformations construct a new envelope (or use WithOrigin, which
// returns a stamped copy).
type Envelope struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	DetailType string `json:"detailType"`
	Detail     Detail `json:"detail"`

	// OriginAccount is the account the event physically arrived from.
	// It is stamped by the router at ingress and must not be set by publishers.
	OriginAccount string `json:"originAccount,omitempty"`
}

// NewEnvelope builds an envelope for the given source tenant and event name.
// The payload is serialized once here so later copies share no mutable state
// with the caller's value. Meta starts empty.
func NewEnvelope(source, detailType string, data any) (Envelope, error) {
	if source == "" {
		return Envelope{}, fmt.Errorf("new envelope: source is empty: %w", rerr.ErrInvalidEnvelope)
	}

	if detailType == "" {
		return Envelope{}, fmt.Errorf("new envelope: detail type is empty: %w", rerr.ErrInvalidEnvelope)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("new envelope %s: %w", detailType, rerr.ErrSerializationFailed)
	}

	return Envelope{
		ID:         uuid.NewString(),
		Source:     source,
		DetailType: detailType,
		Detail:     Detail{Data: raw, Meta: map[string]string{}},
	}, nil
}

// Validate reports whether the envelope satisfies the wire contract.
func (e Envelope) Validate() error {
	if e.Source == "" {
		return fmt.Errorf("envelope %s: source is empty: %w", e.ID, rerr.ErrInvalidEnvelope)
	}

	if e.DetailType == "" {
		return fmt.Errorf("envelope %s: detail type is empty: %w", e.ID, rerr.ErrInvalidEnvelope)
	}

	return nil
}

// Clone returns a deep copy that shares no payload or metadata storage with
// the receiver.
func (e Envelope) Clone() Envelope {
	c := e

	if e.Detail.Data != nil {
		c.Detail.Data = append(json.RawMessage(nil), e.Detail.Data...)
	}

	if e.Detail.Meta != nil {
		c.Detail.Meta = make(map[string]string, len(e.Detail.Meta))
		for k, v := range e.Detail.Meta {
			c.Detail.Meta[k] = v
		}
	}

	return c
}

// WithOrigin returns a copy of the envelope stamped with the account it was
// ingested from. The receiver is left untouched.
func (e Envelope) WithOrigin(account string) Envelope {
	c := e.Clone()
	c.OriginAccount = account

	return c
}

// DecodeData unmarshals the opaque payload into v.
func (e Envelope) DecodeData(v any) error {
	if err := json.Unmarshal(e.Detail.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.DetailType, errors.Join(rerr.ErrSerializationFailed, err))
	}

	return nil
}
