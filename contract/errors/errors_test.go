package errors_test

import (
	"errors"
	"testing"

	rerr "github.com/next-trace/scg-event-router/contract/errors"
)

func TestCodeAndVars(t *testing.T) {
	e := rerr.Code(rerr.ErrCodePublishFailed)
	if e.Error() != rerr.ErrCodePublishFailed {
		t.Fatalf("unexpected error string: %s", e.Error())
	}

	// exported variables must carry their codes
	tests := []struct {
		err  error
		code string
	}{
		{rerr.ErrUnauthorizedSource, rerr.ErrCodeUnauthorizedSource},
		{rerr.ErrUnknownTenant, rerr.ErrCodeUnknownTenant},
		{rerr.ErrUnknownBus, rerr.ErrCodeUnknownBus},
		{rerr.ErrInvalidEnvelope, rerr.ErrCodeInvalidEnvelope},
		{rerr.ErrInvalidTopology, rerr.ErrCodeInvalidTopology},
		{rerr.ErrSubscriptionExists, rerr.ErrCodeSubscriptionExists},
		{rerr.ErrPublishFailed, rerr.ErrCodePublishFailed},
		{rerr.ErrForwardFailed, rerr.ErrCodeForwardFailed},
		{rerr.ErrDeliveryFailed, rerr.ErrCodeDeliveryFailed},
		{rerr.ErrAuditFailed, rerr.ErrCodeAuditFailed},
		{rerr.ErrSerializationFailed, rerr.ErrCodeSerializationFailed},
	}

	for _, tc := range tests {
		if !errors.Is(tc.err, rerr.Code(tc.code)) {
			t.Fatalf("expected %s to be %s", tc.err, tc.code)
		}
	}
}
