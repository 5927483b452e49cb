package forge

import (
	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

// ErrInvalidSignature signals that a webhook signature did not verify.
var ErrInvalidSignature = errors.AuthError("Invalid HMAC").Build()

// malformedPayload builds the validation error returned for push payloads that fail to decode.
func malformedPayload(reason string, cause error) error {
	b := errors.ValidationError("malformed push payload: " + reason).
		WithContext("reason", reason)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}
