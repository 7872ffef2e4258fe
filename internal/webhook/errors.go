package webhook

import "errors"

var (
	// ErrMalformedPayload is returned when the body matches neither
	// known provider shape. The webhook responds 400; nothing is stored.
	ErrMalformedPayload = errors.New("webhook: malformed payload")

	// ErrSelfMessage marks echoes of our own outbound messages, which
	// some providers deliver back on the same webhook.
	ErrSelfMessage = errors.New("webhook: own message echo")
)
