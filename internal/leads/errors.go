package leads

import "errors"

var (
	// ErrMissingPhone is returned when a lead has no phone number
	ErrMissingPhone = errors.New("phone is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrStoreUnavailable is returned when the relational store cannot be reached.
	// The webhook responds 500 and the provider retries per its own policy.
	ErrStoreUnavailable = errors.New("lead store unavailable")
)
