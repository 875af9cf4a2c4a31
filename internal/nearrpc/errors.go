package nearrpc

import "errors"

var (
	// ErrAllEndpointsFailed is returned when every endpoint in the selected
	// pool failed. Callers are expected to treat it as a degraded result
	// (zero balance, skipped sample) rather than a fatal condition.
	ErrAllEndpointsFailed = errors.New("all rpc endpoints failed")

	// ErrAccountNotFound is returned without any network call when the
	// existence oracle knows the account did not exist at the queried height.
	ErrAccountNotFound = errors.New("account did not exist at or before block")

	// ErrMissingAPIKey indicates an endpoint that requires an API key was
	// configured without one. This is a local configuration error and is
	// surfaced immediately instead of being retried.
	ErrMissingAPIKey = errors.New("rpc endpoint requires an API key but none is configured")
)
