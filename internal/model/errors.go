package model

import "errors"

var (
	// ErrMalformedPayload marks chart data that is not shaped as a sequence
	// of records. Not retried.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrNetwork marks a failed chart or quote request. Terminal for that
	// request; retry is left to the caller.
	ErrNetwork = errors.New("network error")

	// ErrProbeFailure marks a failed liveness probe. Never surfaced to the
	// user, only counted.
	ErrProbeFailure = errors.New("probe failure")

	// ErrNotReady is returned when chart data is requested before the
	// backend has answered a probe.
	ErrNotReady = errors.New("backend not ready")
)
