package domain

import "errors"

// Failure kinds that cross component boundaries. Anything not listed here is
// either degraded to empty/stored data at the boundary where it happened, or
// wrapped with context and returned as a plain error.
var (
	// ErrReauthRequired means a token refresh was attempted (or impossible)
	// and the caller must obtain new credentials. Non-fatal: callers serve
	// stored data and surface the condition.
	ErrReauthRequired = errors.New("reauthentication required")

	// ErrRateLimited means the remote service refused further requests.
	// Pagination loops stop and return what they accumulated.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreUnavailable means the record store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)
