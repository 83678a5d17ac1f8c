package types

import "errors"

// Sentinel errors shared across layers. Services wrap these with context via
// fmt.Errorf("%w: ...") and the API layer maps them to HTTP statuses with
// errors.Is.
var (
	// ErrValidation marks malformed or missing client input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated but not permitted request.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks an absent entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation (e.g. duplicate email).
	ErrConflict = errors.New("already exists")
	// ErrQuotaExceeded marks a tier usage limit being hit.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUpstream marks a dependency failure (completion provider, image
	// search, payment API).
	ErrUpstream = errors.New("upstream failure")
	// ErrUpstreamTimeout marks a dependency call that did not resolve in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrInvalidSignature marks a webhook payload that failed verification.
	ErrInvalidSignature = errors.New("invalid signature")
)
