package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Configuration errors
	ErrMissingConfig = errors.New("required configuration missing")

	// Store errors (the client wraps HTTP failures into these)
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("store credential rejected")
	ErrRateLimited  = errors.New("store rate limit exceeded")
)
