package domain

import "errors"

var (
	// ErrConfiguration marks invalid territory/day counts or inputs that cannot be
	// partitioned. It is fatal and must surface before any clustering runs.
	ErrConfiguration = errors.New("configuration error")

	// ErrSourceUnavailable marks a failed distance-source batch (transport, timeout,
	// malformed payload or non-OK status). Callers recover by falling back.
	ErrSourceUnavailable = errors.New("distance source unavailable")

	// ErrInvariantViolation marks a defect such as a day partition that drops or
	// duplicates points.
	ErrInvariantViolation = errors.New("invariant violation")
)
