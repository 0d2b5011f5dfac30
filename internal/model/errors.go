package model

import "errors"

// Lifecycle errors surfaced to callers. All are recoverable by the caller and
// map to 4xx statuses at the HTTP boundary; none are retried internally.
var (
	ErrNotFound                = errors.New("entity not found")
	ErrForbidden               = errors.New("caller is not permitted to perform this action")
	ErrInvalidTimeRange        = errors.New("end time must be after start time")
	ErrOverlapConflict         = errors.New("time range overlaps an existing slot")
	ErrInsufficientFunds       = errors.New("wallet balance is below the required deposit")
	ErrInvalidStatusTransition = errors.New("status transition is not allowed")
	ErrAlreadyAccepted         = errors.New("request has already been accepted")
	ErrDuplicateRequest        = errors.New("a pending request for this post already exists")
	ErrInvalidState            = errors.New("entity is not in a state that allows this action")
)
