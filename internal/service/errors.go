package service

import "errors"

// ErrNotFound indicates the requested resource does not exist or does not
// belong to the expected parent.
var ErrNotFound = errors.New("not found")

// ValidationError represents a bad-request condition (HTTP 400): malformed
// tenancy hints, invalid resource pairing, missing required identifiers on
// mutating requests.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError represents a conflict condition (HTTP 409): duplicate slugs,
// duplicate memberships, deleting a role that is still referenced.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ForbiddenError represents a denied request (HTTP 403): no active
// membership, or no qualifying grant.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }
