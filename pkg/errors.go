// Package pkg holds utilities shared across the project.
// This file defines the domain-level errors.
//
// Errors are compared by identity, not by message:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Wrapped errors (fmt.Errorf("...: %w", err)) still match.
package pkg

import "errors"

// Domain-level errors.
// The handler layer maps these to HTTP status codes (see response.go).
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadyExists   = errors.New("already exists")
	ErrBadRequest      = errors.New("bad request")
	ErrTooManyRequests = errors.New("too many requests")
	ErrInternal        = errors.New("internal error")
)

// Messaging core errors.
//
// ErrFetchFailed wraps whatever the page collaborator returned; the feed is
// left untouched and the call may be retried.
// ErrAlreadyFetching is returned synchronously when a second FetchNext is
// issued while one is still outstanding.
// ErrStaleResponse marks a result that arrived after a newer request of the
// same kind superseded it; the result has been discarded.
var (
	ErrFetchFailed     = errors.New("fetch failed")
	ErrAlreadyFetching = errors.New("already fetching")
	ErrNoMorePages     = errors.New("no more pages")
	ErrNotOpen         = errors.New("feed is not open")
	ErrStaleResponse   = errors.New("stale response")
	ErrLookupFailed    = errors.New("user lookup failed")
)
