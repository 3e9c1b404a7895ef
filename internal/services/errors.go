// Package services defines the business logic of the repair-intake bot:
// the intake state machine with its session registry, and the operator-only
// administrative operations. This file centralizes service-level error values
// so they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages (bot replies, HTTP status codes) is
// performed at the transport layer, never here.
package services

import "errors"

var (
	// ErrNoActiveSession indicates that Advance was called for a chat with
	// no in-progress intake. The transport routes such messages to its
	// fallback behavior.
	ErrNoActiveSession = errors.New("no active intake session")

	// ErrRequestNotFound indicates that the referenced request id does not
	// exist in the store.
	ErrRequestNotFound = errors.New("request not found")

	// ErrAccessDenied is returned when an operator-only operation is
	// attempted by any other identity.
	ErrAccessDenied = errors.New("access denied")
)
