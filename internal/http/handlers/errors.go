// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// These symbolic constants give clients a stable, machine-readable error
// taxonomy that supplements the human-readable messages. Generic codes mirror
// common HTTP status semantics; domain-specific codes cover business failures
// the status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeDeleteFailed     = "delete_failed"
	ErrCodeExportFailed     = "export_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
