// Package handlers provides HTTP handler implementations for the webhook, the
// public requests view and the operator API.
//
// This file defines the standard response utilities used across all endpoints:
// structured error envelopes, consistent JSON serialization, and helpers for
// common HTTP patterns, so both success and failure responses stay uniform.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with request context.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "request not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-repair-bot/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
// RequestID correlates server logs with client-side errors; Code is a stable
// machine-readable string (see errors.go); Message is safe to show to users.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"request not found"`
}

// fail aborts the request with a structured error and logs server-side errors
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), for use by router setup code
// (NoRoute/NoMethod fallbacks).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
