// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides OperatorAuth, the token check in front of the operator
// API. The bot has exactly one privileged principal (the operator), so a
// single shared token is sufficient; comparison is constant-time.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderOperatorToken carries the operator API token. A Bearer Authorization
// header is accepted as an alternative.
const HeaderOperatorToken = "X-Operator-Token"

// OperatorAuth returns a middleware that rejects requests whose token does not
// match the configured one. With an empty configured token the operator API is
// disabled entirely and every request gets a 403.
func OperatorAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "forbidden",
				"message":    "operator API is disabled",
			})
			return
		}

		got := c.GetHeader(HeaderOperatorToken)
		if got == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				got = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "missing or invalid operator token",
			})
			return
		}
		c.Next()
	}
}
