// Package middleware provides HTTP middleware for the TrendPulse REST API,
// including API key authentication, request logging, and request IDs.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trendpulse/trendservice/internal/api/models"
)

// RequireAPIKey enforces a shared-secret API key on the operator-facing
// /internal/* routes. Clients must send X-API-Key: <key>.
//
// The comparison is constant-time: config.APIConfig documents the key as a
// secret, and a short-circuiting byte comparison would leak, via response
// timing, how many leading bytes of a guessed key are correct.
func RequireAPIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-API-Key")
		if constantTimeEqual(got, expected) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:     "unauthorized",
			RequestID: RequestIDFromContext(c),
		})
	}
}

// constantTimeEqual reports whether a and b are equal without leaking
// information about a mismatch's position through execution time.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
