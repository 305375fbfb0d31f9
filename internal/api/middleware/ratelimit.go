package middleware

import (
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
	"github.com/trendpulse/trendservice/internal/api/models"
	"github.com/trendpulse/trendservice/internal/ratelimit"
)

// RateLimit rejects requests once the caller's client IP exceeds the
// configured global/prefix/IP token-bucket limits, returning 429 per
// spec.md §6's documented status code for rate-limit exceeded.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed := true
		if addr, err := netip.ParseAddr(c.ClientIP()); err == nil {
			allowed = limiter.AllowAddr(addr)
		} else {
			allowed = limiter.Allow(c.ClientIP())
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "rate limit exceeded", RequestID: RequestIDFromContext(c)})
			return
		}
		c.Next()
	}
}
