package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the response header carrying the request id.
const HeaderRequestID = "X-Request-Id"

// contextKeyRequestID is the gin context key the request id is stored under.
const contextKeyRequestID = "request_id"

// RequestID assigns a request id to every inbound request, reusing one
// supplied by the caller via X-Request-Id if present, and echoes it back
// on the response. Handlers read it with RequestIDFromContext.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(contextKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFromContext returns the request id set by RequestID, or ""
// if the middleware was not installed.
func RequestIDFromContext(c *gin.Context) string {
	v, ok := c.Get(contextKeyRequestID)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
