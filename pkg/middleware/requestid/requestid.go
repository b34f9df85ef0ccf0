package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// Header carries the correlation id to downstream services.
	Header     = "X-Request-ID"
	contextKey = "request_id"
)

// Middleware assigns a fresh correlation ID to every inbound request.
// A client-supplied header is ignored so a caller cannot spoof correlation.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := generateID()

		c.Set(contextKey, reqID)
		c.Writer.Header().Set(Header, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
