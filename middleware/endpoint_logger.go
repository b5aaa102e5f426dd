package middleware

import (
	"fmt"
	"time"

	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/gin-gonic/gin"
)

// EndpointCallLogger logs each HTTP request as an ENDPOINT_CALL event.
// Events are persisted when util.SetEventLoggerDB was called during startup.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"query":       c.Request.URL.RawQuery,
		}
		if len(c.Errors) > 0 {
			details["errors"] = c.Errors.String()
		}

		util.LogEvent(util.Event{
			EventType: util.EventEndpointCall,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		})
	}
}
