package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/internal/service"
)

// Metrics returns middleware that captures request metrics using the
// provided service. Websocket upgrades stay open for the life of the
// connection; they are counted but recorded with zero latency.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		upgrade := strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		elapsed := time.Since(start)
		if upgrade {
			elapsed = 0
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), elapsed)
	}
}
