package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediavault-backend/internal/observability"
)

const (
	routeUnmatched = "unmatched"
	routeMetrics   = "/metrics"
	uploadsPrefix  = "/api/uploads"
)

// Metrics records per-route request counts and latency. Unmatched paths share
// one label so scanners cannot blow up cardinality, and scrapes of /metrics
// are not counted. Upload POSTs also record their declared body size.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.URL.Path == routeMetrics {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := routeLabel(c)
		if c.Request.Method == http.MethodPost && strings.HasPrefix(route, uploadsPrefix) {
			m.ObserveUploadRequest(route, c.Request.ContentLength)
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return routeUnmatched
}
