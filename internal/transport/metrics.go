package transport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkweld/mcp-server/internal/mcp"
)

var (
	mcpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_http_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	mcpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcp_http_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	mcpRPCTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_rpc_calls_total",
		Help: "Total JSON-RPC calls by method and outcome.",
	}, []string{"rpc_method", "outcome"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		mcpRequestsTotal.WithLabelValues(method, path, status).Inc()
		mcpRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// recordRPC records one dispatched JSON-RPC call.
func recordRPC(method string, resp *mcp.Response) {
	if method == "" {
		method = "(invalid)"
	}
	outcome := "ok"
	switch {
	case resp == nil:
		outcome = "notification"
	case resp.Error != nil:
		outcome = "error"
	}
	mcpRPCTotal.WithLabelValues(method, outcome).Inc()
}
