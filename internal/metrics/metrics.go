package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hrms_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TenantTransitionsTotal counts subscription state transitions
	TenantTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_tenant_transitions_total",
			Help: "Total tenant subscription state transitions",
		},
		[]string{"from", "to"},
	)

	// NotificationsSentTotal counts milestone notification attempts
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_notifications_sent_total",
			Help: "Total subscription notification attempts",
		},
		[]string{"type", "outcome"},
	)

	// AuditQueueDepth tracks the audit writer queue backlog
	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hrms_audit_queue_depth",
			Help: "Number of audit entries waiting in the writer queue",
		},
	)

	// AuditEntriesDroppedTotal counts entries rejected by a full queue
	AuditEntriesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hrms_audit_entries_dropped_total",
			Help: "Total audit entries dropped because the queue was full",
		},
	)

	// ChecksumMismatchesTotal counts tampered audit records found by verification
	ChecksumMismatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hrms_audit_checksum_mismatches_total",
			Help: "Total audit records failing checksum verification",
		},
	)
)

// GinMiddleware records request count and latency per route
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
