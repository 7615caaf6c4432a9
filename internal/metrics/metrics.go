// Package metrics holds the Prometheus collectors of the API process.
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
	// HTTPRequests counts finished requests by route template, not raw path.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "practice_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Bookings counts created appointments. origin is "guest" or "user".
	Bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_bookings_total",
			Help: "Total number of appointments booked",
		},
		[]string{"origin"},
	)

	// DeliveryFailures counts notifications and events that could not be delivered.
	// channel is "email" or "events".
	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_delivery_failures_total",
			Help: "Total number of failed notification or event deliveries",
		},
		[]string{"channel"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "practice_circuit_breaker_state",
			Help: "Circuit breaker state per downstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// Middleware records request count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
