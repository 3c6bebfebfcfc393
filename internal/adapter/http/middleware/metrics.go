package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrorCodeKey is where handlers leave the error code of a failed request.
const ErrorCodeKey = "error_code"

var (
	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_api_requests_total",
			Help: "HTTP requests served, by route template and status",
		},
		[]string{"method", "route", "status"},
	)

	apiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_api_request_duration_seconds",
			Help:    "HTTP request latency by route template",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	apiErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_api_request_errors_total",
			Help: "Failed HTTP requests by route and error code, e.g. insufficient_stock",
		},
		[]string{"route", "code"},
	)
)

// Metrics records every request under its route template, never the raw
// path, and counts failures by the error code the handler reported.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		apiRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		apiLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())

		if status < 400 {
			return
		}
		code := c.GetString(ErrorCodeKey)
		if code == "" {
			code = "http_" + strconv.Itoa(status)
		}
		apiErrors.WithLabelValues(route, code).Inc()
	}
}
