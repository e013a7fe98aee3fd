package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	secpDevicesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "secp_devices_total",
		Help: "Total number of registered devices by activity state.",
	}, []string{"state"})

	secpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secp_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	secpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "secp_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	secpAssessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secp_risk_assessments_total",
		Help: "Total risk assessments by resulting category.",
	}, []string{"category"})

	secpDeviceScoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secp_device_scores_total",
		Help: "Total device trust score computations by category.",
	}, []string{"category"})

	secpThreatReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secp_threat_reports_total",
		Help: "Total threat reports submitted by severity.",
	}, []string{"severity"})

	secpQuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secp_premium_quotes_total",
		Help: "Total premium quotes generated by coverage tier.",
	}, []string{"tier"})

	secpRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secp_rate_limited_requests_total",
		Help: "Requests rejected by the per-client rate limiter, by route.",
	}, []string{"path"})
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

		secpRequestsTotal.WithLabelValues(method, path, status).Inc()
		secpRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAssessment records a completed risk assessment.
func RecordAssessment(category string) {
	secpAssessmentsTotal.WithLabelValues(category).Inc()
}

// RecordDeviceScore records a device trust score computation.
func RecordDeviceScore(category string) {
	secpDeviceScoresTotal.WithLabelValues(category).Inc()
}

// RecordThreatReport records a submitted threat report.
func RecordThreatReport(severity string) {
	secpThreatReportsTotal.WithLabelValues(severity).Inc()
}

// RecordQuote records a generated premium quote.
func RecordQuote(tier string) {
	secpQuotesTotal.WithLabelValues(tier).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(path string) {
	secpRateLimitedTotal.WithLabelValues(path).Inc()
}

// SetDevicesGauge sets the device count gauge for a given state.
func SetDevicesGauge(state string, count float64) {
	secpDevicesTotal.WithLabelValues(state).Set(count)
}
