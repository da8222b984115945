package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	gatewayRequestsTotal  *prometheus.CounterVec
	gatewayLatencySeconds *prometheus.HistogramVec

	activitiesReconciledTotal  prometheus.Counter
	notificationRefreshesTotal *prometheus.CounterVec
	streamClientsActive        prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the
// portal API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of portal API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for portal API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by portal endpoints.",
		}, []string{"method", "route", "status"})

		gatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_gateway_requests_total",
			Help: "Total number of requests issued to the school gateway.",
		}, []string{"operation", "outcome"})

		gatewayLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_gateway_latency_seconds",
			Help:    "Latency distribution for school gateway requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"operation"})

		activitiesReconciledTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activities_reconciled_total",
			Help: "Total number of activities processed by the aggregation engine.",
		})

		notificationRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_refreshes_total",
			Help: "Total number of notification store refreshes by trigger.",
		}, []string{"trigger"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_stream_clients_active",
			Help: "Number of connected notification stream clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			gatewayRequestsTotal,
			gatewayLatencySeconds,
			activitiesReconciledTotal,
			notificationRefreshesTotal,
			streamClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for portal requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for portal requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for portal error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// GatewayRequests exposes the counter for school gateway requests.
func GatewayRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gatewayRequestsTotal
}

// GatewayLatency exposes the latency histogram for school gateway requests.
func GatewayLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gatewayLatencySeconds
}

// ActivitiesReconciled exposes the counter for reconciled activities.
func ActivitiesReconciled() prometheus.Counter {
	RegisterMetrics()
	return activitiesReconciledTotal
}

// NotificationRefreshes exposes the counter for notification store refreshes.
func NotificationRefreshes() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationRefreshesTotal
}

// StreamClientsActive exposes the gauge of connected stream clients.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}
