package telemetry

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus HTTP request primitives.
type Metrics struct {
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
}

// NewMetrics registers the HTTP instruments on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billingledger_api_requests_total",
		Help: "Counts API requests by route, status and tenant.",
	}, []string{"route", "status", "tenant"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billingledger_api_duration_seconds",
		Help:    "API request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	registerer.MustRegister(apiRequests, apiDuration)

	return &Metrics{
		apiRequests: apiRequests,
		apiDuration: apiDuration,
	}
}

// ObserveAPIRequest records one completed request.
func (m *Metrics) ObserveAPIRequest(route, status, tenant string, duration time.Duration) {
	if m == nil {
		return
	}
	route = sanitizeLabel(route)
	m.apiRequests.WithLabelValues(route, sanitizeLabel(status), sanitizeTenant(tenant)).Inc()
	m.apiDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func sanitizeTenant(tenant string) string {
	if strings.TrimSpace(tenant) == "" {
		return "unknown"
	}
	return sanitizeLabel(tenant)
}

func sanitizeLabel(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "unknown"
	}
	if len(val) > 64 {
		return val[:64]
	}
	return val
}
