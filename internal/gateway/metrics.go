package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects gateway request statistics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
}

// NewMetrics creates the gateway collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "startup_scout",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of backend requests by method and status class.",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "startup_scout",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Duration of backend requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"method"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "startup_scout",
				Subsystem: "gateway",
				Name:      "token_refreshes_total",
				Help:      "Access token refresh attempts by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.refreshes)
	return m
}

func (m *Metrics) observeRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func statusClass(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// RefreshCounter returns the refresh counter for result ("success" or
// "failure").
func (m *Metrics) RefreshCounter(result string) prometheus.Counter {
	return m.refreshes.WithLabelValues(result)
}
