package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/broady/restwire"
)

// Metrics holds Prometheus collectors for outbound calls, labeled by
// endpoint type and method.
type Metrics struct {
	requests *prometheus.CounterVec   // Calls by endpoint, method and status code
	duration *prometheus.HistogramVec // Round-trip latency by endpoint and method
	inflight *prometheus.GaugeVec     // Calls waiting on a response
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "restwire",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total outbound requests by endpoint, method and status code",
		}, []string{"endpoint", "method", "code"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "restwire",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Outbound request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),

		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "restwire",
			Subsystem: "client",
			Name:      "requests_in_flight",
			Help:      "Outbound requests waiting on a response",
		}, []string{"endpoint"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Interceptor records every call that passes through it. A transport
// failure or a missing response is counted with code "error".
func (m *Metrics) Interceptor() restwire.UnaryInterceptor {
	return func(call *restwire.Call, req *http.Request, next restwire.Invoker) (*http.Response, error) {
		endpoint := string(call.Endpoint)
		gauge := m.inflight.WithLabelValues(endpoint)
		gauge.Inc()
		defer gauge.Dec()

		start := time.Now()
		resp, err := next(req)
		m.duration.WithLabelValues(endpoint, call.Method).Observe(time.Since(start).Seconds())

		code := "error"
		if err == nil && resp != nil {
			code = strconv.Itoa(resp.StatusCode)
		}
		m.requests.WithLabelValues(endpoint, call.Method, code).Inc()
		return resp, err
	}
}
