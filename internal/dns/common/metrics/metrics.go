// Package metrics exposes Prometheus instrumentation for the responder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons used with RequestsDropped.
const (
	ReasonParse   = "parse"
	ReasonFraming = "framing"
	ReasonPanic   = "panic"
	ReasonWrite   = "write"
	ReasonRespond = "respond"
)

var (
	// Query pipeline
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lbdns_queries_total",
			Help: "Total number of queries answered by transport and whether the name was in zone",
		},
		[]string{"transport", "zone"},
	)

	RequestsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lbdns_requests_dropped_total",
			Help: "Total number of requests dropped without a reply by transport and reason",
		},
		[]string{"transport", "reason"},
	)

	InflightRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lbdns_inflight_requests",
			Help: "Number of requests currently held by a worker",
		},
		[]string{"transport"},
	)

	// Backend selection
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lbdns_refresh_total",
			Help: "Total number of selection and rebuild cycles by result",
		},
		[]string{"result"},
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lbdns_refresh_duration_seconds",
			Help:    "Time spent selecting a backend and rebuilding the zone",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActiveBackend = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lbdns_active_backend",
			Help: "Set to 1 for the backend currently served, 0 for the others",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(RequestsDropped)
	prometheus.MustRegister(InflightRequests)
	prometheus.MustRegister(RefreshTotal)
	prometheus.MustRegister(RefreshDuration)
	prometheus.MustRegister(ActiveBackend)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetActiveBackend marks backend as the one being served.
func SetActiveBackend(backend string) {
	ActiveBackend.Reset()
	ActiveBackend.WithLabelValues(backend).Set(1)
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer was started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds on h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
