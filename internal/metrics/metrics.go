// Package metrics exposes Prometheus collectors for reconciliation passes, remote status
// checks and the local callback listener.
//
// A nil [*Metrics] is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "edjs"

// Reconciliation sources.
const (
	SourceURL     = "url"
	SourceCache   = "cache"
	SourceRemote  = "remote"
	SourceDefault = "default"
)

// Remote status outcomes.
const (
	OutcomeAuthenticated   = "authenticated"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeError           = "error"
	OutcomeTimeout         = "timeout"
)

type Metrics struct {
	ReconcileTotal    *prometheus.CounterVec
	StatusFetchTotal  *prometheus.CounterVec
	StatusFetchTime   *prometheus.HistogramVec
	EmissionsTotal    *prometheus.CounterVec
	CallbacksInflight prometheus.Gauge
	HTTPRequestsTotal *prometheus.CounterVec
}

// New builds an unregistered set of collectors.
func New() *Metrics {
	return &Metrics{
		ReconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation passes by the source that decided the state",
		}, []string{"source"}),
		StatusFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_fetch_total",
			Help:      "Remote auth status checks by mode and outcome",
		}, []string{"mode", "outcome"}),
		StatusFetchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_fetch_duration_seconds",
			Help:      "Latency of remote auth status checks",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mode"}),
		EmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_emissions_total",
			Help:      "Auth state changes delivered to observers",
		}, []string{"authenticated"}),
		CallbacksInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "callbacks_inflight",
			Help:      "One-time status callbacks currently registered",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served by the local callback listener",
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReconcileTotal, m.StatusFetchTotal, m.StatusFetchTime,
		m.EmissionsTotal, m.CallbacksInflight, m.HTTPRequestsTotal,
	}
}

// Register adds every collector to reg, or the default registerer when reg is nil.
// Collectors that are already registered are skipped.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered from g, or the default gatherer when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveReconcile(source string) {
	if m == nil {
		return
	}
	m.ReconcileTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveStatusFetch(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StatusFetchTotal.WithLabelValues(mode, outcome).Inc()
	m.StatusFetchTime.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) ObserveEmission(authenticated bool) {
	if m == nil {
		return
	}
	m.EmissionsTotal.WithLabelValues(strconv.FormatBool(authenticated)).Inc()
}

func (m *Metrics) CallbackRegistered() {
	if m == nil {
		return
	}
	m.CallbacksInflight.Inc()
}

func (m *Metrics) CallbackReleased() {
	if m == nil {
		return
	}
	m.CallbacksInflight.Dec()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithMetrics counts requests served by next.
func (m *Metrics) WithMetrics(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Inc()
	})
}
