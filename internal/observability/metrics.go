package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	"github.com/allanhy/tallysight-sub000/internal/platform/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "tallysight"

// Metrics owns the service's Prometheus collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	syncRuns        *prometheus.CounterVec
	syncRunDuration *prometheus.HistogramVec
	gameResults     *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		syncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_runs_total",
			Help:      "Sync passes by sport, trigger and final status.",
		}, []string{"sport", "trigger", "status"}),
		syncRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Wall time of a sync pass.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"sport"}),
		gameResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_game_results_total",
			Help:      "Per-game reconciliation outcomes.",
		}, []string{"sport", "outcome"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_fetch_total",
			Help:      "Scoreboard fetches by sport and status.",
		}, []string{"sport", "status"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Scoreboard fetch latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"sport"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half open, 2 open.",
		}, []string{"name"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveFetch(sport, status string, elapsed time.Duration) {
	m.fetches.WithLabelValues(sport, status).Inc()
	m.fetchDuration.WithLabelValues(sport).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveResult(sport string, outcome game.Outcome) {
	m.gameResults.WithLabelValues(sport, string(outcome)).Inc()
}

func (m *Metrics) ObserveRun(sport string, trigger syncrun.Trigger, status syncrun.Status, elapsed time.Duration) {
	m.syncRuns.WithLabelValues(sport, string(trigger), string(status)).Inc()
	m.syncRunDuration.WithLabelValues(sport).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TrackBreaker publishes the breaker's state now and on every transition.
func (m *Metrics) TrackBreaker(name string, breaker *resilience.CircuitBreaker) {
	if breaker == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(breakerStateValue(breaker.State()))
	breaker.OnStateChange(func(_ string, _, to resilience.CircuitState) {
		m.breakerState.WithLabelValues(name).Set(breakerStateValue(to))
	})
}

func breakerStateValue(state resilience.CircuitState) float64 {
	switch state {
	case resilience.CircuitStateHalfOpen:
		return 1
	case resilience.CircuitStateOpen:
		return 2
	default:
		return 0
	}
}
