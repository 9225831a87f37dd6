package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus collectors of the rebalancer.
// A nil *Registry is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	OptimizationDuration *prometheus.HistogramVec
	SolverOutcomes       *prometheus.CounterVec
	FallbackRuns         *prometheus.CounterVec
	BudgetUtilization    prometheus.Histogram
	CacheEvents          *prometheus.CounterVec
	MomentumRecords      *prometheus.CounterVec
	QuoteFetches         *prometheus.CounterVec
}

// NewRegistry creates and registers every collector on a private registry
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		OptimizationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rebalancer_optimization_duration_seconds",
				Help:    "Duration of optimization requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"solver_status"},
		),

		SolverOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_solver_outcomes_total",
				Help: "Integer solver outcomes by normalized status",
			},
			[]string{"status"},
		),

		FallbackRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_fallback_runs_total",
				Help: "Heuristic cascade runs by final promoter",
			},
			[]string{"promoter"},
		),

		BudgetUtilization: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rebalancer_budget_utilization_percent",
				Help:    "Budget utilization percentage of returned allocations",
				Buckets: []float64{50, 80, 90, 95, 98, 99, 99.5, 100},
			},
		),

		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_cache_events_total",
				Help: "Cache hits, misses and errors by namespace",
			},
			[]string{"namespace", "event"},
		),

		MomentumRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_momentum_records_total",
				Help: "Momentum records computed by result",
			},
			[]string{"result"},
		),

		QuoteFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalancer_quote_fetches_total",
				Help: "Quote provider fetches by source and result",
			},
			[]string{"source", "result"},
		),
	}

	r.reg.MustRegister(
		r.OptimizationDuration,
		r.SolverOutcomes,
		r.FallbackRuns,
		r.BudgetUtilization,
		r.CacheEvents,
		r.MomentumRecords,
		r.QuoteFetches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveOptimization records one optimizer run
func (r *Registry) ObserveOptimization(solverStatus string, fallback string, utilization float64, d time.Duration) {
	if r == nil {
		return
	}
	r.OptimizationDuration.WithLabelValues(solverStatus).Observe(d.Seconds())
	r.SolverOutcomes.WithLabelValues(solverStatus).Inc()
	if fallback != "" {
		r.FallbackRuns.WithLabelValues(fallback).Inc()
	}
	r.BudgetUtilization.Observe(utilization)
}

// MomentumComputed records a momentum record result
func (r *Registry) MomentumComputed(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.MomentumRecords.WithLabelValues(result).Inc()
}

// QuoteFetched records a quote provider call
func (r *Registry) QuoteFetched(source string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.QuoteFetches.WithLabelValues(source, result).Inc()
}

// CacheHit implements cache.Observer
func (r *Registry) CacheHit(namespace string) {
	if r == nil {
		return
	}
	r.CacheEvents.WithLabelValues(namespace, "hit").Inc()
}

// CacheMiss implements cache.Observer
func (r *Registry) CacheMiss(namespace string) {
	if r == nil {
		return
	}
	r.CacheEvents.WithLabelValues(namespace, "miss").Inc()
}

// CacheError implements cache.Observer
func (r *Registry) CacheError(namespace string) {
	if r == nil {
		return
	}
	r.CacheEvents.WithLabelValues(namespace, "error").Inc()
}
