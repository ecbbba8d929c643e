package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// OptimizeRuns counts route optimization runs by outcome.
	OptimizeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimize_runs_total", Help: "Route optimization runs by outcome."},
		[]string{"outcome"},
	)
	// OptimizeDuration records optimization latency in seconds.
	OptimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_optimize_duration_seconds", Help: "Route optimization duration in seconds.", Buckets: prometheus.DefBuckets},
	)
	// Notifications counts call reminder deliveries by channel and status.
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "call_notifications_total", Help: "Call reminder notifications by channel and status."},
		[]string{"channel", "status"},
	)
	// CheckerIterations records one full pending+retry pass of the checker.
	CheckerIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "call_checker_iteration_seconds", Help: "Call checker iteration duration in seconds.", Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10}},
	)
	// DistanceLookups counts distance provider lookups by source.
	DistanceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_lookups_total", Help: "Distance/time lookups by source (cache, provider, fallback)."},
		[]string{"source"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the package registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(OptimizeRuns)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(Notifications)
		Registry.MustRegister(CheckerIterations)
		Registry.MustRegister(DistanceLookups)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
