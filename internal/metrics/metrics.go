// Package metrics exposes prometheus collectors for the orchestrator,
// grounded on cuemby-warren's pkg/metrics package: package-level
// collector vars, registered once in init, incremented from call sites
// rather than a wrapped facade.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CompilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awf_policy_compiles_total",
			Help: "Total number of policy compilations by outcome",
		},
		[]string{"outcome"},
	)

	CompileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "awf_policy_compile_duration_seconds",
			Help:    "Policy compilation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ContainerStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awf_container_starts_total",
			Help: "Total number of container starts by role and outcome",
		},
		[]string{"role", "outcome"},
	)

	EgressDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awf_egress_denials_total",
			Help: "Total number of egress denials by layer (host_chain, nat, proxy, interceptor)",
		},
		[]string{"layer"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awf_runs_total",
			Help: "Total number of orchestrator runs by terminal state",
		},
		[]string{"state"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "awf_run_duration_seconds",
			Help:    "End-to-end run duration in seconds, Parse through Done",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)

	TeardownDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "awf_teardown_duration_seconds",
			Help:    "Teardown duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TeardownErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "awf_teardown_errors_total",
			Help: "Total number of errors encountered during teardown",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CompilesTotal,
		CompileDuration,
		ContainerStartsTotal,
		EgressDenialsTotal,
		RunsTotal,
		RunDuration,
		TeardownDuration,
		TeardownErrorsTotal,
	)
}
