package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InvocationsTotal tracks the total number of management commands run, by outcome.
var InvocationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "devboot_invocations_total",
		Help: "Total management commands run",
	},
	[]string{"project", "step", "outcome"},
)

// InvocationDuration tracks how long each management command ran.
var InvocationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "devboot_invocation_duration_seconds",
		Help:    "Management command run time",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	},
	[]string{"project", "step"},
)

// LastExitCode tracks the most recent exit code per step and app.
// The app label is empty for migrate and runserver.
var LastExitCode = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "devboot_last_exit_code",
		Help: "Exit code of the most recent run of a management command",
	},
	[]string{"project", "step", "app"},
)

// PreflightTotal tracks database preflight checks, by engine and outcome.
var PreflightTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "devboot_preflight_total",
		Help: "Total database preflight checks",
	},
	[]string{"project", "engine", "outcome"},
)

// InterruptedTotal tracks pipelines stopped before the server step started.
var InterruptedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "devboot_interrupted_total",
		Help: "Total pipelines interrupted before the server started",
	},
	[]string{"project"},
)
