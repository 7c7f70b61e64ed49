package metrics

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Collector wraps metrics and provides helper methods with pre-filled labels.
type Collector struct {
	project string
}

// NewCollector creates a new Collector for the given project.
func NewCollector(project string) *Collector {
	return &Collector{project: project}
}

// ObserveInvocation records the outcome, duration, and exit code of one command.
func (c *Collector) ObserveInvocation(step, app string, exitCode int, seconds float64) {
	outcome := outcomeSuccess
	if exitCode != 0 {
		outcome = outcomeFailure
	}
	InvocationsTotal.WithLabelValues(c.project, step, outcome).Inc()
	InvocationDuration.WithLabelValues(c.project, step).Observe(seconds)
	LastExitCode.WithLabelValues(c.project, step, app).Set(float64(exitCode))
}

// IncPreflight increments the preflight counter for an engine.
func (c *Collector) IncPreflight(engine string, ok bool) {
	outcome := outcomeSuccess
	if !ok {
		outcome = outcomeFailure
	}
	PreflightTotal.WithLabelValues(c.project, engine, outcome).Inc()
}

// IncInterrupted increments the interrupted pipelines counter.
func (c *Collector) IncInterrupted() {
	InterruptedTotal.WithLabelValues(c.project).Inc()
}
