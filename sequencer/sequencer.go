package sequencer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/getpup/pupsourcing/es"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/recoveryguard/devboot"
	"github.com/recoveryguard/devboot/executor"
	"github.com/recoveryguard/devboot/metrics"
)

// Progress notices written to Config.Notices.
const (
	NoticeStart    = "Making migrations..."
	NoticeApply    = "Applying migrations..."
	NoticeComplete = "Migrations complete. Starting development server..."
)

// Probe checks a dependency before any command runs.
type Probe interface {
	Check(ctx context.Context) error
}

// Config holds configuration for the Sequencer.
type Config struct {
	// Apps is the ordered list of apps to generate migrations for (default: devboot.DefaultApps()).
	// An explicitly empty, non-nil slice skips generation entirely.
	Apps []devboot.AppName

	// Commands builds the argv for each step (default: DefaultCommands()).
	Commands Commands

	// Runner runs each command.
	// If nil, a default executor is created that inherits the standard streams.
	Runner executor.Runner

	// Notices receives the progress notices (default: os.Stdout).
	Notices io.Writer

	// Probe is an optional check run before the first command.
	// Its failure is logged and counted but never stops the pipeline.
	Probe Probe

	// Project labels metrics (default: "devboot").
	Project string

	// RunID correlates log lines of one run (default: a new UUID).
	RunID string

	// Clock timestamps each invocation (default: the real clock).
	Clock clockwork.Clock

	// Logger is for observability (optional).
	Logger es.Logger

	// MetricsEnabled enables Prometheus metrics collection (default: true).
	// Set to false explicitly to disable metrics.
	MetricsEnabled *bool
}

// Sequencer runs makemigrations per app, migrate, and runserver, in that order.
type Sequencer struct {
	config    Config
	collector *metrics.Collector
}

// Compile-time check that Sequencer implements devboot.Sequencer.
var _ devboot.Sequencer = (*Sequencer)(nil)

// New creates a new Sequencer with the given configuration.
// Applies default values for every optional field.
func New(cfg Config) *Sequencer {
	if cfg.Apps == nil {
		cfg.Apps = devboot.DefaultApps()
	}
	cfg.Commands = cfg.Commands.withDefaults()
	if cfg.Notices == nil {
		cfg.Notices = os.Stdout
	}
	if cfg.Project == "" {
		cfg.Project = "devboot"
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Runner == nil {
		cfg.Runner = executor.New(executor.Config{
			Logger: cfg.Logger,
		})
	}

	// Create metrics collector if enabled (default: true)
	var collector *metrics.Collector
	metricsEnabled := true
	if cfg.MetricsEnabled != nil {
		metricsEnabled = *cfg.MetricsEnabled
	}
	if metricsEnabled {
		collector = metrics.NewCollector(cfg.Project)
	}

	return &Sequencer{
		config:    cfg,
		collector: collector,
	}
}

// Apps returns the configured app order.
func (s *Sequencer) Apps() []devboot.AppName {
	return append([]devboot.AppName(nil), s.config.Apps...)
}

// RunID returns the ID attached to this sequencer's report and log lines.
func (s *Sequencer) RunID() string {
	return s.config.RunID
}

// Run executes the pipeline. See devboot.Sequencer for the contract.
func (s *Sequencer) Run(ctx context.Context) (devboot.Report, error) {
	report := devboot.Report{RunID: s.config.RunID}

	if s.config.Logger != nil {
		s.config.Logger.Info(ctx, "pipeline starting", "runID", s.config.RunID, "apps", s.config.Apps)
	}

	if s.config.Probe != nil {
		if err := s.config.Probe.Check(ctx); err != nil && s.config.Logger != nil {
			s.config.Logger.Error(ctx, "preflight failed, continuing", "runID", s.config.RunID, "error", err)
		}
	}

	s.notice(NoticeStart)
	for _, app := range s.config.Apps {
		if err := ctx.Err(); err != nil {
			return report, s.interrupted(ctx, err)
		}
		report.Invocations = append(report.Invocations, s.invoke(ctx, devboot.StepGenerate, app, s.config.Commands.Generate(app)))
	}

	if err := ctx.Err(); err != nil {
		return report, s.interrupted(ctx, err)
	}
	s.notice(NoticeApply)
	report.Invocations = append(report.Invocations, s.invoke(ctx, devboot.StepApply, "", s.config.Commands.Apply()))

	if err := ctx.Err(); err != nil {
		return report, s.interrupted(ctx, err)
	}
	s.notice(NoticeComplete)
	served := s.invoke(ctx, devboot.StepServe, "", s.config.Commands.Serve())
	report.Invocations = append(report.Invocations, served)
	report.ServerExitCode = served.ExitCode

	if s.config.Logger != nil {
		s.config.Logger.Info(ctx, "pipeline finished",
			"runID", s.config.RunID, "serverExitCode", served.ExitCode, "failedSteps", len(report.Failed()))
	}

	return report, nil
}

// invoke runs one command and records its outcome. Failures are reported, never acted on.
func (s *Sequencer) invoke(ctx context.Context, step devboot.Step, app devboot.AppName, argv []string) devboot.Invocation {
	inv := devboot.Invocation{
		Step:      step,
		App:       app,
		Args:      argv,
		StartedAt: s.config.Clock.Now(),
	}

	if s.config.Logger != nil {
		s.config.Logger.Info(ctx, "running command", "runID", s.config.RunID, "step", step, "app", app, "argv", argv)
	}

	inv.ExitCode, inv.Err = s.config.Runner.Run(ctx, argv[0], argv[1:]...)
	inv.Duration = s.config.Clock.Since(inv.StartedAt)

	if s.collector != nil {
		s.collector.ObserveInvocation(string(step), string(app), inv.ExitCode, inv.Duration.Seconds())
	}

	if s.config.Logger != nil {
		if inv.Succeeded() {
			s.config.Logger.Debug(ctx, "command succeeded", "runID", s.config.RunID, "step", step, "app", app, "duration", inv.Duration)
		} else {
			s.config.Logger.Error(ctx, "command failed, continuing",
				"runID", s.config.RunID, "step", step, "app", app, "exitCode", inv.ExitCode, "error", inv.Err)
		}
	}

	return inv
}

func (s *Sequencer) notice(line string) {
	// Notices are best effort; a closed stdout must not stop the pipeline.
	_, _ = fmt.Fprintln(s.config.Notices, line)
}

func (s *Sequencer) interrupted(ctx context.Context, cause error) error {
	if s.collector != nil {
		s.collector.IncInterrupted()
	}
	if s.config.Logger != nil {
		s.config.Logger.Error(ctx, "pipeline interrupted", "runID", s.config.RunID, "error", cause)
	}
	return fmt.Errorf("%w: %w", devboot.ErrInterrupted, cause)
}
