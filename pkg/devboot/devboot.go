// Package devboot is the public entry point for preparing a Django project for
// local development: makemigrations per app, migrate, then runserver.
package devboot

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/getpup/pupsourcing/es"
	"github.com/jonboulle/clockwork"
	rootpkg "github.com/recoveryguard/devboot"
	"github.com/recoveryguard/devboot/executor"
	"github.com/recoveryguard/devboot/sequencer"
)

// Re-export core types from root package
type (
	// AppName identifies a Django application by its label.
	AppName = rootpkg.AppName

	// Step is a single kind of management command in the pipeline.
	Step = rootpkg.Step

	// Invocation records one external command run by the pipeline.
	Invocation = rootpkg.Invocation

	// Report summarizes one pipeline run.
	Report = rootpkg.Report
)

// ErrInterrupted is returned by Run when the context is cancelled mid-pipeline.
var ErrInterrupted = rootpkg.ErrInterrupted

// Option configures a Sequencer.
type Option func(*config)

// config holds the internal configuration for creating a Sequencer.
type config struct {
	apps           []AppName
	appsSet        bool
	commands       sequencer.Commands
	workDir        string
	env            []string
	runner         executor.Runner
	notices        io.Writer
	probe          sequencer.Probe
	project        string
	runID          string
	clock          clockwork.Clock
	logger         es.Logger
	metricsEnabled *bool
}

// New creates a new Sequencer with the given options.
//
// Optional configuration (with defaults):
//   - WithApps: apps to generate migrations for (default: accounts, cases, chat, notifications)
//   - WithPython: interpreter running manage.py (default: "python")
//   - WithManageScript: path to manage.py (default: "manage.py")
//   - WithServerAddr: runserver "[addr:]port" (default: Django's own default)
//   - WithWorkDir: directory commands run in (default: current directory)
//   - WithEnv: extra KEY=VALUE pairs for every command (default: none)
//   - WithNotices: where progress notices go (default: os.Stdout)
//   - WithProbe: check run before the first command (default: none)
//   - WithProject: metrics project label (default: base name of the work directory)
//   - WithRunID: run correlation ID (default: random UUID)
//   - WithClock: clock timestamping invocations (default: real clock)
//   - WithLogger: logger for observability (default: nil)
//   - WithMetricsEnabled: enable Prometheus metrics (default: true)
//   - WithRunner: custom command runner (default: executor.New in the work directory)
//
// Example:
//
//	seq, err := devboot.New(
//	    devboot.WithPython(".venv/bin/python"),
//	    devboot.WithServerAddr("0.0.0.0:8000"),
//	)
//
// Returns an error if an app name is not a valid Django app label or if WithApps
// was given no apps.
func New(opts ...Option) (rootpkg.Sequencer, error) {
	cfg := &config{
		apps:     rootpkg.DefaultApps(),
		commands: sequencer.DefaultCommands(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.appsSet && len(cfg.apps) == 0 {
		return nil, fmt.Errorf("apps are required: %w", rootpkg.ErrEmptyAppList)
	}
	for _, app := range cfg.apps {
		if err := rootpkg.ValidateAppName(app); err != nil {
			return nil, err
		}
	}

	if cfg.project == "" {
		cfg.project = ProjectName(cfg.workDir)
	}

	if cfg.runner == nil {
		cfg.runner = executor.New(executor.Config{
			Dir:    cfg.workDir,
			Env:    cfg.env,
			Logger: cfg.logger,
		})
	}

	return sequencer.New(sequencer.Config{
		Apps:           cfg.apps,
		Commands:       cfg.commands,
		Runner:         cfg.runner,
		Notices:        cfg.notices,
		Probe:          cfg.probe,
		Project:        cfg.project,
		RunID:          cfg.runID,
		Clock:          cfg.clock,
		Logger:         cfg.logger,
		MetricsEnabled: cfg.metricsEnabled,
	}), nil
}

// Run creates a Sequencer with opts and runs it.
func Run(ctx context.Context, opts ...Option) (Report, error) {
	seq, err := New(opts...)
	if err != nil {
		return Report{}, err
	}
	return seq.Run(ctx)
}

// DefaultApps returns the project's apps in the order their migrations are generated.
func DefaultApps() []AppName {
	return rootpkg.DefaultApps()
}

// WithApps sets the apps to generate migrations for, in order.
func WithApps(apps ...AppName) Option {
	return func(c *config) {
		c.apps = append([]AppName(nil), apps...)
		c.appsSet = true
	}
}

// WithPython sets the interpreter that runs manage.py.
func WithPython(python string) Option {
	return func(c *config) {
		c.commands.Python = python
	}
}

// WithManageScript sets the path to manage.py, relative to the work directory.
func WithManageScript(path string) Option {
	return func(c *config) {
		c.commands.ManageScript = path
	}
}

// WithServerAddr sets the "[addr:]port" passed to runserver.
func WithServerAddr(addrPort string) Option {
	return func(c *config) {
		c.commands.ServerAddr = addrPort
	}
}

// WithWorkDir sets the directory the default runner starts commands in.
// It has no effect when WithRunner is used.
func WithWorkDir(dir string) Option {
	return func(c *config) {
		c.workDir = dir
	}
}

// WithEnv adds KEY=VALUE pairs to the environment of every command.
// It has no effect when WithRunner is used.
func WithEnv(env ...string) Option {
	return func(c *config) {
		c.env = append(c.env, env...)
	}
}

// WithNotices sets where progress notices are written.
func WithNotices(w io.Writer) Option {
	return func(c *config) {
		c.notices = w
	}
}

// WithProbe sets a check that runs before the first command.
// Its failure is logged but does not stop the pipeline.
func WithProbe(probe sequencer.Probe) Option {
	return func(c *config) {
		c.probe = probe
	}
}

// WithProject sets the project label attached to metrics.
func WithProject(project string) Option {
	return func(c *config) {
		c.project = project
	}
}

// WithRunID sets the ID correlating log lines of this run.
func WithRunID(runID string) Option {
	return func(c *config) {
		c.runID = runID
	}
}

// WithClock sets the clock used to time invocations.
func WithClock(clock clockwork.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger sets the logger for observability.
func WithLogger(logger es.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetricsEnabled enables or disables Prometheus metrics collection.
func WithMetricsEnabled(enabled bool) Option {
	return func(c *config) {
		c.metricsEnabled = &enabled
	}
}

// WithRunner sets a custom command runner.
// Use this to run commands somewhere other than the local host, or in tests.
func WithRunner(runner executor.Runner) Option {
	return func(c *config) {
		c.runner = runner
	}
}

// ProjectName derives the metrics project label from the work directory.
func ProjectName(workDir string) string {
	if workDir == "" {
		workDir = "."
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return "devboot"
	}
	name := filepath.Base(abs)
	if name == "" || name == string(filepath.Separator) || name == "." {
		return "devboot"
	}
	return name
}
