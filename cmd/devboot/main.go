// Command devboot prepares a Django project for local development and runs it.
//
// It generates migrations for each app, applies them, and starts the
// development server in the foreground:
//
//	python manage.py makemigrations accounts --noinput
//	python manage.py makemigrations cases --noinput
//	python manage.py makemigrations chat --noinput
//	python manage.py makemigrations notifications --noinput
//	python manage.py migrate --noinput
//	python manage.py runserver
//
// A failing command does not stop the sequence. devboot exits with the
// development server's exit code, or 130 when interrupted before the server started.
//
// Usage:
//
//	devboot
//	devboot -config devboot.yaml -metrics-addr :9090
//	devboot -skip-preflight -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/recoveryguard/devboot/config"
	"github.com/recoveryguard/devboot/logging"
	"github.com/recoveryguard/devboot/metrics"
	"github.com/recoveryguard/devboot/pkg/devboot"
	"github.com/recoveryguard/devboot/preflight"
)

const (
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath       = flag.String("config", "", "Path to a devboot.yaml file (default: built-in settings)")
		metricsAddr      = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090 (default: disabled)")
		skipPreflight    = flag.Bool("skip-preflight", false, "Skip the database reachability check")
		preflightTimeout = flag.Duration("preflight-timeout", 5*time.Second, "Time limit for the database reachability check")
		logLevel         = flag.String("log-level", "info", "Log level: debug, info, warn, or error")
	)

	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", flag.Args())
		flag.Usage()
		return exitUsage
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return exitUsage
		}
	}

	runID := uuid.NewString()
	// The sequencer tags its own lines with the run ID.
	base := logging.New(os.Stderr, level, "")
	logger := base.WithComponent("cli").WithRun(runID)
	project := devboot.ProjectName(cfg.WorkDir)
	metricsEnabled := *metricsAddr != ""

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []devboot.Option{
		devboot.WithApps(cfg.AppNames()...),
		devboot.WithPython(cfg.Python),
		devboot.WithManageScript(cfg.Manage),
		devboot.WithServerAddr(cfg.Server.AddrPort),
		devboot.WithWorkDir(cfg.WorkDir),
		devboot.WithProject(project),
		devboot.WithRunID(runID),
		devboot.WithLogger(base.WithComponent("sequencer")),
		devboot.WithMetricsEnabled(metricsEnabled),
	}

	if !*skipPreflight {
		probe, err := newProbe(cfg, project, *preflightTimeout, metricsEnabled, base.WithRun(runID))
		if err != nil {
			logger.Error(ctx, "skipping preflight", "error", err)
		} else {
			opts = append(opts, devboot.WithProbe(probe))
		}
	}

	if metricsEnabled {
		server := metrics.NewServer(*metricsAddr)
		if err := server.Start(); err != nil {
			logger.Error(ctx, "metrics server failed to start", "addr", *metricsAddr, "error", err)
		} else {
			logger.Info(ctx, "serving metrics", "addr", server.Addr())
			defer stopMetrics(ctx, logger, server)
		}
	}

	report, err := devboot.Run(ctx, opts...)
	if err != nil {
		if errors.Is(err, devboot.ErrInterrupted) {
			return exitInterrupted
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	return report.ServerExitCode
}

// newProbe resolves the database from the project's env file and process environment.
func newProbe(cfg config.Config, project string, timeout time.Duration, metricsEnabled bool, logger *logging.Logger) (*preflight.Probe, error) {
	env, err := preflight.LoadEnv(cfg.EnvPath())
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if metricsEnabled {
		collector = metrics.NewCollector(project)
	}

	return preflight.NewProbe(preflight.Config{
		Target:    preflight.Resolve(env, cfg.WorkDir),
		Timeout:   timeout,
		Logger:    logger.WithComponent("preflight"),
		Collector: collector,
	}), nil
}

// stopMetrics reports any error the metrics server hit while serving, then shuts it down.
func stopMetrics(ctx context.Context, logger *logging.Logger, server *metrics.Server) {
	if err := server.Err(); err != nil {
		logger.Error(ctx, "metrics server stopped serving", "addr", server.Addr(), "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "metrics server shutdown failed", "error", err)
	}
}
