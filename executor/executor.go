package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/getpup/pupsourcing/es"
)

const (
	// ExitCodeNotFound is reported when the program could not be started.
	ExitCodeNotFound = 127

	// exitCodeSignalBase is added to the signal number when a program dies from a signal.
	exitCodeSignalBase = 128
)

// Config configures the process executor.
type Config struct {
	// Dir is the working directory for every process (default: current directory).
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string

	// Stdin is connected to the process standard input (default: os.Stdin).
	Stdin io.Reader

	// Stdout receives the process standard output (default: os.Stdout).
	Stdout io.Writer

	// Stderr receives the process standard error (default: os.Stderr).
	Stderr io.Writer

	// WaitDelay bounds how long a process may keep running after it has been
	// interrupted because ctx was cancelled (default: 10s). After that it is killed.
	WaitDelay time.Duration

	// Logger is an optional logger for observability.
	Logger es.Logger
}

// Executor runs programs on the local host in the foreground, wired to the
// configured standard streams.
type Executor struct {
	config Config
}

// Compile-time check that Executor implements Runner.
var _ Runner = (*Executor)(nil)

// New creates a new Executor with the given configuration.
// It applies default values for streams and WaitDelay if unset.
func New(cfg Config) *Executor {
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.WaitDelay == 0 {
		cfg.WaitDelay = 10 * time.Second
	}

	return &Executor{
		config: cfg,
	}
}

// Run starts name with args and waits for it to exit.
// When ctx is cancelled the process is sent an interrupt, the same signal a
// terminal delivers on Ctrl+C, so it can shut down the way it would interactively.
// The reported code is always the process's own status once it has started: a
// process that handles the interrupt and exits 0 is reported as a clean exit.
//
// The child shares devboot's process group. A Ctrl+C at the terminal therefore
// reaches it directly, and the cancellation that follows delivers a second
// interrupt. Programs that treat a repeated interrupt as "stop now" may skip
// part of their shutdown.
func (e *Executor) Run(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.config.Dir
	if len(e.config.Env) > 0 {
		cmd.Env = append(os.Environ(), e.config.Env...)
	}
	cmd.Stdin = e.config.Stdin
	cmd.Stdout = e.config.Stdout
	cmd.Stderr = e.config.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = e.config.WaitDelay

	if e.config.Logger != nil {
		e.config.Logger.Debug(ctx, "starting process", "program", name, "args", args, "dir", e.config.Dir)
	}

	err := cmd.Run()
	code := ExitCode(err)
	if cmd.ProcessState != nil {
		code = processExitCode(cmd.ProcessState)
		if code == 0 && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			err = nil
		}
	}

	if e.config.Logger != nil {
		e.config.Logger.Debug(ctx, "process exited", "program", name, "exitCode", code)
	}

	return code, err
}

// ExitCode maps an error returned by exec.Cmd.Run to a shell-style exit status.
// It returns 0 for nil, the process status for a normal exit, 128+N for death by
// signal N, 127 when the program could not be found or started, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return processExitCode(exitErr.ProcessState)
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return ExitCodeNotFound
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return ExitCodeNotFound
	}

	return 1
}

// processExitCode maps a finished process's state to a shell-style exit status.
func processExitCode(state *os.ProcessState) int {
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return exitCodeSignalBase + int(status.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
