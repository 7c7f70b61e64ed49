package devboot

import (
	"fmt"
	"regexp"
	"time"
)

// AppName identifies a Django application by its label (for example "accounts").
// The order of app names in a pipeline determines the order migrations are generated in.
type AppName string

var appLabelRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateAppName ensures name is a usable Django app label.
// Labels are Python identifiers, so anything else could never match an installed app
// and would only be passed to the shell as a stray argument.
func ValidateAppName(name AppName) error {
	if name == "" {
		return fmt.Errorf("%w: app name cannot be empty", ErrInvalidAppName)
	}
	if !appLabelRegex.MatchString(string(name)) {
		return fmt.Errorf("%w: %q must start with a letter or underscore and contain only letters, numbers, and underscores", ErrInvalidAppName, name)
	}
	return nil
}

// DefaultApps returns the project's apps in the order their migrations are generated.
func DefaultApps() []AppName {
	return []AppName{"accounts", "cases", "chat", "notifications"}
}

// Step is a single kind of management command in the pipeline.
type Step string

const (
	// StepGenerate runs makemigrations for one app.
	StepGenerate Step = "makemigrations"

	// StepApply runs migrate for all apps.
	StepApply Step = "migrate"

	// StepServe runs the development server in the foreground.
	StepServe Step = "runserver"
)

// Invocation records one external command run by the pipeline.
type Invocation struct {
	// Step is the management command that was run.
	Step Step

	// App is the app the command was scoped to. Empty for StepApply and StepServe.
	App AppName

	// Args is the full argv, program name first.
	Args []string

	// ExitCode is the exit status of the process.
	// 127 means the program could not be started, 128+N means it died from signal N.
	ExitCode int

	// Err is the error reported while running the process, if any.
	// It is informational only: the pipeline never changes course because of it.
	Err error

	// StartedAt is when the process was started.
	StartedAt time.Time

	// Duration is how long the process ran.
	Duration time.Duration
}

// Succeeded reports whether the process exited cleanly.
func (i Invocation) Succeeded() bool {
	return i.ExitCode == 0 && i.Err == nil
}

// Report summarizes one pipeline run.
type Report struct {
	// RunID correlates log lines and metrics belonging to the same run.
	RunID string

	// Invocations lists every command in the order it was started.
	Invocations []Invocation

	// ServerExitCode is the exit status of the development server.
	// It is only meaningful when the server step ran.
	ServerExitCode int
}

// Count returns how many invocations of step the report holds.
func (r Report) Count(step Step) int {
	n := 0
	for _, inv := range r.Invocations {
		if inv.Step == step {
			n++
		}
	}
	return n
}

// Failed returns the invocations that did not exit cleanly, in run order.
func (r Report) Failed() []Invocation {
	var failed []Invocation
	for _, inv := range r.Invocations {
		if !inv.Succeeded() {
			failed = append(failed, inv)
		}
	}
	return failed
}
