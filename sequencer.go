package devboot

import "context"

// Sequencer prepares a Django project for local development.
// It generates migrations for each configured app, applies them, and then runs
// the development server in the foreground.
type Sequencer interface {
	// Run executes the pipeline:
	// 1. makemigrations <app> --noinput, once per app, in order
	// 2. migrate --noinput
	// 3. runserver
	//
	// A failing command never stops the pipeline. Every step runs exactly once
	// and its outcome is recorded in the returned Report.
	//
	// Run blocks while the development server is running. It returns an error
	// wrapping ErrInterrupted only when ctx is cancelled before the server step
	// has started; the Report then holds the steps that did run.
	Run(ctx context.Context) (Report, error)
}
