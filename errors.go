package devboot

import "errors"

var (
	// ErrInvalidAppName indicates an app name that is not a valid Django app label.
	ErrInvalidAppName = errors.New("invalid app name")

	// ErrEmptyAppList indicates a configuration that explicitly lists no apps.
	ErrEmptyAppList = errors.New("app list is empty")

	// ErrInterrupted indicates the pipeline was stopped by a signal or context
	// cancellation before every step had started.
	ErrInterrupted = errors.New("pipeline interrupted")
)
