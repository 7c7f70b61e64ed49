package executor

import "context"

// Runner runs one external program to completion.
// This interface allows for mock implementations in tests.
//
// Run returns the exit code of the program together with any error reported while
// running it. A non-zero exit code is accompanied by a non-nil error. Callers
// decide whether either matters; Runner never retries.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (int, error)
}
