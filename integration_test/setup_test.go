//go:build integration

// Package integration_test runs the full pipeline against a stand-in for
// the Python interpreter, using the real process executor.
package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// fakePython is a shell script standing in for "python". It appends its argv
// to $DEVBOOT_TRACE and exits with $DEVBOOT_FAIL_<subcommand>_<app> if set,
// so tests can make any step fail.
const fakePython = `#!/bin/sh
echo "$*" >> "$DEVBOOT_TRACE"
var="DEVBOOT_FAIL_$2"
if [ -n "$3" ] && [ "$3" != "--noinput" ]; then
	var="${var}_$3"
fi
eval code=\${$var:-0}
exit $code
`

// setupProject writes a fake interpreter and manage.py into a temporary
// project directory and returns the directory, the interpreter path, and the trace path.
func setupProject(t *testing.T) (string, string, string) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping integration test")
	}

	dir := t.TempDir()
	python := filepath.Join(dir, "python")
	if err := os.WriteFile(python, []byte(fakePython), 0o755); err != nil {
		t.Fatalf("failed to write fake interpreter: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manage.py"), []byte("# placeholder\n"), 0o644); err != nil {
		t.Fatalf("failed to write manage.py: %v", err)
	}

	return dir, python, filepath.Join(dir, "trace.log")
}

// readTrace returns the recorded argv lines, without the manage.py prefix.
func readTrace(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read trace: %v", err)
	}

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		lines = append(lines, strings.TrimPrefix(line, "manage.py "))
	}
	return lines
}
