package executor

import (
	"context"
	"sync"
)

// MockRunner is a mock implementation of Runner for testing.
type MockRunner struct {
	mu       sync.Mutex
	RunFunc  func(ctx context.Context, name string, args ...string) (int, error)
	RunCalls []RunCall
}

// RunCall records the parameters of a single Run call.
type RunCall struct {
	Name string
	Args []string
}

// Argv returns the program name followed by its arguments.
func (c RunCall) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// NewMockRunner creates a new MockRunner with an empty call history.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		RunCalls: make([]RunCall, 0),
	}
}

// Run implements the Runner interface.
// It records the call parameters, then:
// - If RunFunc is set, calls and returns it
// - Otherwise, returns exit code 0 and no error
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (int, error) {
	m.mu.Lock()
	m.RunCalls = append(m.RunCalls, RunCall{
		Name: name,
		Args: append([]string(nil), args...),
	})
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}

	return 0, nil
}

// Calls returns a copy of the call history.
func (m *MockRunner) Calls() []RunCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunCall(nil), m.RunCalls...)
}

// Reset clears the call history.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunCalls = make([]RunCall, 0)
}
