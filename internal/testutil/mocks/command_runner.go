// Package mocks provides test doubles for testing.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/rigup/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner.
type CommandRunner struct {
	mu      sync.RWMutex
	results map[string]ports.CommandResult
	errors  map[string]error
	paths   map[string]bool
	calls   []ports.CommandCall
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results: make(map[string]ports.CommandResult),
		errors:  make(map[string]error),
		paths:   make(map[string]bool),
		calls:   make([]ports.CommandCall, 0),
	}
}

// AddResult registers an expected command and its result.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[buildKey(command, args)] = result
}

// AddSuccess registers an expected command that exits 0 with the given stdout.
func (m *CommandRunner) AddSuccess(command string, args []string, stdout string) {
	m.AddResult(command, args, ports.CommandResult{ExitCode: 0, Stdout: stdout})
}

// AddFailure registers an expected command that exits with the given
// code and stderr.
func (m *CommandRunner) AddFailure(command string, args []string, exitCode int, stderr string) {
	m.AddResult(command, args, ports.CommandResult{ExitCode: exitCode, Stderr: stderr})
}

// AddError registers an expected command that should return an error.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[buildKey(command, args)] = err
}

// AddPath marks a command as present in PATH without registering a result.
func (m *CommandRunner) AddPath(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[name] = true
}

// RemovePath marks a command as absent from PATH even if results are
// registered for it.
func (m *CommandRunner) RemovePath(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[name] = false
}

// Run executes a mock command.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ports.CommandCall{
		Command: command,
		Args:    args,
	})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	key := buildKey(command, args)
	if err, ok := m.errors[key]; ok {
		return ports.CommandResult{}, err
	}
	if result, ok := m.results[key]; ok {
		return result, nil
	}
	return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
}

// LookPath reports whether the command is in PATH. Commands with a
// registered result or error count as present unless RemovePath was
// called for them.
func (m *CommandRunner) LookPath(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if present, ok := m.paths[name]; ok {
		return present
	}
	prefix := name + ":"
	for key := range m.results {
		if strings.HasPrefix(key, prefix) || key == name {
			return true
		}
	}
	for key := range m.errors {
		if strings.HasPrefix(key, prefix) || key == name {
			return true
		}
	}
	return false
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CalledWith reports whether a command with the given name and args
// was invoked.
func (m *CommandRunner) CalledWith(command string, args ...string) bool {
	for _, call := range m.Calls() {
		if call.Command != command || len(call.Args) != len(args) {
			continue
		}
		match := true
		for i := range args {
			if call.Args[i] != args[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Reset clears all registered results, errors, and recorded calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]ports.CommandResult)
	m.errors = make(map[string]error)
	m.paths = make(map[string]bool)
	m.calls = make([]ports.CommandCall, 0)
}

// buildKey creates a unique key for a command and its arguments.
func buildKey(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + ":" + strings.Join(args, ":")
}

// Ensure CommandRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*CommandRunner)(nil)
