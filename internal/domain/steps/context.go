package steps

import (
	"context"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/ports"
)

// BackupFunc snapshots a file before the step mutates it, so rollback
// can put it back. The orchestrator binds it per step.
type BackupFunc func(path string) error

// RunContext carries everything a step needs at run time. It is a
// value type; the With methods return modified copies.
type RunContext struct {
	ctx       context.Context
	logger    ports.Logger
	runner    ports.CommandRunner
	fs        ports.FileSystem
	providers *capability.Registry
	backup    BackupFunc
	dryRun    bool
}

// NewRunContext creates a RunContext with the given cancellation
// context.
func NewRunContext(ctx context.Context) RunContext {
	return RunContext{ctx: ctx}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Logger returns the run logger, never nil.
func (r RunContext) Logger() ports.Logger {
	if r.logger == nil {
		return ports.NopLogger()
	}
	return r.logger
}

// Runner returns the command runner.
func (r RunContext) Runner() ports.CommandRunner {
	return r.runner
}

// FS returns the filesystem.
func (r RunContext) FS() ports.FileSystem {
	return r.fs
}

// Providers returns the capability provider registry.
func (r RunContext) Providers() *capability.Registry {
	return r.providers
}

// DryRun reports whether this run must not mutate the machine.
func (r RunContext) DryRun() bool {
	return r.dryRun
}

// Backup returns the pre-mutation snapshot hook, never nil. Steps
// call it with every file path they are about to change.
func (r RunContext) Backup() BackupFunc {
	if r.backup == nil {
		return func(string) error { return nil }
	}
	return r.backup
}

// WithLogger returns a copy with the logger set.
func (r RunContext) WithLogger(logger ports.Logger) RunContext {
	r.logger = logger
	return r
}

// WithRunner returns a copy with the command runner set.
func (r RunContext) WithRunner(runner ports.CommandRunner) RunContext {
	r.runner = runner
	return r
}

// WithFS returns a copy with the filesystem set.
func (r RunContext) WithFS(fs ports.FileSystem) RunContext {
	r.fs = fs
	return r
}

// WithProviders returns a copy with the provider registry set.
func (r RunContext) WithProviders(reg *capability.Registry) RunContext {
	r.providers = reg
	return r
}

// WithDryRun returns a copy with the dry-run flag set.
func (r RunContext) WithDryRun(dryRun bool) RunContext {
	r.dryRun = dryRun
	return r
}

// WithBackup returns a copy with the snapshot hook set.
func (r RunContext) WithBackup(fn BackupFunc) RunContext {
	r.backup = fn
	return r
}

// WithContext returns a copy with a different cancellation context.
func (r RunContext) WithContext(ctx context.Context) RunContext {
	r.ctx = ctx
	return r
}
