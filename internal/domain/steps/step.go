// Package steps models the setup plan: step definitions, the
// prerequisite graph, deterministic ordering, and skip resolution.
package steps

// Step is one unit of the setup plan.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() ID

	// Label returns the human-readable name shown in progress output.
	Label() string

	// Requires returns the IDs of steps that must run before this one.
	Requires() []ID

	// Critical reports whether a Failed outcome aborts the whole run.
	Critical() bool

	// Idempotent reports whether the step may safely run again on a
	// machine it already ran on. Non-idempotent steps are skipped on
	// resume when a previous attempt succeeded.
	Idempotent() bool

	// Run executes the step.
	Run(rc RunContext) Result
}

// Undoer is implemented by steps that can undo their own work during
// rollback, given the result of the original run.
type Undoer interface {
	Step

	// Undo reverts what the recorded result installed. It is
	// best-effort: item failures are reported in the returned result,
	// not raised.
	Undo(rc RunContext, applied Result) Result
}

// AsUndoer casts a step to Undoer, or returns nil.
func AsUndoer(step Step) Undoer {
	if u, ok := step.(Undoer); ok {
		return u
	}
	return nil
}

// Definition is the concrete Step used throughout rigup: metadata
// plus run/undo closures bound by the app builder.
type Definition struct {
	StepID     ID
	StepLabel  string
	Needs      []ID
	IsCritical bool
	// RunOnce marks steps that must not repeat on an already-set-up
	// machine (e.g. cloning repositories).
	RunOnce  bool
	RunFunc  func(rc RunContext) Result
	UndoFunc func(rc RunContext, applied Result) Result
}

func (d *Definition) ID() ID {
	return d.StepID
}

func (d *Definition) Label() string {
	if d.StepLabel == "" {
		return d.StepID.String()
	}
	return d.StepLabel
}

func (d *Definition) Requires() []ID {
	out := make([]ID, len(d.Needs))
	copy(out, d.Needs)
	return out
}

func (d *Definition) Critical() bool {
	return d.IsCritical
}

func (d *Definition) Idempotent() bool {
	return !d.RunOnce
}

func (d *Definition) Run(rc RunContext) Result {
	if d.RunFunc == nil {
		return NewResult(d.StepID, OutcomeSuccess)
	}
	return d.RunFunc(rc)
}

// Undo implements Undoer when an UndoFunc is bound.
func (d *Definition) Undo(rc RunContext, applied Result) Result {
	if d.UndoFunc == nil {
		return NewResult(d.StepID, OutcomeSuccess)
	}
	return d.UndoFunc(rc, applied)
}

// CanUndo reports whether the definition carries rollback logic.
func (d *Definition) CanUndo() bool {
	return d.UndoFunc != nil
}
