package steps

import (
	"time"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
)

// Outcome classifies how a step ended.
type Outcome string

const (
	// OutcomeSuccess means every item the step attempted succeeded.
	OutcomeSuccess Outcome = "success"
	// OutcomePartialFailure means some items failed but the step as a
	// whole is usable; the run continues.
	OutcomePartialFailure Outcome = "partial-failure"
	// OutcomeFailed means the step failed outright.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkippedByFlag means the user excluded the step.
	OutcomeSkippedByFlag Outcome = "skipped-by-flag"
	// OutcomeSkippedAlreadyDone means a resumed session already
	// completed the step.
	OutcomeSkippedAlreadyDone Outcome = "skipped-already-done"
)

// Skipped reports whether the outcome is one of the skip variants.
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedByFlag || o == OutcomeSkippedAlreadyDone
}

// Succeeded reports whether the step ended well enough to satisfy
// steps that depend on it.
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess || o.Skipped()
}

// Valid reports whether o is one of the defined outcomes. Used when
// reading journals written by other versions.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomePartialFailure, OutcomeFailed,
		OutcomeSkippedByFlag, OutcomeSkippedAlreadyDone:
		return true
	}
	return false
}

// Result captures the outcome of executing a single step.
type Result struct {
	stepID   ID
	outcome  Outcome
	err      error
	items    []capability.ItemResult
	duration time.Duration
	message  string
}

// NewResult creates a Result.
func NewResult(stepID ID, outcome Outcome) Result {
	return Result{stepID: stepID, outcome: outcome}
}

// FailedResult creates a failed Result carrying err.
func FailedResult(stepID ID, err error) Result {
	return Result{stepID: stepID, outcome: OutcomeFailed, err: err}
}

// AggregateItems derives a step Result from per-item results: all good
// is Success, all bad is Failed, a mix is PartialFailure. An empty
// batch counts as Success.
func AggregateItems(stepID ID, items []capability.ItemResult) Result {
	failed := 0
	for _, item := range items {
		if item.Failed() {
			failed++
		}
	}

	outcome := OutcomeSuccess
	switch {
	case failed == 0:
	case failed == len(items):
		outcome = OutcomeFailed
	default:
		outcome = OutcomePartialFailure
	}

	return Result{stepID: stepID, outcome: outcome, items: items}
}

// StepID returns the ID of the step the result belongs to.
func (r Result) StepID() ID {
	return r.stepID
}

// Outcome returns the step outcome.
func (r Result) Outcome() Outcome {
	return r.outcome
}

// Err returns the step-level error, if any.
func (r Result) Err() error {
	return r.err
}

// Items returns the per-item results.
func (r Result) Items() []capability.ItemResult {
	out := make([]capability.ItemResult, len(r.items))
	copy(out, r.items)
	return out
}

// InstalledItems returns only the items this result actually
// installed. Rollback removes exactly these, never items that were
// already present.
func (r Result) InstalledItems() []capability.ItemResult {
	var out []capability.ItemResult
	for _, item := range r.items {
		if item.Outcome == capability.OutcomeInstalled {
			out = append(out, item)
		}
	}
	return out
}

// FailedItems returns only the items that failed.
func (r Result) FailedItems() []capability.ItemResult {
	var out []capability.ItemResult
	for _, item := range r.items {
		if item.Failed() {
			out = append(out, item)
		}
	}
	return out
}

// Duration returns how long the step ran.
func (r Result) Duration() time.Duration {
	return r.duration
}

// Message returns the optional human-readable note.
func (r Result) Message() string {
	return r.message
}

// WithDuration returns a copy with the duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.duration = d
	return r
}

// WithMessage returns a copy with the note set.
func (r Result) WithMessage(msg string) Result {
	r.message = msg
	return r
}

// WithErr returns a copy with the step-level error set.
func (r Result) WithErr(err error) Result {
	r.err = err
	return r
}
