package execution

import (
	"time"

	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

// StepLine is one row of the end-of-run summary.
type StepLine struct {
	StepID      steps.ID
	Label       string
	Outcome     steps.Outcome
	Duration    time.Duration
	Err         error
	Items       int
	FailedItems int
}

// Summary is everything a run produced, for the CLI to render and to
// derive the exit code from.
type Summary struct {
	SessionID string
	Terminal  string // completed | aborted | rolled-back; "" when interrupted
	DryRun    bool
	Resumed   bool

	// Interrupted is set when the run stopped on a cancelled context.
	// The session stays resumable.
	Interrupted bool

	Steps    []StepLine
	Duration time.Duration

	// Rollback accounting.
	RollbackPerformed bool
	FilesRestored     int
	RestoreFailures   int
	ItemsRemoved      int
	RemoveFailures    int

	// Cause is the failure that ended the run early, if any.
	Cause error
}

// Count returns how many steps ended with the outcome.
func (s *Summary) Count(outcome steps.Outcome) int {
	n := 0
	for _, line := range s.Steps {
		if line.Outcome == outcome {
			n++
		}
	}
	return n
}

// Succeeded returns the number of successful steps.
func (s *Summary) Succeeded() int {
	return s.Count(steps.OutcomeSuccess)
}

// Failed returns the number of failed steps, counting partial
// failures.
func (s *Summary) Failed() int {
	return s.Count(steps.OutcomeFailed) + s.Count(steps.OutcomePartialFailure)
}

// Skipped returns the number of skipped steps of either flavor.
func (s *Summary) Skipped() int {
	return s.Count(steps.OutcomeSkippedByFlag) + s.Count(steps.OutcomeSkippedAlreadyDone)
}

// Completed reports whether the whole plan ran to the end.
func (s *Summary) Completed() bool {
	return s.Terminal == "completed"
}

// ExitCode maps the run result onto the process exit code: 0 for a
// clean completed run, 1 for a completed run with failed steps or
// items, 2 for an abort with rollback performed, 3 for an abort (or
// interrupt) without rollback.
func (s *Summary) ExitCode() int {
	if s.Completed() {
		if s.Failed() == 0 {
			return 0
		}
		return 1
	}
	if s.RollbackPerformed {
		return 2
	}
	return 3
}
