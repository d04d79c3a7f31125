package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/session"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/ports"
)

// Lifecycle states of a run.
type State string

const (
	StatePending     State = "pending"
	StateRunning     State = "running"
	StateRollingBack State = "rolling-back"
	StateCompleted   State = "completed"
	StateAborted     State = "aborted"
	StateRolledBack  State = "rolled-back"
)

// Events driving the run state machine.
const (
	eventStart        = "START"
	eventComplete     = "COMPLETE"
	eventFail         = "FAIL"
	eventRollback     = "ROLLBACK"
	eventRollbackDone = "ROLLBACK_DONE"
	eventInterrupt    = "INTERRUPT"
)

// machineContext is the statekit context for one run.
type machineContext struct {
	SessionID string
}

func buildRunMachine(sessionID string) (*statekit.Interpreter[machineContext], error) {
	machine, err := statekit.NewMachine[machineContext]("rigup-run").
		WithInitial(statekit.StateID(StatePending)).
		WithContext(machineContext{SessionID: sessionID}).
		State(statekit.StateID(StatePending)).
		On(eventStart).Target(statekit.StateID(StateRunning)).Done().
		State(statekit.StateID(StateRunning)).
		On(eventComplete).Target(statekit.StateID(StateCompleted)).
		On(eventFail).Target(statekit.StateID(StateAborted)).
		On(eventRollback).Target(statekit.StateID(StateRollingBack)).
		On(eventInterrupt).Target(statekit.StateID(StateAborted)).Done().
		State(statekit.StateID(StateRollingBack)).
		On(eventRollbackDone).Target(statekit.StateID(StateRolledBack)).Done().
		State(statekit.StateID(StateCompleted)).Done().
		State(statekit.StateID(StateAborted)).Done().
		State(statekit.StateID(StateRolledBack)).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build run state machine: %w", err)
	}
	return statekit.NewInterpreter(machine), nil
}

// Options configure an Orchestrator.
type Options struct {
	Plan       *steps.Plan
	RunContext steps.RunContext
	SessionID  string

	// Journal is nil for dry runs: nothing durable happens.
	Journal *session.Journal

	// Snapshots is nil when --no-backup (or dry run) disabled them;
	// without snapshots there is no rollback.
	Snapshots *session.SnapshotStore

	// Resumed carries the prior session state when continuing a run.
	Resumed *session.Session

	Sink   Sink
	Logger ports.Logger
}

// Orchestrator executes a resolved plan step by step: persist started,
// run, persist outcome, then move the cursor. A critical failure
// triggers rollback of everything the session changed, in reverse
// order.
type Orchestrator struct {
	plan      *steps.Plan
	rc        steps.RunContext
	sessionID string
	journal   *session.Journal
	snapshots *session.SnapshotStore
	resumed   *session.Session
	sink      Sink
	logger    ports.Logger
	interp    *statekit.Interpreter[machineContext]
}

type executedStep struct {
	step   steps.Step
	result steps.Result
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Plan == nil {
		return nil, errors.New("orchestrator needs a plan")
	}
	interp, err := buildRunMachine(opts.SessionID)
	if err != nil {
		return nil, err
	}

	sink := opts.Sink
	if sink == nil {
		sink = NopSink()
	}
	logger := opts.Logger
	if logger == nil {
		logger = ports.NopLogger()
	}

	return &Orchestrator{
		plan:      opts.Plan,
		rc:        opts.RunContext,
		sessionID: opts.SessionID,
		journal:   opts.Journal,
		snapshots: opts.Snapshots,
		resumed:   opts.Resumed,
		sink:      sink,
		logger:    logger,
		interp:    interp,
	}, nil
}

// State returns the lifecycle state of the run.
func (o *Orchestrator) State() State {
	if o.interp == nil {
		return StatePending
	}
	return State(o.interp.State().Value)
}

// Run executes the plan. The returned Summary is complete even when
// err is non-nil; err reports config or persistence failures, never
// individual step failures.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		SessionID: o.sessionID,
		DryRun:    o.rc.DryRun(),
		Resumed:   o.resumed != nil,
	}

	o.interp.Start()
	defer o.interp.Stop()
	o.interp.Send(statekit.Event{Type: eventStart})

	planned := o.plan.Steps()
	o.sink.Publish(Event{
		Kind:      EventRunStarted,
		Time:      time.Now(),
		SessionID: o.sessionID,
		StepCount: len(planned),
	})

	var executed []executedStep
	var abort error

runLoop:
	for i, ps := range planned {
		select {
		case <-ctx.Done():
			// Between steps: nothing in flight, the journal stays
			// non-terminal and the session resumable.
			o.logger.Warn("run interrupted", ports.F("session", o.sessionID))
			summary.Interrupted = true
			o.interp.Send(statekit.Event{Type: eventInterrupt})
			break runLoop
		default:
		}

		step := ps.Step
		stepID := step.ID()

		if ps.Skip != steps.SkipNone {
			res := steps.NewResult(stepID, steps.OutcomeSkippedByFlag).
				WithMessage(ps.Skip.String())
			if err := o.persistOutcome(res); err != nil {
				return o.finishPersistFailure(summary, start, err)
			}
			o.recordLine(summary, step, res)
			o.publishStepFinished(step, i, len(planned), res)
			continue
		}

		if o.resumed != nil && !o.resumed.ShouldRerun(stepID.String()) {
			res := steps.NewResult(stepID, steps.OutcomeSkippedAlreadyDone).
				WithMessage("done in session " + o.resumed.ID)
			if err := o.persistOutcome(res); err != nil {
				return o.finishPersistFailure(summary, start, err)
			}
			o.recordLine(summary, step, res)
			o.publishStepFinished(step, i, len(planned), res)
			continue
		}

		o.sink.Publish(Event{
			Kind:      EventStepStarted,
			Time:      time.Now(),
			SessionID: o.sessionID,
			StepID:    stepID,
			StepLabel: step.Label(),
			StepIndex: i,
			StepCount: len(planned),
		})
		if o.journal != nil {
			if err := o.journal.StepStarted(stepID); err != nil {
				return o.finishPersistFailure(summary, start, err)
			}
		}

		res := o.runStep(ctx, step)
		if err := o.persistOutcome(res); err != nil {
			return o.finishPersistFailure(summary, start, err)
		}
		o.recordLine(summary, step, res)
		o.publishStepFinished(step, i, len(planned), res)

		if !res.Outcome().Skipped() {
			executed = append(executed, executedStep{step: step, result: res})
		}

		if res.Outcome() == steps.OutcomeFailed && step.Critical() {
			abort = fmt.Errorf("critical step %s failed: %w", stepID, res.Err())
			o.logger.Error("critical step failed",
				ports.F("step", stepID.String()),
				ports.F("error", res.Err()))
			break runLoop
		}
	}

	summary.Duration = time.Since(start)

	switch {
	case summary.Interrupted:
		// No terminal record; the journal handle is released so a
		// later invocation can resume.
		o.closeJournal()

	case abort != nil:
		summary.Cause = abort
		if o.snapshots != nil {
			o.interp.Send(statekit.Event{Type: eventRollback})
			o.rollback(executed, summary)
			o.interp.Send(statekit.Event{Type: eventRollbackDone})
			summary.Terminal = session.TerminalRolledBack
		} else {
			o.interp.Send(statekit.Event{Type: eventFail})
			summary.Terminal = session.TerminalAborted
		}
		if err := o.finishJournal(summary.Terminal); err != nil {
			summary.Terminal = session.TerminalAborted
			return summary, err
		}

	default:
		o.interp.Send(statekit.Event{Type: eventComplete})
		summary.Terminal = session.TerminalCompleted
		if err := o.finishJournal(summary.Terminal); err != nil {
			return summary, err
		}
	}

	o.sink.Publish(Event{
		Kind:      EventRunFinished,
		Time:      time.Now(),
		SessionID: o.sessionID,
		Terminal:  summary.Terminal,
	})
	return summary, nil
}

// runStep executes one step with its snapshot hook bound.
func (o *Orchestrator) runStep(ctx context.Context, step steps.Step) steps.Result {
	rc := o.rc.WithContext(ctx)
	if o.snapshots != nil {
		stepID := step.ID()
		rc = rc.WithBackup(func(path string) error {
			_, err := o.snapshots.Capture(stepID, path)
			return err
		})
	}

	start := time.Now()
	res := step.Run(rc)
	return res.WithDuration(time.Since(start))
}

// rollback undoes executed steps in reverse order: first restore the
// files each step touched, then best-effort remove what it installed.
func (o *Orchestrator) rollback(executed []executedStep, summary *Summary) {
	summary.RollbackPerformed = true
	o.sink.Publish(Event{
		Kind:      EventRollbackStarted,
		Time:      time.Now(),
		SessionID: o.sessionID,
	})

	for i := len(executed) - 1; i >= 0; i-- {
		ex := executed[i]
		stepID := ex.step.ID()
		o.sink.Publish(Event{
			Kind:      EventRollbackStep,
			Time:      time.Now(),
			SessionID: o.sessionID,
			StepID:    stepID,
			StepLabel: ex.step.Label(),
		})

		for _, rr := range o.snapshots.RestoreStep(stepID) {
			if rr.Restored() {
				summary.FilesRestored++
				continue
			}
			summary.RestoreFailures++
			o.logger.Warn("snapshot restore failed",
				ports.F("step", stepID.String()),
				ports.F("path", rr.Snapshot.Path),
				ports.F("error", rr.Err))
		}

		if undoer := steps.AsUndoer(ex.step); undoer != nil {
			undone := undoer.Undo(o.rc, ex.result)
			for _, item := range undone.Items() {
				switch item.Outcome {
				case capability.OutcomeRemoved:
					summary.ItemsRemoved++
				case capability.OutcomeFailed:
					summary.RemoveFailures++
					o.logger.Warn("rollback removal failed",
						ports.F("step", stepID.String()),
						ports.F("item", item.Item.Name),
						ports.F("error", item.Err))
				}
			}
		}
	}
}

func (o *Orchestrator) persistOutcome(res steps.Result) error {
	if o.journal == nil {
		return nil
	}
	return o.journal.StepFinished(res)
}

func (o *Orchestrator) finishJournal(terminal string) error {
	if o.journal == nil {
		return nil
	}
	return o.journal.Finish(terminal)
}

func (o *Orchestrator) closeJournal() {
	if o.journal != nil {
		if err := o.journal.Close(); err != nil {
			o.logger.Warn("close journal", ports.F("error", err))
		}
	}
}

// finishPersistFailure handles ErrPersistence: stop immediately, no
// rollback on unflushed state, release the journal handle.
func (o *Orchestrator) finishPersistFailure(summary *Summary, start time.Time, err error) (*Summary, error) {
	summary.Duration = time.Since(start)
	summary.Terminal = session.TerminalAborted
	summary.Cause = err
	o.interp.Send(statekit.Event{Type: eventFail})
	o.closeJournal()
	o.sink.Publish(Event{
		Kind:      EventRunFinished,
		Time:      time.Now(),
		SessionID: o.sessionID,
		Terminal:  summary.Terminal,
		Err:       err,
	})
	o.logger.Error("aborting: session state not durable", ports.F("error", err))
	return summary, err
}

func (o *Orchestrator) recordLine(summary *Summary, step steps.Step, res steps.Result) {
	summary.Steps = append(summary.Steps, StepLine{
		StepID:      res.StepID(),
		Label:       step.Label(),
		Outcome:     res.Outcome(),
		Duration:    res.Duration(),
		Err:         res.Err(),
		Items:       len(res.Items()),
		FailedItems: len(res.FailedItems()),
	})
}

func (o *Orchestrator) publishStepFinished(step steps.Step, idx, count int, res steps.Result) {
	o.sink.Publish(Event{
		Kind:      EventStepFinished,
		Time:      time.Now(),
		SessionID: o.sessionID,
		StepID:    res.StepID(),
		StepLabel: step.Label(),
		StepIndex: idx,
		StepCount: count,
		Outcome:   res.Outcome(),
		Err:       res.Err(),
	})
}
