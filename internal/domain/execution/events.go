// Package execution runs the setup plan: a bounded worker pool for
// item batches, and the orchestrator that drives steps through their
// lifecycle with durable checkpoints and rollback.
package execution

import (
	"time"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

// EventKind classifies progress events.
type EventKind int

const (
	// EventRunStarted fires once before the first step.
	EventRunStarted EventKind = iota
	// EventStepStarted fires when a step begins executing.
	EventStepStarted
	// EventStepFinished fires when a step's outcome is durable.
	EventStepFinished
	// EventItemFinished fires per item inside a parallel batch.
	EventItemFinished
	// EventRollbackStarted fires when rollback begins.
	EventRollbackStarted
	// EventRollbackStep fires per step being rolled back.
	EventRollbackStep
	// EventRunFinished fires once with the terminal state.
	EventRunFinished
)

func (k EventKind) String() string {
	switch k {
	case EventRunStarted:
		return "run-started"
	case EventStepStarted:
		return "step-started"
	case EventStepFinished:
		return "step-finished"
	case EventItemFinished:
		return "item-finished"
	case EventRollbackStarted:
		return "rollback-started"
	case EventRollbackStep:
		return "rollback-step"
	case EventRunFinished:
		return "run-finished"
	default:
		return "unknown"
	}
}

// Event is one observation of run progress. Consumers must treat it
// as informational: execution never waits for a consumer.
type Event struct {
	Kind      EventKind
	Time      time.Time
	SessionID string

	// Step fields.
	StepID    steps.ID
	StepLabel string
	StepIndex int // position in the plan, 0-based
	StepCount int
	Outcome   steps.Outcome
	Err       error

	// Item fields, set for EventItemFinished.
	Item        string
	ItemOutcome capability.Outcome
	ItemErr     error

	// Terminal state, set for EventRunFinished.
	Terminal string
}

// Sink consumes progress events. Publish must be fast and must never
// block; slow consumers buffer on their side.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) {
	f(e)
}

// NopSink discards all events.
func NopSink() Sink {
	return SinkFunc(func(Event) {})
}

// MultiSink fans events out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Publish(e)
		}
	})
}
