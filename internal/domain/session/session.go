// Package session persists run state: an append-only journal per
// setup run, and pre-mutation file snapshots for rollback. A run can
// die at any instant and the journal still tells the next invocation
// exactly where it stood.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

// Terminal states a session can end in.
const (
	TerminalCompleted  = "completed"
	TerminalAborted    = "aborted"
	TerminalRolledBack = "rolled-back"
)

// ErrPersistence marks journal write failures. The orchestrator
// aborts immediately on these: running on without durable state is
// worse than stopping.
var ErrPersistence = errors.New("session persistence failed")

// NewSessionID derives a session identifier from the start time, with
// a short random suffix so two runs in the same second never collide.
func NewSessionID(start time.Time) string {
	return fmt.Sprintf("%s-%s",
		start.UTC().Format("20060102-150405"),
		uuid.NewString()[:8])
}

// StepRecord is the durable view of one step within a session.
type StepRecord struct {
	StepID     string
	Outcome    steps.Outcome
	Error      string
	Items      []ItemRecord
	Duration   time.Duration
	FinishedAt time.Time
}

// ItemRecord is the durable view of one item within a step.
type ItemRecord struct {
	Name    string
	Outcome string
	Error   string
}

// Session is the replayed state of one journal file.
type Session struct {
	ID        string
	Platform  string
	Profile   string
	StartedAt time.Time
	DryRun    bool

	// Order is the resolved step order persisted at session start. A
	// resumed run executes exactly this plan, whatever flags the new
	// invocation carries.
	Order []string

	// Terminal is empty while the session is live.
	Terminal   string
	FinishedAt time.Time

	started  map[string]bool
	finished map[string]StepRecord
	path     string
}

func newSession(id, platformID, profile string, startedAt time.Time, order []string, dryRun bool) *Session {
	return &Session{
		ID:        id,
		Platform:  platformID,
		Profile:   profile,
		StartedAt: startedAt,
		DryRun:    dryRun,
		Order:     order,
		started:   make(map[string]bool),
		finished:  make(map[string]StepRecord),
	}
}

// Path returns the journal file this session was loaded from, or ""
// for sessions not yet persisted.
func (s *Session) Path() string {
	return s.path
}

// IsTerminal reports whether the session already ended.
func (s *Session) IsTerminal() bool {
	return s.Terminal != ""
}

// WasStarted reports whether the step has a started record. A started
// step without an outcome means the process died mid-step; the step
// is re-attempted on resume.
func (s *Session) WasStarted(stepID string) bool {
	return s.started[stepID]
}

// Outcome returns the last recorded outcome for the step.
func (s *Session) Outcome(stepID string) (StepRecord, bool) {
	rec, ok := s.finished[stepID]
	return rec, ok
}

// Records returns the recorded step outcomes in plan order.
func (s *Session) Records() []StepRecord {
	out := make([]StepRecord, 0, len(s.finished))
	for _, stepID := range s.Order {
		if rec, ok := s.finished[stepID]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Cursor returns the index in Order of the first step without a
// durable outcome, or len(Order) when every step finished.
func (s *Session) Cursor() int {
	for i, stepID := range s.Order {
		if _, ok := s.finished[stepID]; !ok {
			return i
		}
	}
	return len(s.Order)
}

// ShouldRerun decides what resume does with a step. Steps with a
// recorded Success (or skip) are done. Failed and PartialFailure
// steps run again, as do steps that started but never finished.
func (s *Session) ShouldRerun(stepID string) bool {
	rec, ok := s.finished[stepID]
	if !ok {
		return true
	}
	return rec.Outcome == steps.OutcomeFailed || rec.Outcome == steps.OutcomePartialFailure
}

// recordFromResult converts a runtime result into its durable form.
func recordFromResult(res steps.Result) StepRecord {
	rec := StepRecord{
		StepID:     res.StepID().String(),
		Outcome:    res.Outcome(),
		Duration:   res.Duration(),
		FinishedAt: time.Now().UTC(),
	}
	if err := res.Err(); err != nil {
		rec.Error = err.Error()
	}
	for _, item := range res.Items() {
		ir := ItemRecord{Name: item.Item.Name, Outcome: item.Outcome.String()}
		if item.Err != nil {
			ir.Error = item.Err.Error()
		}
		rec.Items = append(rec.Items, ir)
	}
	return rec
}
