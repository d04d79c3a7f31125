package tui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/domain/session"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

func plainPrinter(buf *bytes.Buffer) *Printer {
	return NewPrinter(buf).WithStyles(PlainStyles())
}

func TestPrinterStepLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := plainPrinter(&buf)

	p.Publish(execution.Event{
		Kind:      execution.EventRunStarted,
		SessionID: "20260825-120000-ab12cd34",
		StepCount: 8,
	})
	p.Publish(stepEvent(execution.EventStepStarted, "devenv", "Development packages"))

	finished := stepEvent(execution.EventStepFinished, "devenv", "Development packages")
	finished.Outcome = steps.OutcomeSuccess
	p.Publish(finished)

	out := buf.String()
	assert.Contains(t, out, "Starting setup: 8 steps (session 20260825-120000-ab12cd34)")
	assert.Contains(t, out, "→ Development packages")
	assert.Contains(t, out, "✓ Development packages")
}

func TestPrinterFailedItemsAlwaysPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := plainPrinter(&buf)

	ok := stepEvent(execution.EventItemFinished, "apps", "Applications")
	ok.Item = "slack"
	ok.ItemOutcome = capability.OutcomeInstalled
	p.Publish(ok)

	failed := stepEvent(execution.EventItemFinished, "apps", "Applications")
	failed.Item = "spotify"
	failed.ItemOutcome = capability.OutcomeFailed
	failed.ItemErr = errors.New("no installation candidate")
	p.Publish(failed)

	out := buf.String()
	assert.Contains(t, out, "✗ spotify: no installation candidate")
	assert.NotContains(t, out, "slack", "successful items stay quiet without --verbose")
}

func TestPrinterVerboseItems(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := plainPrinter(&buf).WithVerbose(true)

	item := stepEvent(execution.EventItemFinished, "devenv", "Development packages")
	item.Item = "git"
	item.ItemOutcome = capability.OutcomeSkipped
	p.Publish(item)

	assert.Contains(t, buf.String(), "- git (skipped)")
}

func TestPrinterSkipAnnotations(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := plainPrinter(&buf)

	byFlag := stepEvent(execution.EventStepFinished, "fonts", "Fonts")
	byFlag.Outcome = steps.OutcomeSkippedByFlag
	p.Publish(byFlag)

	alreadyDone := stepEvent(execution.EventStepFinished, "git", "Git configuration")
	alreadyDone.Outcome = steps.OutcomeSkippedAlreadyDone
	p.Publish(alreadyDone)

	out := buf.String()
	assert.Contains(t, out, "- Fonts (skipped)")
	assert.Contains(t, out, "- Git configuration (already done)")
}

func TestPrinterRollbackLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := plainPrinter(&buf)

	p.Publish(execution.Event{Kind: execution.EventRollbackStarted})
	p.Publish(stepEvent(execution.EventRollbackStep, "git", "Git configuration"))

	out := buf.String()
	assert.Contains(t, out, "Rolling back")
	assert.Contains(t, out, "↩ Git configuration")
}

func TestPrinterSummaryCleanRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sum := &execution.Summary{
		SessionID: "20260825-120000-ab12cd34",
		Terminal:  session.TerminalCompleted,
		Duration:  12400 * time.Millisecond,
		Steps: []execution.StepLine{
			{StepID: steps.MustID("devenv"), Label: "Development packages", Outcome: steps.OutcomeSuccess},
			{StepID: steps.MustID("git"), Label: "Git configuration", Outcome: steps.OutcomeSuccess},
		},
	}
	plainPrinter(&buf).Summary(sum)

	out := buf.String()
	assert.Contains(t, out, "Setup complete: 2 succeeded, 0 failed, 0 skipped in 12.4s")
	assert.NotContains(t, out, "resume")
}

func TestPrinterSummaryCompletedWithFailures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sum := &execution.Summary{
		Terminal: session.TerminalCompleted,
		Duration: 3 * time.Second,
		Steps: []execution.StepLine{
			{StepID: steps.MustID("devenv"), Label: "Development packages", Outcome: steps.OutcomeSuccess},
			{StepID: steps.MustID("apps"), Label: "Applications", Outcome: steps.OutcomePartialFailure, Items: 3, FailedItems: 1},
		},
	}
	plainPrinter(&buf).Summary(sum)

	out := buf.String()
	assert.Contains(t, out, "Completed with failures:")
	assert.Contains(t, out, "! Applications: 1 of 3 items failed")
}

func TestPrinterSummaryRolledBack(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sum := &execution.Summary{
		Terminal:          session.TerminalRolledBack,
		RollbackPerformed: true,
		FilesRestored:     2,
		ItemsRemoved:      1,
		RestoreFailures:   1,
		Cause:             errors.New("critical step git failed"),
		Steps: []execution.StepLine{
			{StepID: steps.MustID("git"), Label: "Git configuration", Outcome: steps.OutcomeFailed, Err: errors.New("disk full")},
		},
	}
	plainPrinter(&buf).Summary(sum)

	out := buf.String()
	assert.Contains(t, out, "Aborted and rolled back:")
	assert.Contains(t, out, "✗ Git configuration: disk full")
	assert.Contains(t, out, "Rolled back: 2 files restored, 1 items removed")
	assert.Contains(t, out, "Rollback incomplete: 1 restore and 0 removal failures")
	assert.Contains(t, out, "cause: critical step git failed")
}

func TestPrinterSummaryInterrupted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sum := &execution.Summary{
		Interrupted: true,
		Steps: []execution.StepLine{
			{StepID: steps.MustID("devenv"), Label: "Development packages", Outcome: steps.OutcomeSuccess},
		},
	}
	plainPrinter(&buf).Summary(sum)

	out := buf.String()
	assert.Contains(t, out, "Interrupted:")
	assert.Contains(t, out, "rigup setup --resume")
}

func TestPrinterSummaryDryRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sum := &execution.Summary{
		Terminal: session.TerminalCompleted,
		DryRun:   true,
	}
	plainPrinter(&buf).Summary(sum)

	assert.Contains(t, buf.String(), "Dry run: no changes were made.")
}

func TestPrinterSummaryNil(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	plainPrinter(&buf).Summary(nil)

	assert.Empty(t, buf.String())
}

func TestFormatStatusNoSessions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	FormatStatus(&buf, nil, PlainStyles())

	assert.Contains(t, buf.String(), "No sessions recorded yet")
}

func TestFormatStatusRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := session.Begin(dir, session.StartInfo{
		ID:        "20260825-120000-ab12cd34",
		Platform:  "linux",
		Profile:   "linux.yaml",
		Order:     []string{"devenv", "apps"},
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, j.StepStarted(steps.MustID("devenv")))
	require.NoError(t, j.StepFinished(
		steps.NewResult(steps.MustID("devenv"), steps.OutcomeSuccess).WithDuration(1200*time.Millisecond)))
	require.NoError(t, j.StepStarted(steps.MustID("apps")))
	require.NoError(t, j.StepFinished(
		steps.NewResult(steps.MustID("apps"), steps.OutcomePartialFailure)))
	require.NoError(t, j.Finish(session.TerminalCompleted))

	sess, err := session.Latest(dir)
	require.NoError(t, err)
	require.NotNil(t, sess)

	var buf bytes.Buffer
	FormatStatus(&buf, sess, PlainStyles())

	out := buf.String()
	assert.Contains(t, out, "Session 20260825-120000-ab12cd34")
	assert.Contains(t, out, "platform linux, profile linux.yaml")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "devenv")
	assert.Contains(t, out, "Success (1.2s)")
	assert.Contains(t, out, "Partial Failure")
	assert.NotContains(t, out, "Resumable")
}

func TestFormatStatusResumableHint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := session.Begin(dir, session.StartInfo{
		ID:        "20260825-130000-cd34ef56",
		Platform:  "linux",
		Profile:   "linux.yaml",
		Order:     []string{"devenv"},
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, j.StepFinished(
		steps.NewResult(steps.MustID("devenv"), steps.OutcomeSuccess)))
	require.NoError(t, j.Close())

	sess, err := session.Latest(dir)
	require.NoError(t, err)
	require.NotNil(t, sess)

	var buf bytes.Buffer
	FormatStatus(&buf, sess, PlainStyles())

	out := buf.String()
	assert.Contains(t, out, "unfinished")
	assert.Contains(t, out, "Resumable: run 'rigup setup --resume'")
}
