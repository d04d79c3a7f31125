package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

func startInfo(id string) StartInfo {
	return StartInfo{
		ID:        id,
		Platform:  "ubuntu-24.04",
		Profile:   "/home/dev/.config/rigup/profiles/ubuntu-24.04.yaml",
		Order:     []string{"devenv", "fonts", "apps"},
		StartedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestJournalRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	j, err := Begin(dir, startInfo("s1"))
	require.NoError(t, err)

	require.NoError(t, j.StepStarted(steps.MustID("devenv")))
	res := steps.AggregateItems(steps.MustID("devenv"), []capability.ItemResult{
		{Item: capability.NewItem("git"), Outcome: capability.OutcomeInstalled},
		{Item: capability.NewItem("jq"), Outcome: capability.OutcomeSkipped},
	}).WithDuration(1500 * time.Millisecond)
	require.NoError(t, j.StepFinished(res))

	require.NoError(t, j.StepStarted(steps.MustID("fonts")))
	require.NoError(t, j.Finish(TerminalAborted))

	sess, err := Load(filepath.Join(dir, "s1.jsonl"))
	require.NoError(t, err)

	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, "ubuntu-24.04", sess.Platform)
	assert.Equal(t, []string{"devenv", "fonts", "apps"}, sess.Order)
	assert.Equal(t, TerminalAborted, sess.Terminal)
	assert.True(t, sess.IsTerminal())

	rec, ok := sess.Outcome("devenv")
	require.True(t, ok)
	assert.Equal(t, steps.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, 1500*time.Millisecond, rec.Duration)
	require.Len(t, rec.Items, 2)
	assert.Equal(t, "git", rec.Items[0].Name)
	assert.Equal(t, "installed", rec.Items[0].Outcome)

	// fonts started but never finished
	assert.True(t, sess.WasStarted("fonts"))
	_, ok = sess.Outcome("fonts")
	assert.False(t, ok)
	assert.Equal(t, 1, sess.Cursor())
}

func TestSessionShouldRerun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	j, err := Begin(dir, startInfo("s1"))
	require.NoError(t, err)
	require.NoError(t, j.StepFinished(steps.NewResult(steps.MustID("devenv"), steps.OutcomeSuccess)))
	require.NoError(t, j.StepFinished(steps.FailedResult(steps.MustID("fonts"), errors.New("download failed"))))
	require.NoError(t, j.Close())

	sess, err := Load(filepath.Join(dir, "s1.jsonl"))
	require.NoError(t, err)

	assert.False(t, sess.ShouldRerun("devenv"), "successful step must not rerun")
	assert.True(t, sess.ShouldRerun("fonts"), "failed step must rerun")
	assert.True(t, sess.ShouldRerun("apps"), "never-run step must run")
}

func TestJournalSurvivesTornTrailingLine(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	j, err := Begin(dir, startInfo("s1"))
	require.NoError(t, err)
	require.NoError(t, j.StepFinished(steps.NewResult(steps.MustID("devenv"), steps.OutcomeSuccess)))
	require.NoError(t, j.Close())

	path := filepath.Join(dir, "s1.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"step-finished","step_id":"fon`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sess, err := Load(path)
	require.NoError(t, err)
	_, ok := sess.Outcome("devenv")
	assert.True(t, ok, "records before the torn line survive")
	assert.False(t, sess.IsTerminal())
	assert.Equal(t, 1, sess.Cursor())
}

func TestOpenResumesLiveSession(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	j, err := Begin(dir, startInfo("s1"))
	require.NoError(t, err)
	require.NoError(t, j.StepFinished(steps.NewResult(steps.MustID("devenv"), steps.OutcomeSuccess)))
	require.NoError(t, j.Close())

	reopened, err := Open(filepath.Join(dir, "s1.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Session().Cursor())

	require.NoError(t, reopened.StepFinished(steps.NewResult(steps.MustID("fonts"), steps.OutcomeSuccess)))
	require.NoError(t, reopened.Finish(TerminalCompleted))

	final, err := Load(filepath.Join(dir, "s1.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, TerminalCompleted, final.Terminal)
	assert.Len(t, final.Records(), 2)
}

func TestOpenRejectsTerminalSession(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	j, err := Begin(dir, startInfo("s1"))
	require.NoError(t, err)
	require.NoError(t, j.Finish(TerminalCompleted))

	_, err = Open(filepath.Join(dir, "s1.jsonl"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestBeginRejectsDuplicateSessionID(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	j, err := Begin(dir, startInfo("s1"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = Begin(dir, startInfo("s1"))
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestLatestResumablePicksNewestLiveSession(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	older := startInfo("older")
	older.StartedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	j1, err := Begin(dir, older)
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	done := startInfo("done")
	done.StartedAt = time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	j2, err := Begin(dir, done)
	require.NoError(t, err)
	require.NoError(t, j2.Finish(TerminalCompleted))

	newer := startInfo("newer")
	newer.StartedAt = time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	j3, err := Begin(dir, newer)
	require.NoError(t, err)
	require.NoError(t, j3.Close())

	sess, err := LatestResumable(dir)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "newer", sess.ID)

	latest, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, "done", latest.ID)
}

func TestLatestResumableEmptyDir(t *testing.T) {
	t.Parallel()

	sess, err := LatestResumable(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestArchiveAllMovesLiveSessionsOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	live, err := Begin(dir, startInfo("live"))
	require.NoError(t, err)
	require.NoError(t, live.Close())

	finished := startInfo("finished")
	j, err := Begin(dir, finished)
	require.NoError(t, err)
	require.NoError(t, j.Finish(TerminalCompleted))

	count, err := ArchiveAll(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NoFileExists(t, filepath.Join(dir, "live.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "archive", "live.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "finished.jsonl"))

	// Archived journals replay fine and stay non-terminal.
	sess, err := Load(filepath.Join(dir, "archive", "live.jsonl"))
	require.NoError(t, err)
	assert.False(t, sess.IsTerminal())

	// Nothing resumable remains.
	resumable, err := LatestResumable(dir)
	require.NoError(t, err)
	assert.Nil(t, resumable)
}

func TestNewSessionID(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 8, 25, 15, 30, 12, 0, time.UTC)
	id := NewSessionID(start)
	assert.Contains(t, id, "20260825-153012")
	assert.NotEqual(t, id, NewSessionID(start), "same-second sessions get distinct ids")
}
