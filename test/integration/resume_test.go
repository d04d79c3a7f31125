package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/app"
	"github.com/felixgeelhaar/rigup/internal/domain/session"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/testutil"
)

func TestSetupInterruptAndResumeCompletesSameSession(t *testing.T) {
	h := NewHarness(t)
	h.WriteProfile(testutil.NewProfileBuilder().
		WithPackage("git").
		WithPackage("htop").
		WithGit("Ada Dev", "ada@example.com"))
	h.ManagerAvailable()
	h.PackagePresent("git", "2.43.0")
	h.PackageAbsent("htop")
	h.InstallSucceeds("htop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := h.Setup(ctx, app.SetupOptions{Sink: interruptAfter(cancel, app.StepDevEnv)})

	require.True(t, first.Interrupted)
	assert.Equal(t, 3, first.ExitCode())
	assert.Empty(t, first.Terminal)
	assert.Equal(t, steps.OutcomeSuccess, stepLine(t, first, app.StepDevEnv).Outcome)
	assert.Equal(t, 1, h.InstallCalls("htop"))

	// The unfinished journal is on disk and the git step never ran.
	prior, err := session.LatestResumable(h.SessionsDir())
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, first.SessionID, prior.ID)
	testutil.AssertFileExists(t, prior.Path())
	testutil.AssertFileNotExists(t, h.HomePath(".gitconfig"))

	// The first run installed htop, so later probes see it.
	h.PackagePresent("htop", "3.3.0")

	second := h.Setup(context.Background(), app.SetupOptions{Resume: true})

	require.True(t, second.Resumed)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 0, second.ExitCode())
	assert.Equal(t, session.TerminalCompleted, second.Terminal)
	assert.Equal(t, steps.OutcomeSkippedAlreadyDone, stepLine(t, second, app.StepDevEnv).Outcome)
	assert.Equal(t, 1, h.InstallCalls("htop"), "resume must not reinstall")

	// The remaining steps ran and left their state behind.
	testutil.AssertFileContains(t, h.HomePath(".gitconfig"), "ada@example.com")

	sess, err := session.Latest(h.SessionsDir())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, first.SessionID, sess.ID)
	assert.Equal(t, session.TerminalCompleted, sess.Terminal)
}

func TestSetupNoResumeArchivesUnfinishedSession(t *testing.T) {
	h := NewHarness(t)
	h.WriteProfile(testutil.NewProfileBuilder().
		WithPackage("git").
		WithGit("Ada Dev", "ada@example.com"))
	h.ManagerAvailable()
	h.PackagePresent("git", "2.43.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := h.Setup(ctx, app.SetupOptions{Sink: interruptAfter(cancel, app.StepDevEnv)})
	require.True(t, first.Interrupted)

	second := h.Setup(context.Background(), app.SetupOptions{NoResume: true})

	assert.False(t, second.Resumed)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 0, second.ExitCode())
	assert.Equal(t, session.TerminalCompleted, second.Terminal)

	// The abandoned journal moved to the archive; only the fresh run
	// remains in the sessions directory.
	archived, err := os.ReadDir(h.ArchiveDir())
	require.NoError(t, err)
	require.Len(t, archived, 1)

	remaining, err := session.List(h.SessionsDir())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.SessionID, remaining[0].ID)
}
