package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/app"
	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/domain/session"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/testutil"
)

// A half-saved edit that ini refuses to parse. The git step snapshots
// the file before merging, so a failed merge must bring it back.
const corruptGitconfig = "[user\nname = half-written\n"

func TestSetupCriticalFailureRollsBack(t *testing.T) {
	h := NewHarness(t)
	h.WriteProfile(testutil.NewProfileBuilder().
		WithPackage("htop").
		WithGit("Ada Dev", "ada@example.com"))
	h.ManagerAvailable()
	h.PackageAbsent("htop")
	h.InstallSucceeds("htop")
	h.RemoveSucceeds("htop")

	gitconfig := h.SeedHomeFile(".gitconfig", corruptGitconfig)

	// Rollback re-probes packages before removing them; flip the probe
	// the moment the install lands, the way a real dpkg database would.
	flip := execution.SinkFunc(func(ev execution.Event) {
		if ev.Kind == execution.EventItemFinished && ev.Item == "htop" &&
			ev.ItemOutcome == capability.OutcomeInstalled {
			h.PackagePresent("htop", "3.3.0")
		}
	})

	summary := h.Setup(context.Background(), app.SetupOptions{Sink: flip})

	assert.Equal(t, 2, summary.ExitCode())
	assert.True(t, summary.RollbackPerformed)
	assert.Equal(t, session.TerminalRolledBack, summary.Terminal)
	assert.Equal(t, steps.OutcomeFailed, stepLine(t, summary, app.StepGit).Outcome)

	// The snapshot of the corrupted file came back byte for byte.
	assert.Equal(t, 1, summary.FilesRestored)
	assert.Zero(t, summary.RestoreFailures)
	testutil.AssertFileEquals(t, gitconfig, corruptGitconfig)

	// The package installed before the failure was removed again.
	assert.Equal(t, 1, summary.ItemsRemoved)
	assert.Zero(t, summary.RemoveFailures)
	assert.True(t, h.Runner.CalledWith("sudo", "apt-get", "remove", "-y", "htop"))

	sess, err := session.Latest(h.SessionsDir())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, session.TerminalRolledBack, sess.Terminal)
}

func TestSetupNoBackupAbortsWithoutRollback(t *testing.T) {
	h := NewHarness(t)
	h.WriteProfile(testutil.NewProfileBuilder().
		WithPackage("htop").
		WithGit("Ada Dev", "ada@example.com"))
	h.ManagerAvailable()
	h.PackageAbsent("htop")
	h.InstallSucceeds("htop")

	gitconfig := h.SeedHomeFile(".gitconfig", corruptGitconfig)

	summary := h.Setup(context.Background(), app.SetupOptions{NoBackup: true})

	assert.Equal(t, 3, summary.ExitCode())
	assert.False(t, summary.RollbackPerformed)
	assert.Equal(t, session.TerminalAborted, summary.Terminal)

	// Nothing was undone: the installed package stays installed and no
	// snapshots were ever taken.
	assert.False(t, h.Runner.CalledWith("sudo", "apt-get", "remove", "-y", "htop"))
	testutil.AssertFileEquals(t, gitconfig, corruptGitconfig)
	testutil.AssertFileNotExists(t, h.App().Paths().SnapshotsDir(summary.SessionID))

	sess, err := session.Latest(h.SessionsDir())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, session.TerminalAborted, sess.Terminal)
}
