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

func TestSetupEndToEndWritesMachineState(t *testing.T) {
	h := NewHarness(t)
	h.WriteProfile(testutil.NewProfileBuilder().
		WithPackage("git").
		WithGit("Ada Dev", "ada@example.com").
		WithGitDefault("init.defaultBranch", "main").
		WithSSH("ed25519", "~/.ssh/id_ed25519", "ada@example.com").
		WithEditorSettingsPath("~/.config/Cursor/User/settings.json").
		WithEditorSetting("editor.formatOnSave", true).
		WithRepo("git@github.com:felixgeelhaar/dotfiles.git", "~/code/dotfiles", "main"))

	h.ManagerAvailable()
	h.PackagePresent("git", "2.43.0")

	// Pre-existing machine state: editor settings to merge into and a
	// repository that is already cloned.
	settings := h.SeedHomeFile(".config/Cursor/User/settings.json",
		`{"workbench.colorTheme": "Nord"}`)
	h.SeedHomeDir("code/dotfiles/.git")

	summary := h.Setup(context.Background(), app.SetupOptions{})

	assert.Equal(t, 0, summary.ExitCode())
	assert.Equal(t, session.TerminalCompleted, summary.Terminal)
	require.Len(t, summary.Steps, 8)
	assert.Equal(t, steps.OutcomeSuccess, stepLine(t, summary, app.StepVerify).Outcome)

	// The identity was merged into a fresh ~/.gitconfig.
	gitconfig := h.HomePath(".gitconfig")
	testutil.AssertFileContains(t, gitconfig, "[user]")
	testutil.AssertFileContains(t, gitconfig, "Ada Dev")
	testutil.AssertFileContains(t, gitconfig, "ada@example.com")
	testutil.AssertFileContains(t, gitconfig, "defaultBranch")

	// A real key pair was generated with the private half locked down.
	testutil.AssertFileExists(t, h.HomePath(".ssh/id_ed25519"))
	testutil.AssertFileMode(t, h.HomePath(".ssh/id_ed25519"), 0o600)
	testutil.AssertFileContains(t, h.HomePath(".ssh/id_ed25519.pub"), "ssh-ed25519 ")
	testutil.AssertFileContains(t, h.HomePath(".ssh/id_ed25519.pub"), "ada@example.com")

	// Editor settings were merged, not replaced.
	testutil.AssertFileContains(t, settings, "editor.formatOnSave")
	testutil.AssertFileContains(t, settings, "Nord")

	// The already-cloned repository was left alone.
	assert.Equal(t, steps.OutcomeSuccess, stepLine(t, summary, app.StepRepos).Outcome)
	testutil.AssertDirExists(t, h.HomePath("code/dotfiles/.git"))
	for _, call := range h.Runner.Calls() {
		assert.NotEqual(t, "git", call.Command, "no git command should run for a cloned repo")
	}

	// The journal on disk agrees with the summary.
	sess, err := session.Latest(h.SessionsDir())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, summary.SessionID, sess.ID)
	assert.Equal(t, session.TerminalCompleted, sess.Terminal)
	testutil.AssertFileExists(t, sess.Path())
}

func TestSetupDryRunLeavesNoTrace(t *testing.T) {
	h := NewHarness(t)
	h.WriteProfile(testutil.NewProfileBuilder().
		WithPackage("htop").
		WithGit("Ada Dev", "ada@example.com").
		WithSSH("ed25519", "~/.ssh/id_ed25519", ""))
	h.ManagerAvailable()
	h.PackageAbsent("htop")

	// Verification is skipped: previewing against a machine that does
	// not have the state yet would fail it by definition.
	summary := h.Setup(context.Background(), app.SetupOptions{
		DryRun: true,
		Skip:   []string{"verify"},
	})

	assert.True(t, summary.DryRun)
	assert.Equal(t, 0, summary.ExitCode())
	assert.Equal(t, session.TerminalCompleted, summary.Terminal)
	assert.Equal(t, steps.OutcomeSkippedByFlag, stepLine(t, summary, app.StepVerify).Outcome)

	// The absent package was reported, not installed.
	assert.False(t, h.Runner.CalledWith("sudo", "apt-get", "install", "-y", "htop"))

	// Nothing landed in the home directory and no state was recorded.
	entries, err := os.ReadDir(h.HomeDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	testutil.AssertFileNotExists(t, h.StateDir)
}
