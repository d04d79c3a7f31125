package brew_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/provider/brew"
	"github.com/felixgeelhaar/rigup/internal/testutil/mocks"
)

func TestIsInstalledFindsFormula(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("brew", []string{"list", "--formula"}, "fzf\nripgrep\nstarship\n")

	status, err := brew.New(runner, nil).IsInstalled(context.Background(), capability.NewItem("ripgrep"))

	require.NoError(t, err)
	assert.Equal(t, capability.StatusPresent, status)
}

func TestIsInstalledFallsBackToCaskList(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("brew", []string{"list", "--formula"}, "fzf\n")
	runner.AddSuccess("brew", []string{"list", "--cask"}, "obsidian\ncursor\n")

	status, err := brew.New(runner, nil).IsInstalled(context.Background(), capability.NewItem("obsidian"))

	require.NoError(t, err)
	assert.Equal(t, capability.StatusPresent, status)
}

func TestIsInstalledAbsent(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("brew", []string{"list", "--formula"}, "fzf\n")
	runner.AddSuccess("brew", []string{"list", "--cask"}, "")

	status, err := brew.New(runner, nil).IsInstalled(context.Background(), capability.NewItem("ripgrep"))

	require.NoError(t, err)
	assert.Equal(t, capability.StatusAbsent, status)
}

func TestIsInstalledUnknownWhenBrewFails(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddFailure("brew", []string{"list", "--formula"}, 1, "Error: brew database locked")

	status, err := brew.New(runner, nil).IsInstalled(context.Background(), capability.NewItem("ripgrep"))

	require.Error(t, err)
	assert.Equal(t, capability.StatusUnknown, status)
}

func TestInstallFormula(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("brew", []string{"install", "ripgrep"}, "")

	err := brew.New(runner, nil).Install(context.Background(), capability.NewItem("ripgrep"))

	require.NoError(t, err)
	assert.True(t, runner.CalledWith("brew", "install", "ripgrep"))
}

func TestInstallCaskUsesCaskFlag(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("brew", []string{"install", "--cask", "obsidian"}, "")

	item := capability.NewItem("obsidian").WithAttr(capability.AttrCask, "true")
	err := brew.New(runner, nil).Install(context.Background(), item)

	require.NoError(t, err)
	assert.True(t, runner.CalledWith("brew", "install", "--cask", "obsidian"))
}

func TestInstallToleratesAlreadyInstalled(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddFailure("brew", []string{"install", "fzf"}, 1,
		"Warning: fzf 0.46.0 is already installed and up-to-date.\nError: already installed")

	err := brew.New(runner, nil).Install(context.Background(), capability.NewItem("fzf"))

	assert.NoError(t, err)
}

func TestRemoveToleratesMissingKeg(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddFailure("brew", []string{"uninstall", "ripgrep"}, 1,
		"Error: No such keg: /opt/homebrew/Cellar/ripgrep")

	err := brew.New(runner, nil).Remove(context.Background(), capability.NewItem("ripgrep"))

	assert.NoError(t, err)
}

func TestInstalledVersion(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("brew", []string{"list", "--versions", "ripgrep"}, "ripgrep 14.1.0\n")

	version, err := brew.New(runner, nil).InstalledVersion(context.Background(), capability.NewItem("ripgrep"))

	require.NoError(t, err)
	assert.Equal(t, "14.1.0", version)
}
