package apt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/provider/apt"
	"github.com/felixgeelhaar/rigup/internal/testutil/mocks"
)

const dpkgQueryFormat = "-f=${Package}\t${Version}\t${db:Status-Status}\n"

func TestIsInstalledPresent(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("dpkg-query", []string{"-W", dpkgQueryFormat, "git"},
		"git\t1:2.43.0-1ubuntu1\tinstalled\n")

	status, err := apt.New(runner, nil).IsInstalled(context.Background(), capability.NewItem("git"))

	require.NoError(t, err)
	assert.Equal(t, capability.StatusPresent, status)
}

func TestIsInstalledAbsentOnNonZeroExit(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddFailure("dpkg-query", []string{"-W", dpkgQueryFormat, "ripgrep"}, 1,
		"dpkg-query: no packages found matching ripgrep")

	status, err := apt.New(runner, nil).IsInstalled(context.Background(), capability.NewItem("ripgrep"))

	require.NoError(t, err)
	assert.Equal(t, capability.StatusAbsent, status)
}

func TestIsInstalledUnknownOnRunnerError(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddError("dpkg-query", []string{"-W", dpkgQueryFormat, "git"},
		errors.New("exec format error"))

	status, err := apt.New(runner, nil).IsInstalled(context.Background(), capability.NewItem("git"))

	require.Error(t, err)
	assert.Equal(t, capability.StatusUnknown, status)
}

func TestInstallRunsAptGet(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("sudo", []string{"apt-get", "install", "-y", "ripgrep"}, "")

	err := apt.New(runner, nil).Install(context.Background(), capability.NewItem("ripgrep"))

	require.NoError(t, err)
	assert.True(t, runner.CalledWith("sudo", "apt-get", "install", "-y", "ripgrep"))
}

func TestInstallSurfacesStderr(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddFailure("sudo", []string{"apt-get", "install", "-y", "nonesuch"}, 100,
		"E: Unable to locate package nonesuch")

	err := apt.New(runner, nil).Install(context.Background(), capability.NewItem("nonesuch"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to locate package nonesuch")
}

func TestInstallRejectsInjection(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()

	err := apt.New(runner, nil).Install(context.Background(), capability.NewItem("git; rm -rf /"))

	require.Error(t, err)
	assert.Empty(t, runner.Calls(), "no command may run for an invalid name")
}

func TestRemoveToleratesAbsentPackage(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddFailure("sudo", []string{"apt-get", "remove", "-y", "ripgrep"}, 100,
		"E: Package 'ripgrep' is not installed, so not removed")

	err := apt.New(runner, nil).Remove(context.Background(), capability.NewItem("ripgrep"))

	assert.NoError(t, err)
}

func TestInstalledVersionStripsEpochAndRevision(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("dpkg-query", []string{"-W", "-f=${Version}", "git"}, "1:2.43.0-1ubuntu1")

	version, err := apt.New(runner, nil).InstalledVersion(context.Background(), capability.NewItem("git"))

	require.NoError(t, err)
	assert.Equal(t, "2.43.0", version)
}

func TestEnsureInstalledSkipsPresentPackage(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddSuccess("dpkg-query", []string{"-W", dpkgQueryFormat, "git"},
		"git\t1:2.43.0-1\tinstalled\n")

	result := capability.EnsureInstalled(context.Background(), apt.New(runner, nil), capability.NewItem("git"))

	assert.Equal(t, capability.OutcomeSkipped, result.Outcome)
	assert.False(t, runner.CalledWith("sudo", "apt-get", "install", "-y", "git"))
}
