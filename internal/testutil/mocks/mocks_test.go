package mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
)

func TestCommandRunnerResultsAndCalls(t *testing.T) {
	t.Parallel()

	runner := NewCommandRunner()
	runner.AddSuccess("git", []string{"--version"}, "git version 2.43.0")
	runner.AddError("apt-get", []string{"update"}, errors.New("no network"))

	res, err := runner.Run(context.Background(), "git", "--version")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "git version 2.43.0", res.Stdout)

	_, err = runner.Run(context.Background(), "apt-get", "update")
	assert.EqualError(t, err, "no network")

	_, err = runner.Run(context.Background(), "unknown-tool")
	assert.Error(t, err)

	assert.True(t, runner.CalledWith("git", "--version"))
	assert.False(t, runner.CalledWith("git", "status"))
	assert.Len(t, runner.Calls(), 3)
}

func TestCommandRunnerLookPath(t *testing.T) {
	t.Parallel()

	runner := NewCommandRunner()
	runner.AddSuccess("brew", []string{"--version"}, "Homebrew 4.2.0")
	runner.AddPath("fc-cache")

	assert.True(t, runner.LookPath("brew"), "registered command implies PATH presence")
	assert.True(t, runner.LookPath("fc-cache"))
	assert.False(t, runner.LookPath("winget"))

	runner.RemovePath("brew")
	assert.False(t, runner.LookPath("brew"))
}

func TestFileSystemReadWrite(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	require.NoError(t, fs.WriteFile("/home/dev/.gitconfig", []byte("[user]\n"), 0o644))

	content, err := fs.ReadFile("/home/dev/.gitconfig")
	require.NoError(t, err)
	assert.Equal(t, "[user]\n", string(content))

	mode, err := fs.Mode("/home/dev/.gitconfig")
	require.NoError(t, err)
	assert.EqualValues(t, 0o644, mode)

	assert.True(t, fs.IsDir("/home/dev"), "parents are created implicitly")

	_, err = fs.ReadFile("/missing")
	assert.Error(t, err)
}

func TestFileSystemReadDir(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	fs.AddFile("/fonts/JetBrainsMono-Regular.ttf", "aa")
	fs.AddFile("/fonts/JetBrainsMono-Bold.ttf", "bb")
	fs.AddFile("/fonts/sub/Nested.ttf", "cc")

	names, err := fs.ReadDir("/fonts")
	require.NoError(t, err)
	assert.Equal(t, []string{"JetBrainsMono-Bold.ttf", "JetBrainsMono-Regular.ttf", "sub"}, names)

	_, err = fs.ReadDir("/nope")
	assert.Error(t, err)
}

func TestFileSystemFailureInjection(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	fs.AddFile("/broken", "data")
	fs.FailWith("/broken", errors.New("disk error"))

	_, err := fs.ReadFile("/broken")
	assert.EqualError(t, err, "disk error")
	assert.EqualError(t, fs.WriteFile("/broken", []byte("x"), 0o644), "disk error")
}

func TestProviderLifecycle(t *testing.T) {
	t.Parallel()

	prov := NewProvider(capability.KindApt)
	prov.SetInstalled("git")
	prov.SetVersion("git", "2.43.0")
	prov.FailInstall("broken", errors.New("install failed"))

	status, err := prov.IsInstalled(context.Background(), capability.NewItem("git"))
	require.NoError(t, err)
	assert.Equal(t, capability.StatusPresent, status)

	status, err = prov.IsInstalled(context.Background(), capability.NewItem("ripgrep"))
	require.NoError(t, err)
	assert.Equal(t, capability.StatusAbsent, status)

	require.NoError(t, prov.Install(context.Background(), capability.NewItem("ripgrep")))
	assert.Error(t, prov.Install(context.Background(), capability.NewItem("broken")))
	assert.Equal(t, []string{"ripgrep"}, prov.Installs())

	version, err := prov.InstalledVersion(context.Background(), capability.NewItem("git"))
	require.NoError(t, err)
	assert.Equal(t, "2.43.0", version)

	require.NoError(t, prov.Remove(context.Background(), capability.NewItem("git")))
	status, _ = prov.IsInstalled(context.Background(), capability.NewItem("git"))
	assert.Equal(t, capability.StatusAbsent, status)
}
