package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/testutil/mocks"
)

func TestProfileBuilderProducesLoadableYAML(t *testing.T) {
	t.Parallel()

	doc := NewProfileBuilder().
		WithPlatform("linux").
		WithManager("apt", "dpkg", "--version").
		WithFontsDir("~/.local/share/fonts").
		WithEditorSettingsPath("~/.config/Cursor/User/settings.json").
		WithPackageVersion("ripgrep", "13.0.0").
		WithApp("obsidian").
		WithFont("JetBrains Mono", "https://example.com/jbm.zip").
		WithGit("Ada Lovelace", "ada@example.com").
		WithGitDefault("init.defaultBranch", "main").
		WithSSH("ed25519", "~/.ssh/id_ed25519", "ada@example.com").
		WithEditorSetting("editor.fontSize", 14).
		WithRepo("git@github.com:acme/dotfiles.git", "~/src/dotfiles", "main").
		WithMinVersion("git", "2.40.0").
		String()

	fs := mocks.NewFileSystem()
	fs.AddFile("/profiles/dev.yaml", doc)

	prof, err := profile.NewLoader(fs).Load("/profiles/dev.yaml")
	require.NoError(t, err)

	assert.Equal(t, "linux", prof.Platform())
	require.Len(t, prof.Packages(), 1)
	assert.Equal(t, "ripgrep", prof.Packages()[0].Name)
	assert.Equal(t, "13.0.0", prof.Packages()[0].MinVersion)
	require.Len(t, prof.Fonts(), 1)
	assert.Equal(t, "main", prof.Git().Defaults["init.defaultBranch"])
	assert.Equal(t, "2.40.0", prof.Verify().MinVersions["git"])
}

func TestProfileBuilderDefaultsAreValid(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile("/p.yaml", NewProfileBuilder().String())

	prof, err := profile.NewLoader(fs).Load("/p.yaml")
	require.NoError(t, err)
	assert.Equal(t, "linux", prof.Platform())
	require.Len(t, prof.Managers(), 1)
	assert.Equal(t, "apt", string(prof.Managers()[0].Kind))
}
