package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePackageName(t *testing.T) {
	t.Parallel()

	valid := []string{"git", "node-lts", "python3.11", "g++", "lib_foo", "ripgrep"}
	for _, name := range valid {
		assert.NoError(t, ValidatePackageName(name), "expected %q to be valid", name)
	}

	invalid := []string{
		"",
		"git; rm -rf /",
		"pkg && echo pwned",
		"$(whoami)",
		"pkg`id`",
		"-leading-dash",
		"pkg name",
	}
	for _, name := range invalid {
		assert.Error(t, ValidatePackageName(name), "expected %q to be rejected", name)
	}
}

func TestValidateWingetID(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateWingetID("Git.Git"))
	assert.NoError(t, ValidateWingetID("Microsoft.VisualStudioCode"))
	assert.NoError(t, ValidateWingetID("Obsidian.Obsidian"))

	assert.Error(t, ValidateWingetID(""))
	assert.Error(t, ValidateWingetID("NoDotHere"))
	assert.Error(t, ValidateWingetID("Git.Git; shutdown"))
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateURL("https://github.com/ryanoasis/nerd-fonts/releases/download/v3.2.1/JetBrainsMono.zip"))
	assert.NoError(t, ValidateURL("http://example.com:8080/font.tar.gz"))

	assert.Error(t, ValidateURL(""))
	assert.Error(t, ValidateURL("ftp://example.com/font.zip"))
	assert.Error(t, ValidateURL("https://example.com/$(curl evil)"))
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidatePath("/home/dev/.fonts"))
	assert.NoError(t, ValidatePath("~/.local/share/fonts"))

	assert.Error(t, ValidatePath(""))
	assert.Error(t, ValidatePath("../../../etc/passwd"))
	assert.Error(t, ValidatePath("fonts/../../etc"))
	assert.Error(t, ValidatePath("/tmp/x\x00y"))
}

func TestValidateGitBranch(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateGitBranch(""))
	assert.NoError(t, ValidateGitBranch("main"))
	assert.NoError(t, ValidateGitBranch("feature/login-form"))
	assert.NoError(t, ValidateGitBranch("release-1.2"))

	assert.Error(t, ValidateGitBranch("main; rm -rf /"))
	assert.Error(t, ValidateGitBranch("branch..traversal"))
	assert.Error(t, ValidateGitBranch("bad branch"))
}

func TestValidateGitRemoteURL(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateGitRemoteURL("https://github.com/acme/dotfiles"))
	assert.NoError(t, ValidateGitRemoteURL("git@github.com:acme/dotfiles.git"))
	assert.NoError(t, ValidateGitRemoteURL("ssh://git@github.com/acme/dotfiles"))

	assert.Error(t, ValidateGitRemoteURL(""))
	assert.Error(t, ValidateGitRemoteURL("https://github.com/acme/repo; rm -rf /"))
	assert.Error(t, ValidateGitRemoteURL("--upload-pack=touch /tmp/pwn"))
}

func TestValidateGitConfigValue(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateGitConfigValue("Ada Lovelace"))
	assert.NoError(t, ValidateGitConfigValue("ada@example.com"))

	assert.Error(t, ValidateGitConfigValue("value\n[core]\nsshCommand = evil"))
	assert.Error(t, ValidateGitConfigValue("bell\x07char"))
}
