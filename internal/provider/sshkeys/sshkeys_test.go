package sshkeys_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/provider/sshkeys"
	"github.com/felixgeelhaar/rigup/internal/testutil/mocks"
)

const keyPath = "/home/dev/.ssh/id_ed25519"

func keySpec() profile.SSHKey {
	return profile.SSHKey{KeyType: "ed25519", KeyPath: keyPath, Comment: "dev@workstation"}
}

func TestEnsureGeneratesNewKeyPair(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	gen := sshkeys.New(fs, nil)

	res, err := gen.Ensure(keySpec())

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, keyPath, res.PrivatePath)
	assert.Equal(t, keyPath+".pub", res.PublicPath)
	assert.True(t, fs.IsDir("/home/dev/.ssh"))

	privMode, err := fs.Mode(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), privMode)

	pubMode, err := fs.Mode(keyPath + ".pub")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), pubMode)

	assert.Contains(t, string(fs.Content(keyPath)), "OPENSSH PRIVATE KEY")

	pubLine := string(fs.Content(keyPath + ".pub"))
	assert.True(t, strings.HasPrefix(pubLine, "ssh-ed25519 "))
	assert.True(t, strings.HasSuffix(strings.TrimSuffix(pubLine, "\n"), " dev@workstation"))
}

func TestEnsurePublicKeyMatchesPrivate(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	gen := sshkeys.New(fs, nil)

	_, err := gen.Ensure(keySpec())
	require.NoError(t, err)

	signer, err := ssh.ParsePrivateKey(fs.Content(keyPath))
	require.NoError(t, err)

	pub, _, _, _, err := ssh.ParseAuthorizedKey(fs.Content(keyPath + ".pub"))
	require.NoError(t, err)

	assert.Equal(t, signer.PublicKey().Marshal(), pub.Marshal())
}

func TestEnsureRespectsExistingKey(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFileMode(keyPath, []byte("existing private key"), 0o600)
	gen := sshkeys.New(fs, nil)

	res, err := gen.Ensure(keySpec())

	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "existing private key", string(fs.Content(keyPath)))
}

func TestEnsureDefaultsPathAndType(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	fs := mocks.NewFileSystem()
	gen := sshkeys.New(fs, nil)

	res, err := gen.Ensure(profile.SSHKey{Comment: "dev@workstation"})

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, filepath.Join(home, ".ssh", "id_ed25519"), res.PrivatePath)
}

func TestEnsureRejectsUnsupportedKeyType(t *testing.T) {
	t.Parallel()

	gen := sshkeys.New(mocks.NewFileSystem(), nil)

	_, err := gen.Ensure(profile.SSHKey{KeyType: "rsa", KeyPath: keyPath})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "only ed25519")
}

func TestEnsureRejectsCommentWithNewline(t *testing.T) {
	t.Parallel()

	gen := sshkeys.New(mocks.NewFileSystem(), nil)

	_, err := gen.Ensure(profile.SSHKey{KeyPath: keyPath, Comment: "a\nssh-rsa injected"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "newlines")
}

func TestEnsureZeroSpecIsNoop(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	gen := sshkeys.New(fs, nil)

	res, err := gen.Ensure(profile.SSHKey{})

	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Empty(t, fs.Paths())
}
