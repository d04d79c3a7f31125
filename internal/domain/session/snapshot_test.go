package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/adapters/filesystem"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

func newStore(t *testing.T) (*SnapshotStore, string) {
	t.Helper()
	base := t.TempDir()
	store := NewSnapshotStore(filesystem.NewOSFileSystem(), filepath.Join(base, "snapshots"))
	return store, base
}

func TestCaptureAndRestoreExistingFile(t *testing.T) {
	t.Parallel()
	store, base := newStore(t)

	target := filepath.Join(base, "gitconfig")
	require.NoError(t, os.WriteFile(target, []byte("[user]\nname = before\n"), 0o600))

	snap, err := store.Capture(steps.MustID("git"), target)
	require.NoError(t, err)
	assert.True(t, snap.Existed)
	assert.Equal(t, os.FileMode(0o600), snap.Mode)
	assert.NotEmpty(t, snap.Hash)

	// Step mutates the file.
	require.NoError(t, os.WriteFile(target, []byte("[user]\nname = after\n"), 0o644))

	require.NoError(t, store.Restore(*snap))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "[user]\nname = before\n", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCaptureAbsentFileRestoreRemoves(t *testing.T) {
	t.Parallel()
	store, base := newStore(t)

	target := filepath.Join(base, "settings.json")
	snap, err := store.Capture(steps.MustID("cursor"), target)
	require.NoError(t, err)
	assert.False(t, snap.Existed)
	assert.Empty(t, snap.Filename)

	// Step creates the file; rollback must delete it again.
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))
	require.NoError(t, store.Restore(*snap))
	assert.NoFileExists(t, target)

	// Restoring when the file never appeared is a no-op.
	require.NoError(t, store.Restore(*snap))
}

func TestCaptureFirstWinsPerStepAndPath(t *testing.T) {
	t.Parallel()
	store, base := newStore(t)

	target := filepath.Join(base, "config")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644))

	first, err := store.Capture(steps.MustID("git"), target)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("mutated once"), 0o644))

	second, err := store.Capture(steps.MustID("git"), target)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-capture returns the original snapshot")

	require.NoError(t, os.WriteFile(target, []byte("mutated twice"), 0o644))
	require.NoError(t, store.Restore(*second))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestRestoreStepRunsNewestFirstAndReportsFailures(t *testing.T) {
	t.Parallel()
	store, base := newStore(t)

	a := filepath.Join(base, "a.conf")
	b := filepath.Join(base, "b.conf")
	require.NoError(t, os.WriteFile(a, []byte("a0"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b0"), 0o644))

	snapA, err := store.Capture(steps.MustID("git"), a)
	require.NoError(t, err)
	_, err = store.Capture(steps.MustID("git"), b)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(a, []byte("a1"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b1"), 0o644))

	// Corrupt A's stored content so its restore fails loudly.
	require.NoError(t, os.Remove(filepath.Join(store.basePath, snapA.Filename)))

	results := store.RestoreStep(steps.MustID("git"))
	require.Len(t, results, 2)

	// Newest capture (b) restores first.
	assert.Equal(t, b, results[0].Snapshot.Path)
	assert.True(t, results[0].Restored())
	assert.Equal(t, a, results[1].Snapshot.Path)
	require.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, ErrSnapshotNotFound)

	data, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "b0", string(data))
}

func TestRestoreDetectsCorruptContent(t *testing.T) {
	t.Parallel()
	store, base := newStore(t)

	target := filepath.Join(base, "c.conf")
	require.NoError(t, os.WriteFile(target, []byte("good"), 0o644))

	snap, err := store.Capture(steps.MustID("git"), target)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.basePath, snap.Filename), []byte("tampered"), 0o600))

	err = store.Restore(*snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestSnapshotListKeepsCaptureOrder(t *testing.T) {
	t.Parallel()
	store, base := newStore(t)

	for i, name := range []string{"one", "two", "three"} {
		p := filepath.Join(base, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		snap, err := store.Capture(steps.MustID("devenv"), p)
		require.NoError(t, err)
		assert.Equal(t, i, snap.Seq)
	}

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, filepath.Join(base, "one"), all[0].Path)
	assert.Equal(t, filepath.Join(base, "three"), all[2].Path)

	byStep, err := store.ByStep(steps.MustID("devenv"))
	require.NoError(t, err)
	assert.Len(t, byStep, 3)

	empty, err := store.ByStep(steps.MustID("fonts"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
