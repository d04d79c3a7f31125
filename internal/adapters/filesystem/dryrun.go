package filesystem

import (
	"os"
	"sync"

	"github.com/felixgeelhaar/rigup/internal/ports"
)

// Mutation records a file system write a dry run would have performed.
type Mutation struct {
	Op   string // "write", "mkdir", "remove", "rename", "copy"
	Path string
	Dest string // rename/copy target
}

// DryRunFileSystem wraps a FileSystem, delegating reads and recording every
// mutating call instead of performing it. Dry-run executions see accurate
// probe results while leaving the machine byte-for-byte untouched.
type DryRunFileSystem struct {
	inner ports.FileSystem

	mu        sync.Mutex
	mutations []Mutation
}

// NewDryRunFileSystem creates a DryRunFileSystem over inner.
func NewDryRunFileSystem(inner ports.FileSystem) *DryRunFileSystem {
	return &DryRunFileSystem{inner: inner}
}

// Mutations returns the mutations recorded so far, in call order.
func (fs *DryRunFileSystem) Mutations() []Mutation {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]Mutation, len(fs.mutations))
	copy(out, fs.mutations)
	return out
}

func (fs *DryRunFileSystem) record(m Mutation) {
	fs.mu.Lock()
	fs.mutations = append(fs.mutations, m)
	fs.mu.Unlock()
}

// ReadFile delegates to the wrapped file system.
func (fs *DryRunFileSystem) ReadFile(path string) ([]byte, error) {
	return fs.inner.ReadFile(path)
}

// WriteFile records the write without performing it.
func (fs *DryRunFileSystem) WriteFile(path string, _ []byte, _ os.FileMode) error {
	fs.record(Mutation{Op: "write", Path: path})
	return nil
}

// Exists delegates to the wrapped file system.
func (fs *DryRunFileSystem) Exists(path string) bool {
	return fs.inner.Exists(path)
}

// IsDir delegates to the wrapped file system.
func (fs *DryRunFileSystem) IsDir(path string) bool {
	return fs.inner.IsDir(path)
}

// MkdirAll records the mkdir without performing it.
func (fs *DryRunFileSystem) MkdirAll(path string, _ os.FileMode) error {
	fs.record(Mutation{Op: "mkdir", Path: path})
	return nil
}

// Remove records the removal without performing it.
func (fs *DryRunFileSystem) Remove(path string) error {
	fs.record(Mutation{Op: "remove", Path: path})
	return nil
}

// RemoveAll records the recursive removal without performing it.
func (fs *DryRunFileSystem) RemoveAll(path string) error {
	fs.record(Mutation{Op: "remove", Path: path})
	return nil
}

// Rename records the rename without performing it.
func (fs *DryRunFileSystem) Rename(oldPath, newPath string) error {
	fs.record(Mutation{Op: "rename", Path: oldPath, Dest: newPath})
	return nil
}

// CopyFile records the copy without performing it.
func (fs *DryRunFileSystem) CopyFile(src, dest string) error {
	fs.record(Mutation{Op: "copy", Path: src, Dest: dest})
	return nil
}

// Mode delegates to the wrapped file system.
func (fs *DryRunFileSystem) Mode(path string) (os.FileMode, error) {
	return fs.inner.Mode(path)
}

// ReadDir delegates to the wrapped file system.
func (fs *DryRunFileSystem) ReadDir(path string) ([]string, error) {
	return fs.inner.ReadDir(path)
}

// Ensure DryRunFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*DryRunFileSystem)(nil)
