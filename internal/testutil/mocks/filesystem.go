package mocks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/rigup/internal/ports"
)

// FileSystem is a thread-safe in-memory test double for
// ports.FileSystem. Paths are treated as opaque strings, so tests can
// use absolute paths without touching the real disk.
type FileSystem struct {
	mu       sync.RWMutex
	files    map[string][]byte
	modes    map[string]os.FileMode
	dirs     map[string]bool
	failures map[string]error
}

// NewFileSystem creates a new FileSystem mock.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files:    make(map[string][]byte),
		modes:    make(map[string]os.FileMode),
		dirs:     make(map[string]bool),
		failures: make(map[string]error),
	}
}

// AddFile adds a file with mode 0644 to the mock filesystem.
func (fs *FileSystem) AddFile(path, content string) {
	fs.AddFileMode(path, []byte(content), 0o644)
}

// AddFileMode adds a file with explicit content and mode.
func (fs *FileSystem) AddFileMode(path string, content []byte, mode os.FileMode) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = append([]byte(nil), content...)
	fs.modes[path] = mode
	fs.addParents(path)
}

// AddDir adds a directory to the mock filesystem.
func (fs *FileSystem) AddDir(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
}

// FailWith makes any read or write of the given path return err.
func (fs *FileSystem) FailWith(path string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failures[path] = err
}

// ReadFile reads a file from the mock filesystem.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if err, ok := fs.failures[path]; ok {
		return nil, err
	}
	if content, ok := fs.files[path]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, fmt.Errorf("file not found: %s", path)
}

// WriteFile writes a file to the mock filesystem.
func (fs *FileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err, ok := fs.failures[path]; ok {
		return err
	}
	fs.files[path] = append([]byte(nil), data...)
	fs.modes[path] = perm
	fs.addParents(path)
	return nil
}

// Exists checks if a path exists in the mock filesystem.
func (fs *FileSystem) Exists(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, fileExists := fs.files[path]
	return fileExists || fs.dirs[path]
}

// IsDir checks if a path is a directory in the mock filesystem.
func (fs *FileSystem) IsDir(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.dirs[path]
}

// MkdirAll creates a directory in the mock filesystem.
func (fs *FileSystem) MkdirAll(path string, _ os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
	return nil
}

// Remove removes a path from the mock filesystem.
func (fs *FileSystem) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.files, path)
	delete(fs.modes, path)
	delete(fs.dirs, path)
	return nil
}

// RemoveAll removes a path and everything beneath it.
func (fs *FileSystem) RemoveAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	for file := range fs.files {
		if file == path || strings.HasPrefix(file, prefix) {
			delete(fs.files, file)
			delete(fs.modes, file)
		}
	}
	for dir := range fs.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(fs.dirs, dir)
		}
	}
	return nil
}

// Rename renames a file in the mock filesystem.
func (fs *FileSystem) Rename(oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if content, ok := fs.files[oldPath]; ok {
		fs.files[newPath] = content
		fs.modes[newPath] = fs.modes[oldPath]
		delete(fs.files, oldPath)
		delete(fs.modes, oldPath)
		return nil
	}
	if fs.dirs[oldPath] {
		fs.dirs[newPath] = true
		delete(fs.dirs, oldPath)
		return nil
	}
	return fmt.Errorf("file not found: %s", oldPath)
}

// CopyFile copies a file in the mock filesystem.
func (fs *FileSystem) CopyFile(src, dest string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	content, ok := fs.files[src]
	if !ok {
		return fmt.Errorf("file not found: %s", src)
	}
	fs.files[dest] = append([]byte(nil), content...)
	fs.modes[dest] = fs.modes[src]
	return nil
}

// Mode returns the mode a file was written with.
func (fs *FileSystem) Mode(path string) (os.FileMode, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if mode, ok := fs.modes[path]; ok {
		return mode, nil
	}
	return 0, fmt.Errorf("file not found: %s", path)
}

// ReadDir returns the names of direct children of the directory.
func (fs *FileSystem) ReadDir(path string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if !fs.dirs[path] {
		return nil, fmt.Errorf("directory not found: %s", path)
	}

	seen := make(map[string]bool)
	prefix := strings.TrimSuffix(path, "/") + "/"
	collect := func(candidate string) {
		if !strings.HasPrefix(candidate, prefix) {
			return
		}
		rest := strings.TrimPrefix(candidate, prefix)
		if rest == "" {
			return
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			rest = rest[:idx]
		}
		seen[rest] = true
	}
	for file := range fs.files {
		collect(file)
	}
	for dir := range fs.dirs {
		collect(dir)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Content returns the raw content of a file, failing the lookup
// silently with nil if the file does not exist.
func (fs *FileSystem) Content(path string) []byte {
	content, err := fs.ReadFile(path)
	if err != nil {
		return nil
	}
	return content
}

// Paths returns all file paths currently in the mock filesystem.
func (fs *FileSystem) Paths() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	paths := make([]string, 0, len(fs.files))
	for path := range fs.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Reset clears all files and directories.
func (fs *FileSystem) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files = make(map[string][]byte)
	fs.modes = make(map[string]os.FileMode)
	fs.dirs = make(map[string]bool)
	fs.failures = make(map[string]error)
}

// addParents records every ancestor directory of path. Callers must
// hold the write lock.
func (fs *FileSystem) addParents(path string) {
	dir := filepath.Dir(path)
	for dir != "." && dir != "/" && dir != "" && !fs.dirs[dir] {
		fs.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

// Ensure FileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FileSystem)(nil)
