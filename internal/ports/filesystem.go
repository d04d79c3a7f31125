package ports

import (
	"os"
	"path/filepath"
	"strings"
)

// FileSystem provides the file system operations rigup mutates machine state
// through. Implementations must make WriteFile atomic (write to a temporary
// file, then rename) so an interrupted run never leaves a half-written
// config file behind.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	IsDir(path string) bool
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
	Rename(oldPath, newPath string) error
	CopyFile(src, dest string) error

	// Mode returns the permission bits of the file at path.
	Mode(path string) (os.FileMode, error)

	// ReadDir returns the names of the entries in the directory.
	ReadDir(path string) ([]string, error)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
