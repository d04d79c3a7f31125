package platform

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDir = "rigup"

// Paths locates rigup's own on-disk state. Sessions and snapshots live under
// the XDG state home so wiping the directory forces a clean run without
// touching any provisioned machine state.
type Paths struct {
	root string
}

// NewPaths returns the default Paths rooted at XDG_STATE_HOME/rigup.
func NewPaths() Paths {
	return Paths{root: filepath.Join(xdg.StateHome, appDir)}
}

// NewPathsAt returns Paths rooted at a custom directory, used by tests and
// the state-dir override in rigup.toml.
func NewPathsAt(root string) Paths {
	return Paths{root: root}
}

// Root returns the state root directory.
func (p Paths) Root() string {
	return p.root
}

// SessionsDir returns the directory holding session journals for a platform.
func (p Paths) SessionsDir(platformID string) string {
	return filepath.Join(p.root, "sessions", platformID)
}

// SessionArchiveDir returns the archive directory for superseded sessions.
func (p Paths) SessionArchiveDir(platformID string) string {
	return filepath.Join(p.SessionsDir(platformID), "archive")
}

// SnapshotsDir returns the snapshot directory for one session.
func (p Paths) SnapshotsDir(sessionID string) string {
	return filepath.Join(p.root, "snapshots", sessionID)
}

// LogFile returns the path of the run log file.
func (p Paths) LogFile() string {
	return filepath.Join(p.root, "logs", "rigup.log")
}

// ConfigDir returns the directory holding profiles and rigup.toml,
// rooted at the XDG config home.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appDir)
}

// ProfilePath resolves a profile name to its file under the config
// dir. Names that already look like paths are returned unchanged.
func ProfilePath(name string) string {
	if filepath.IsAbs(name) || filepath.Ext(name) != "" {
		return name
	}
	return filepath.Join(ConfigDir(), "profiles", name+".yaml")
}

// SettingsPath returns the location of the optional rigup.toml.
func SettingsPath() string {
	return filepath.Join(ConfigDir(), "rigup.toml")
}
