// Package gitconfig merges a declared git identity into the user's
// gitconfig file. Sections and keys the profile does not declare are
// preserved.
package gitconfig

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/validation"
)

// DefaultPath is the config file merged when no explicit path is given.
const DefaultPath = "~/.gitconfig"

// Change records one key the merge rewrote.
type Change struct {
	Key string
	Old string
	New string
}

// Merger applies a git identity to a gitconfig file.
type Merger struct {
	fs     ports.FileSystem
	path   string
	logger ports.Logger
}

// New creates a Merger writing to path. An empty path means DefaultPath.
func New(fs ports.FileSystem, path string, logger ports.Logger) *Merger {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Merger{fs: fs, path: ports.ExpandPath(path), logger: logger}
}

// Path returns the resolved config file path.
func (m *Merger) Path() string {
	return m.path
}

// Apply merges the identity into the config file and reports the keys
// it changed. When every declared key already matches, the file is not
// touched and no changes are returned.
func (m *Merger) Apply(identity profile.GitIdentity) ([]Change, error) {
	desired, err := desiredKeys(identity)
	if err != nil {
		return nil, err
	}
	if len(desired) == 0 {
		return nil, nil
	}

	cfg, existed, err := m.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(desired))
	for key := range desired {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var changes []Change
	for _, key := range keys {
		section, option := splitKey(key)
		iniKey := cfg.Section(section).Key(option)
		current := iniKey.String()
		want := desired[key]
		if current == want {
			continue
		}
		iniKey.SetValue(want)
		changes = append(changes, Change{Key: key, Old: current, New: want})
	}
	if len(changes) == 0 {
		return nil, nil
	}

	perm := os.FileMode(0o644)
	if existed {
		if mode, err := m.fs.Mode(m.path); err == nil {
			perm = mode
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode gitconfig: %w", err)
	}
	if err := m.fs.WriteFile(m.path, buf.Bytes(), perm); err != nil {
		return nil, fmt.Errorf("write %s: %w", m.path, err)
	}

	for _, change := range changes {
		m.logger.Debug("set git config", ports.F("key", change.Key), ports.F("value", change.New))
	}
	return changes, nil
}

func (m *Merger) load() (*ini.File, bool, error) {
	if !m.fs.Exists(m.path) {
		return ini.Empty(), false, nil
	}
	data, err := m.fs.ReadFile(m.path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", m.path, err)
	}
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", m.path, err)
	}
	return cfg, true, nil
}

// desiredKeys flattens the identity into section-qualified keys, each
// validated before it can reach the config file.
func desiredKeys(identity profile.GitIdentity) (map[string]string, error) {
	desired := make(map[string]string)
	if identity.UserName != "" {
		desired["user.name"] = identity.UserName
	}
	if identity.UserEmail != "" {
		desired["user.email"] = identity.UserEmail
	}
	for key, value := range identity.Defaults {
		if value == "" {
			continue
		}
		desired[key] = value
	}

	for key, value := range desired {
		if !strings.Contains(key, ".") {
			return nil, fmt.Errorf("git config key %q must be section.key", key)
		}
		if err := validation.ValidateGitConfigValue(value); err != nil {
			return nil, fmt.Errorf("git config %s: %w", key, err)
		}
	}
	return desired, nil
}

// splitKey splits "init.defaultBranch" into ("init", "defaultBranch").
// Only the first dot separates the section.
func splitKey(key string) (string, string) {
	idx := strings.Index(key, ".")
	return key[:idx], key[idx+1:]
}
