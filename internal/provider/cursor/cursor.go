// Package cursor merges declared editor settings into Cursor's
// settings.json. Keys the profile does not declare are preserved, and
// nested objects are merged rather than replaced.
package cursor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/rigup/internal/ports"
)

// Change records one settings key the merge rewrote. Old and New hold
// JSON-rendered values; Old is empty when the key was absent.
type Change struct {
	Key string
	Old string
	New string
}

// Merger applies profile editor settings to a settings.json file.
type Merger struct {
	fs     ports.FileSystem
	path   string
	logger ports.Logger
}

// New creates a Merger writing to the given settings.json path.
func New(fs ports.FileSystem, path string, logger ports.Logger) *Merger {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Merger{fs: fs, path: ports.ExpandPath(path), logger: logger}
}

// Path returns the resolved settings file path.
func (m *Merger) Path() string {
	return m.path
}

// Apply merges the settings into the file and reports the keys it
// changed. When every declared key already matches, the file is not
// touched. A settings file that is not valid JSON is an error, never
// overwritten.
func (m *Merger) Apply(settings map[string]any) ([]Change, error) {
	if len(settings) == 0 {
		return nil, nil
	}
	if m.path == "" {
		return nil, fmt.Errorf("no editor settings path configured")
	}

	current, existed, err := m.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var changes []Change
	for _, key := range keys {
		want := settings[key]
		old, hasOld := current[key]

		merged := want
		if oldMap, ok := old.(map[string]any); ok {
			if wantMap, ok := want.(map[string]any); ok {
				merged = deepMerge(oldMap, wantMap)
			}
		}
		if hasOld && jsonEqual(old, merged) {
			continue
		}

		current[key] = merged
		change := Change{Key: key, New: renderJSON(merged)}
		if hasOld {
			change.Old = renderJSON(old)
		}
		changes = append(changes, change)
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

	out, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	out = append(out, '\n')

	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(m.path), err)
	}
	if err := m.fs.WriteFile(m.path, out, perm); err != nil {
		return nil, fmt.Errorf("write %s: %w", m.path, err)
	}

	for _, change := range changes {
		m.logger.Debug("set editor setting", ports.F("key", change.Key), ports.F("value", change.New))
	}
	return changes, nil
}

func (m *Merger) load() (map[string]any, bool, error) {
	current := make(map[string]any)
	if !m.fs.Exists(m.path) {
		return current, false, nil
	}

	data, err := m.fs.ReadFile(m.path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", m.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return current, true, nil
	}
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", m.path, err)
	}
	return current, true, nil
}

// deepMerge overlays src onto dst without mutating either. Nested maps
// merge recursively; any other value in src wins.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if dstMap, ok := out[k].(map[string]any); ok {
			if srcMap, ok := v.(map[string]any); ok {
				out[k] = deepMerge(dstMap, srcMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// jsonEqual compares two values by their canonical JSON encoding,
// which smooths over YAML ints meeting JSON float64s.
func jsonEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

func renderJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
