package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/ports"
)

// ErrSnapshotNotFound is returned when a snapshot cannot be found.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot records the pre-mutation state of one file: its content
// (stored aside) or the fact that it did not exist.
type Snapshot struct {
	ID        string      `json:"id"`
	StepID    string      `json:"step_id"`
	Path      string      `json:"path"`
	Hash      string      `json:"hash,omitempty"`
	Size      int64       `json:"size"`
	Mode      os.FileMode `json:"mode"`
	Existed   bool        `json:"existed"`
	Seq       int         `json:"seq"`
	CreatedAt time.Time   `json:"created_at"`
	Filename  string      `json:"filename,omitempty"`
}

type snapshotIndex struct {
	Entries []Snapshot `json:"entries"`
}

// RestoreResult reports what restoring one snapshot did.
type RestoreResult struct {
	Snapshot Snapshot
	Err      error
}

// Restored reports whether the file is back in its captured state.
func (r RestoreResult) Restored() bool {
	return r.Err == nil
}

// SnapshotStore keeps pre-mutation copies of files for one session,
// under its own directory: uuid-named content files plus an
// index.json. Live files are read and written through the FileSystem
// port; the store's own files go straight to disk.
type SnapshotStore struct {
	fs       ports.FileSystem
	basePath string
	mu       sync.Mutex
}

// NewSnapshotStore creates a store rooted at basePath.
func NewSnapshotStore(fs ports.FileSystem, basePath string) *SnapshotStore {
	return &SnapshotStore{fs: fs, basePath: basePath}
}

// Capture records the current state of path on behalf of stepID,
// before the step mutates it. The first capture wins: capturing the
// same (step, path) again returns the original snapshot, so a step
// that writes a file twice still rolls back to the pre-step state.
func (s *SnapshotStore) Capture(stepID steps.ID, path string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	for i := range index.Entries {
		e := &index.Entries[i]
		if e.StepID == stepID.String() && e.Path == path {
			return e, nil
		}
	}

	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create snapshot dir: %v", ErrPersistence, err)
	}

	snap := Snapshot{
		ID:        uuid.New().String(),
		StepID:    stepID.String(),
		Path:      path,
		Seq:       len(index.Entries),
		CreatedAt: time.Now().UTC(),
	}

	if s.fs.Exists(path) {
		content, err := s.fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("snapshot read %s: %w", path, err)
		}
		mode, err := s.fs.Mode(path)
		if err != nil {
			return nil, fmt.Errorf("snapshot stat %s: %w", path, err)
		}

		snap.Existed = true
		snap.Hash = sha256Hash(content)
		snap.Size = int64(len(content))
		snap.Mode = mode
		snap.Filename = snap.ID + ".snapshot"

		contentPath := filepath.Join(s.basePath, snap.Filename)
		if err := os.WriteFile(contentPath, content, 0o600); err != nil {
			return nil, fmt.Errorf("%w: write snapshot: %v", ErrPersistence, err)
		}
	}

	index.Entries = append(index.Entries, snap)
	if err := s.saveIndex(index); err != nil {
		if snap.Filename != "" {
			os.Remove(filepath.Join(s.basePath, snap.Filename))
		}
		return nil, err
	}
	return &snap, nil
}

// List returns every snapshot in capture order.
func (s *SnapshotStore) List() ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, len(index.Entries))
	copy(out, index.Entries)
	return out, nil
}

// ByStep returns the snapshots one step captured, in capture order.
func (s *SnapshotStore) ByStep(stepID steps.ID) ([]Snapshot, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Snapshot
	for _, snap := range all {
		if snap.StepID == stepID.String() {
			out = append(out, snap)
		}
	}
	return out, nil
}

// Content returns the stored bytes of a snapshot that existed.
func (s *SnapshotStore) Content(snap Snapshot) ([]byte, error) {
	if !snap.Existed {
		return nil, fmt.Errorf("%w: %s had no content", ErrSnapshotNotFound, snap.Path)
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, snap.Filename))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: content file for %s", ErrSnapshotNotFound, snap.Path)
	}
	return data, err
}

// Restore puts one file back into its captured state: rewrites the
// captured bytes with the captured mode, or removes the file if it
// did not exist before the step ran.
func (s *SnapshotStore) Restore(snap Snapshot) error {
	if !snap.Existed {
		if !s.fs.Exists(snap.Path) {
			return nil
		}
		if err := s.fs.Remove(snap.Path); err != nil {
			return fmt.Errorf("restore remove %s: %w", snap.Path, err)
		}
		return nil
	}

	content, err := s.Content(snap)
	if err != nil {
		return err
	}
	if got := sha256Hash(content); got != snap.Hash {
		return fmt.Errorf("snapshot for %s is corrupt (hash mismatch)", snap.Path)
	}

	if dir := filepath.Dir(snap.Path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("restore mkdir %s: %w", dir, err)
		}
	}
	if err := s.fs.WriteFile(snap.Path, content, snap.Mode); err != nil {
		return fmt.Errorf("restore write %s: %w", snap.Path, err)
	}
	return nil
}

// RestoreStep restores everything one step captured, newest capture
// first. Failures are reported per snapshot, never swallowed and
// never fatal to the remaining restores.
func (s *SnapshotStore) RestoreStep(stepID steps.ID) []RestoreResult {
	snaps, err := s.ByStep(stepID)
	if err != nil {
		return []RestoreResult{{Err: err}}
	}

	results := make([]RestoreResult, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		results = append(results, RestoreResult{
			Snapshot: snaps[i],
			Err:      s.Restore(snaps[i]),
		})
	}
	return results
}

func (s *SnapshotStore) loadIndex() (*snapshotIndex, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, "index.json"))
	if os.IsNotExist(err) {
		return &snapshotIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot index: %v", ErrPersistence, err)
	}

	var index snapshotIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: parse snapshot index: %v", ErrPersistence, err)
	}
	return &index, nil
}

func (s *SnapshotStore) saveIndex(index *snapshotIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot index: %v", ErrPersistence, err)
	}
	if err := os.WriteFile(filepath.Join(s.basePath, "index.json"), data, 0o644); err != nil {
		return fmt.Errorf("%w: write snapshot index: %v", ErrPersistence, err)
	}
	return nil
}

func sha256Hash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
