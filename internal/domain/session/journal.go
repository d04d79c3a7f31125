package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

// Journal record types, one JSON object per line.
type recordType string

const (
	recSessionStarted  recordType = "session-started"
	recStepStarted     recordType = "step-started"
	recStepFinished    recordType = "step-finished"
	recSessionFinished recordType = "session-finished"
)

type record struct {
	Type recordType `json:"type"`
	Time time.Time  `json:"time"`

	// session-started fields
	SessionID string   `json:"session_id,omitempty"`
	Platform  string   `json:"platform,omitempty"`
	Profile   string   `json:"profile,omitempty"`
	Order     []string `json:"order,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty"`

	// step fields
	StepID     string       `json:"step_id,omitempty"`
	Outcome    string       `json:"outcome,omitempty"`
	Error      string       `json:"error,omitempty"`
	Items      []itemRecord `json:"items,omitempty"`
	DurationMS int64        `json:"duration_ms,omitempty"`

	// session-finished field
	Terminal string `json:"terminal,omitempty"`
}

type itemRecord struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// StartInfo describes a new session.
type StartInfo struct {
	ID        string
	Platform  string
	Profile   string
	Order     []string
	DryRun    bool
	StartedAt time.Time
}

// Journal appends session records to one JSONL file. Every append is
// flushed and fsync'd before it returns: once a call succeeds, the
// record survives a crash.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	sess *Session
}

// Begin creates the journal file for a new session and writes the
// header record.
func Begin(dir string, info StartInfo) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create sessions dir: %v", ErrPersistence, err)
	}

	path := filepath.Join(dir, info.ID+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create journal %s: %v", ErrPersistence, path, err)
	}

	sess := newSession(info.ID, info.Platform, info.Profile, info.StartedAt, info.Order, info.DryRun)
	sess.path = path

	j := &Journal{file: file, sess: sess}
	err = j.append(record{
		Type:      recSessionStarted,
		Time:      info.StartedAt.UTC(),
		SessionID: info.ID,
		Platform:  info.Platform,
		Profile:   info.Profile,
		Order:     info.Order,
		DryRun:    info.DryRun,
	})
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	return j, nil
}

// Open reopens a live session's journal for appending, replaying its
// records first.
func Open(path string) (*Journal, error) {
	sess, err := Load(path)
	if err != nil {
		return nil, err
	}
	if sess.IsTerminal() {
		return nil, fmt.Errorf("%w: session %s already ended (%s)", ErrPersistence, sess.ID, sess.Terminal)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open journal %s: %v", ErrPersistence, path, err)
	}
	return &Journal{file: file, sess: sess}, nil
}

// Session returns the live replayed state behind this journal.
func (j *Journal) Session() *Session {
	return j.sess
}

// StepStarted records that a step began executing.
func (j *Journal) StepStarted(stepID steps.ID) error {
	err := j.append(record{
		Type:   recStepStarted,
		Time:   time.Now().UTC(),
		StepID: stepID.String(),
	})
	if err != nil {
		return err
	}
	j.sess.started[stepID.String()] = true
	return nil
}

// StepFinished records a step outcome. The cursor only moves once
// this returns nil.
func (j *Journal) StepFinished(res steps.Result) error {
	rec := recordFromResult(res)
	items := make([]itemRecord, len(rec.Items))
	for i, it := range rec.Items {
		items[i] = itemRecord(it)
	}
	err := j.append(record{
		Type:       recStepFinished,
		Time:       rec.FinishedAt,
		StepID:     rec.StepID,
		Outcome:    string(rec.Outcome),
		Error:      rec.Error,
		Items:      items,
		DurationMS: rec.Duration.Milliseconds(),
	})
	if err != nil {
		return err
	}
	j.sess.finished[rec.StepID] = rec
	return nil
}

// Finish writes the terminal record and closes the journal.
func (j *Journal) Finish(terminal string) error {
	now := time.Now().UTC()
	err := j.append(record{
		Type:     recSessionFinished,
		Time:     now,
		Terminal: terminal,
	})
	if err != nil {
		return err
	}
	j.sess.Terminal = terminal
	j.sess.FinishedAt = now
	return j.Close()
}

// Close releases the file handle without writing a terminal record;
// the session stays resumable.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

func (j *Journal) append(rec record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("%w: journal closed", ErrPersistence)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrPersistence, err)
	}
	line = append(line, '\n')

	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf("%w: write record: %v", ErrPersistence, err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync journal: %v", ErrPersistence, err)
	}
	return nil
}

// Load replays one journal file into a Session. A torn trailing line
// (the process died mid-write) is ignored; everything fsync'd before
// it is kept.
func Load(path string) (*Session, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer file.Close()

	var sess *Session
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			break
		}

		switch rec.Type {
		case recSessionStarted:
			sess = newSession(rec.SessionID, rec.Platform, rec.Profile, rec.Time, rec.Order, rec.DryRun)
			sess.path = path
		case recStepStarted:
			if sess != nil {
				sess.started[rec.StepID] = true
			}
		case recStepFinished:
			if sess != nil {
				sr := StepRecord{
					StepID:     rec.StepID,
					Outcome:    steps.Outcome(rec.Outcome),
					Error:      rec.Error,
					Duration:   time.Duration(rec.DurationMS) * time.Millisecond,
					FinishedAt: rec.Time,
				}
				for _, it := range rec.Items {
					sr.Items = append(sr.Items, ItemRecord(it))
				}
				sess.finished[rec.StepID] = sr
			}
		case recSessionFinished:
			if sess != nil {
				sess.Terminal = rec.Terminal
				sess.FinishedAt = rec.Time
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal %s: %w", path, err)
	}
	if sess == nil {
		return nil, fmt.Errorf("journal %s has no session header", path)
	}
	return sess, nil
}

// List loads every session journal in dir, newest first. The archive
// subdirectory is not included.
func List(dir string) ([]*Session, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions dir %s: %w", dir, err)
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		sess, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			// One unreadable journal must not hide the others.
			continue
		}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, k int) bool {
		return sessions[i].StartedAt.After(sessions[k].StartedAt)
	})
	return sessions, nil
}

// LatestResumable returns the newest non-terminal session in dir, or
// nil when every session ended.
func LatestResumable(dir string) (*Session, error) {
	sessions, err := List(dir)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if !sess.IsTerminal() {
			return sess, nil
		}
	}
	return nil, nil
}

// Latest returns the newest session in dir regardless of state, or
// nil when there are none.
func Latest(dir string) (*Session, error) {
	sessions, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// Archive moves a session journal into the archive subdirectory.
// Journals are never deleted.
func Archive(dir string, sess *Session) error {
	archiveDir := filepath.Join(dir, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("%w: create archive dir: %v", ErrPersistence, err)
	}
	target := filepath.Join(archiveDir, filepath.Base(sess.path))
	if err := os.Rename(sess.path, target); err != nil {
		return fmt.Errorf("%w: archive %s: %v", ErrPersistence, sess.path, err)
	}
	sess.path = target
	return nil
}

// ArchiveAll archives every non-terminal session in dir and returns
// how many it moved.
func ArchiveAll(dir string) (int, error) {
	sessions, err := List(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, sess := range sessions {
		if sess.IsTerminal() {
			continue
		}
		if err := Archive(dir, sess); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
