// Package integration exercises rigup end to end: journals, snapshots,
// and provider writes land on a real filesystem under a throwaway home
// directory, and only external commands are answered by a mock runner.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/rigup/internal/app"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/domain/platform"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/testutil"
	"github.com/felixgeelhaar/rigup/internal/testutil/mocks"
)

// Harness wires a rigup App against a temp directory tree.
//
// NewHarness points $HOME at the temp home so that ~ expansion stays
// inside the sandbox, which means harness tests must not call
// t.Parallel.
type Harness struct {
	T        *testing.T
	TempDir  string
	HomeDir  string
	StateDir string
	Runner   *mocks.CommandRunner

	app         *app.App
	profilePath string
}

// NewHarness creates a harness with an empty home and state directory.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	tempDir := t.TempDir()
	homeDir := filepath.Join(tempDir, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("failed to create home directory: %v", err)
	}
	t.Setenv("HOME", homeDir)

	runner := mocks.NewCommandRunner()
	h := &Harness{
		T:        t,
		TempDir:  tempDir,
		HomeDir:  homeDir,
		StateDir: filepath.Join(tempDir, "state"),
		Runner:   runner,
	}
	h.app = app.New(app.Options{
		Runner:   runner,
		Platform: platform.New(platform.OSLinux, "amd64"),
		Paths:    platform.NewPathsAt(h.StateDir),
	})
	return h
}

// App returns the application under test.
func (h *Harness) App() *app.App {
	return h.app
}

// WriteProfile writes the profile to disk and makes it the default for
// later Setup and Verify calls on this harness.
func (h *Harness) WriteProfile(b *testutil.ProfileBuilder) string {
	h.T.Helper()

	path := filepath.Join(h.TempDir, "profile.yaml")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		h.T.Fatalf("failed to write profile: %v", err)
	}
	h.profilePath = path
	return path
}

// Setup runs one orchestrated setup against the written profile and
// fails the test on config or persistence errors. Step failures stay
// in the summary, which is what the tests assert on.
func (h *Harness) Setup(ctx context.Context, opts app.SetupOptions) *execution.Summary {
	h.T.Helper()

	if opts.Profile == "" {
		opts.Profile = h.profilePath
	}
	summary, err := h.app.Setup(ctx, opts)
	if err != nil {
		h.T.Fatalf("setup failed: %v", err)
	}
	return summary
}

// HomePath resolves a path inside the harness home directory.
func (h *Harness) HomePath(rel string) string {
	return filepath.Join(h.HomeDir, rel)
}

// SeedHomeFile writes a file under the home directory, creating parent
// directories as needed, and returns its absolute path.
func (h *Harness) SeedHomeFile(rel, content string) string {
	h.T.Helper()

	path := h.HomePath(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.T.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.T.Fatalf("failed to seed %s: %v", rel, err)
	}
	return path
}

// SeedHomeDir creates a directory under the home directory.
func (h *Harness) SeedHomeDir(rel string) string {
	h.T.Helper()

	path := h.HomePath(rel)
	if err := os.MkdirAll(path, 0o755); err != nil {
		h.T.Fatalf("failed to create %s: %v", rel, err)
	}
	return path
}

// SessionsDir returns where this platform's journals land.
func (h *Harness) SessionsDir() string {
	return h.app.Paths().SessionsDir(h.app.Platform().DefaultProfileName())
}

// ArchiveDir returns where superseded journals are moved.
func (h *Harness) ArchiveDir() string {
	return h.app.Paths().SessionArchiveDir(h.app.Platform().DefaultProfileName())
}

// ManagerAvailable registers the dpkg probe the apt manager check runs.
func (h *Harness) ManagerAvailable() {
	h.Runner.AddSuccess("dpkg", []string{"--version"},
		"Debian 'dpkg' package management program version 1.22.6")
}

// PackagePresent registers name as installed. Registering the same
// name again overwrites an earlier PackageAbsent, which is how tests
// model the dpkg database changing under the run.
func (h *Harness) PackagePresent(name, version string) {
	h.Runner.AddSuccess("dpkg-query",
		[]string{"-W", "-f=${Package}\t${Version}\t${db:Status-Status}\n", name},
		name+"\t"+version+"\tinstalled\n")
}

// PackageAbsent registers name as not installed.
func (h *Harness) PackageAbsent(name string) {
	h.Runner.AddFailure("dpkg-query",
		[]string{"-W", "-f=${Package}\t${Version}\t${db:Status-Status}\n", name},
		1, "dpkg-query: no packages found matching "+name)
}

// InstallSucceeds registers a successful apt-get install for name.
func (h *Harness) InstallSucceeds(name string) {
	h.Runner.AddSuccess("sudo", []string{"apt-get", "install", "-y", name}, "")
}

// RemoveSucceeds registers a successful apt-get remove for name.
func (h *Harness) RemoveSucceeds(name string) {
	h.Runner.AddSuccess("sudo", []string{"apt-get", "remove", "-y", name}, "")
}

// InstallCalls counts how many times the install command ran for name.
func (h *Harness) InstallCalls(name string) int {
	count := 0
	for _, call := range h.Runner.Calls() {
		if call.Command == "sudo" && len(call.Args) == 4 &&
			call.Args[0] == "apt-get" && call.Args[1] == "install" && call.Args[3] == name {
			count++
		}
	}
	return count
}

// interruptAfter cancels the run once the given step's outcome is
// durable, leaving a resumable session behind.
func interruptAfter(cancel context.CancelFunc, id steps.ID) execution.Sink {
	return execution.SinkFunc(func(ev execution.Event) {
		if ev.Kind == execution.EventStepFinished && ev.StepID == id {
			cancel()
		}
	})
}

func stepLine(t *testing.T, summary *execution.Summary, id steps.ID) execution.StepLine {
	t.Helper()

	for _, line := range summary.Steps {
		if line.StepID == id {
			return line
		}
	}
	t.Fatalf("summary has no line for step %s", id)
	return execution.StepLine{}
}
