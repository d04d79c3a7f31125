// Package app wires profiles, providers, sessions, and the
// orchestrator into the operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/felixgeelhaar/rigup/internal/adapters/command"
	"github.com/felixgeelhaar/rigup/internal/adapters/filesystem"
	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/domain/platform"
	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/domain/session"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/domain/verify"
	"github.com/felixgeelhaar/rigup/internal/ports"
)

// ErrUsage marks flag combinations rigup rejects before doing any work.
var ErrUsage = errors.New("invalid usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// App is the application facade behind every rigup command.
type App struct {
	fs       ports.FileSystem
	runner   ports.CommandRunner
	logger   ports.Logger
	plat     *platform.Platform
	paths    platform.Paths
	settings profile.Settings
}

// Options configure an App. Zero fields fall back to the real
// environment, which is what cmd/rigup uses; tests inject mocks.
type Options struct {
	FS       ports.FileSystem
	Runner   ports.CommandRunner
	Logger   ports.Logger
	Platform *platform.Platform
	Paths    platform.Paths
	Settings profile.Settings
}

// New creates an App.
func New(opts Options) *App {
	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOSFileSystem()
	}
	runner := opts.Runner
	if runner == nil {
		runner = command.NewRealRunner()
	}
	logger := opts.Logger
	if logger == nil {
		logger = ports.NopLogger()
	}
	plat := opts.Platform
	if plat == nil {
		plat = platform.Detect()
	}
	paths := opts.Paths
	if paths.Root() == "" {
		if opts.Settings.StateDir != "" {
			paths = platform.NewPathsAt(ports.ExpandPath(opts.Settings.StateDir))
		} else {
			paths = platform.NewPaths()
		}
	}
	return &App{
		fs:       fs,
		runner:   runner,
		logger:   logger,
		plat:     plat,
		paths:    paths,
		settings: opts.Settings,
	}
}

// Platform returns the detected platform.
func (a *App) Platform() *platform.Platform {
	return a.plat
}

// Paths returns the state paths in use.
func (a *App) Paths() platform.Paths {
	return a.paths
}

// LoadProfile resolves a profile name (empty means the platform
// default) and loads it. A profile that targets another platform is
// rejected; applying a macOS profile to a Linux box helps nobody.
func (a *App) LoadProfile(name string) (*profile.Profile, error) {
	if name == "" {
		name = a.plat.DefaultProfileName()
	}
	path := platform.ProfilePath(name)

	prof, err := profile.NewLoader(a.fs).Load(path)
	if err != nil {
		return nil, err
	}
	if !platformMatches(prof.Platform(), a.plat) {
		return nil, profile.NewPlatformMismatchError(prof.Platform(), a.plat.String())
	}
	return prof, nil
}

// platformMatches reports whether the declared platform is plausible
// here: "ubuntu-24.04" matches an Ubuntu machine, "darwin" does not
// match a Linux one.
func platformMatches(declared string, plat *platform.Platform) bool {
	declared = strings.ToLower(declared)
	for _, candidate := range []string{string(plat.OS()), plat.DefaultProfileName()} {
		if candidate != "" && strings.HasPrefix(declared, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}

// PlanOptions are the step-selection flags shared by setup and steps.
type PlanOptions struct {
	Skip     []string
	AppsOnly bool
}

// Plan resolves the execution plan for a loaded profile.
func (a *App) Plan(prof *profile.Profile, opts PlanOptions) (*steps.Plan, error) {
	graph, err := BuildGraph(prof, GraphOptions{})
	if err != nil {
		return nil, err
	}
	sel, err := buildSelection(opts)
	if err != nil {
		return nil, err
	}
	return steps.Resolve(graph, sel)
}

// ListSteps loads the profile and resolves the plan without executing
// anything.
func (a *App) ListSteps(profileName string, opts PlanOptions) (*steps.Plan, error) {
	prof, err := a.LoadProfile(profileName)
	if err != nil {
		return nil, err
	}
	return a.Plan(prof, opts)
}

func buildSelection(opts PlanOptions) (steps.Selection, error) {
	sel := steps.NewSelection()
	for _, raw := range opts.Skip {
		id, err := steps.NewID(raw)
		if err != nil {
			return sel, usageError("invalid step id %q", raw)
		}
		if !knownStep(id) {
			return sel, usageError("unknown step %q", raw)
		}
		sel = sel.WithSkip(id)
	}
	if opts.AppsOnly {
		sel = sel.WithOnly(StepApps)
	}
	return sel, nil
}

func knownStep(id steps.ID) bool {
	for _, known := range StepIDs() {
		if known == id {
			return true
		}
	}
	return false
}

// SetupOptions configure one setup run.
type SetupOptions struct {
	Profile     string
	Resume      bool
	NoResume    bool
	DryRun      bool
	NoBackup    bool
	Skip        []string
	AppsOnly    bool
	Concurrency int
	Sink        execution.Sink
}

// Setup runs the orchestrated setup. The returned error reports
// config, usage, and persistence failures; step failures live in the
// summary and its exit code.
func (a *App) Setup(ctx context.Context, opts SetupOptions) (*execution.Summary, error) {
	if opts.Resume && opts.NoResume {
		return nil, usageError("--resume and --no-resume are mutually exclusive")
	}
	if opts.Resume && (len(opts.Skip) > 0 || opts.AppsOnly) {
		return nil, usageError("step selection flags cannot change a resumed session's plan")
	}

	prof, err := a.LoadProfile(opts.Profile)
	if err != nil {
		return nil, err
	}

	logger := a.logger
	sink := opts.Sink
	if sink == nil {
		sink = execution.NopSink()
	}

	// Dry runs swap every mutating surface for a recording or no-op
	// variant; the rest of the pipeline is identical, which is what
	// makes the preview accurate.
	fs := a.fs
	if opts.DryRun {
		fs = filesystem.NewDryRunFileSystem(a.fs)
	}
	reg := BuildRegistry(prof, a.plat, a.runner, fs, logger)
	if opts.DryRun {
		reg.Decorate(func(p capability.Provider) capability.Provider {
			return capability.NewDryRun(p, logger)
		})
	}

	graph, err := BuildGraph(prof, GraphOptions{
		Workers: a.workers(opts.Concurrency),
		Sink:    sink,
	})
	if err != nil {
		return nil, err
	}
	sel, err := buildSelection(PlanOptions{Skip: opts.Skip, AppsOnly: opts.AppsOnly})
	if err != nil {
		return nil, err
	}
	plan, err := steps.Resolve(graph, sel)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sessionsDir := a.paths.SessionsDir(a.plat.DefaultProfileName())

	resumed, err := a.resolveResume(sessionsDir, opts)
	if err != nil {
		return nil, err
	}

	sessionID := session.NewSessionID(start)
	if resumed != nil {
		if err := planMatchesSession(plan, resumed); err != nil {
			return nil, err
		}
		sessionID = resumed.ID
	}

	var journal *session.Journal
	if !opts.DryRun {
		if resumed != nil {
			journal, err = session.Open(resumed.Path())
		} else {
			journal, err = session.Begin(sessionsDir, session.StartInfo{
				ID:        sessionID,
				Platform:  a.plat.DefaultProfileName(),
				Profile:   prof.Source(),
				Order:     orderStrings(plan),
				StartedAt: start,
			})
		}
		if err != nil {
			return nil, err
		}
	}

	var snapshots *session.SnapshotStore
	if !opts.DryRun && !opts.NoBackup {
		snapshots = session.NewSnapshotStore(a.fs, a.paths.SnapshotsDir(sessionID))
	}

	rc := steps.NewRunContext(ctx).
		WithLogger(logger).
		WithRunner(a.runner).
		WithFS(fs).
		WithProviders(reg).
		WithDryRun(opts.DryRun)

	orch, err := execution.New(execution.Options{
		Plan:       plan,
		RunContext: rc,
		SessionID:  sessionID,
		Journal:    journal,
		Snapshots:  snapshots,
		Resumed:    resumed,
		Sink:       sink,
		Logger:     logger,
	})
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		return nil, err
	}

	logger.Info("starting setup",
		ports.F("session", sessionID),
		ports.F("profile", prof.Source()),
		ports.F("steps", plan.Len()),
		ports.F("dry_run", opts.DryRun),
		ports.F("resumed", resumed != nil))
	return orch.Run(ctx)
}

// resolveResume decides which prior session, if any, this run
// continues. --no-resume archives whatever is resumable; with neither
// flag a lingering session is only warned about.
func (a *App) resolveResume(sessionsDir string, opts SetupOptions) (*session.Session, error) {
	switch {
	case opts.Resume:
		prior, err := session.LatestResumable(sessionsDir)
		if err != nil {
			return nil, err
		}
		if prior == nil {
			a.logger.Info("no resumable session, starting fresh")
		}
		return prior, nil

	case opts.NoResume:
		if opts.DryRun {
			return nil, nil
		}
		archived, err := session.ArchiveAll(sessionsDir)
		if err != nil {
			return nil, err
		}
		if archived > 0 {
			a.logger.Info("archived prior sessions", ports.F("count", archived))
		}
		return nil, nil

	default:
		prior, err := session.LatestResumable(sessionsDir)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			a.logger.Warn("unfinished session exists; pass --resume to continue it",
				ports.F("session", prior.ID))
		}
		return nil, nil
	}
}

// planMatchesSession guards resume against a changed step set: the
// plan persisted in the session header must still be the plan this
// binary resolves.
func planMatchesSession(plan *steps.Plan, sess *session.Session) error {
	order := orderStrings(plan)
	if len(order) != len(sess.Order) {
		return fmt.Errorf("session %s planned %d steps but this run resolves %d; archive it with 'rigup sessions clear'",
			sess.ID, len(sess.Order), len(order))
	}
	for i, id := range order {
		if id != sess.Order[i] {
			return fmt.Errorf("session %s planned step %q at position %d, this run resolves %q; archive it with 'rigup sessions clear'",
				sess.ID, sess.Order[i], i, id)
		}
	}
	return nil
}

func orderStrings(plan *steps.Plan) []string {
	ids := plan.Order()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// workers derives the parallel batch bound: the explicit flag wins,
// then rigup.toml, then the CPU count capped at the pool default.
func (a *App) workers(flag int) int {
	if flag > 0 {
		return flag
	}
	if a.settings.Concurrency > 0 {
		return a.settings.Concurrency
	}
	n := runtime.NumCPU()
	if n > execution.DefaultWorkers {
		n = execution.DefaultWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Status returns the latest session for this platform, terminal or
// not, or nil when no run was ever recorded.
func (a *App) Status() (*session.Session, error) {
	return session.Latest(a.paths.SessionsDir(a.plat.DefaultProfileName()))
}

// SessionsClear archives every non-terminal session and reports how
// many it moved. Journals are never deleted; the snapshot directories
// of the archived sessions are, since a session that left the sessions
// directory can no longer roll back.
func (a *App) SessionsClear() (int, error) {
	dir := a.paths.SessionsDir(a.plat.DefaultProfileName())
	stale, err := session.List(dir)
	if err != nil {
		return 0, err
	}
	archived, err := session.ArchiveAll(dir)
	if err != nil {
		return 0, err
	}
	for _, sess := range stale {
		if sess.IsTerminal() {
			continue
		}
		snapDir := a.paths.SnapshotsDir(sess.ID)
		if !a.fs.Exists(snapDir) {
			continue
		}
		if err := a.fs.RemoveAll(snapDir); err != nil {
			a.logger.Warn("purge snapshots",
				ports.F("session", sess.ID),
				ports.F("error", err.Error()))
		}
	}
	return archived, nil
}

// Verify runs the read-only end-state checks against the profile.
func (a *App) Verify(ctx context.Context, profileName string) (*verify.Report, error) {
	prof, err := a.LoadProfile(profileName)
	if err != nil {
		return nil, err
	}
	reg := BuildRegistry(prof, a.plat, a.runner, a.fs, a.logger)
	return verify.New(reg, a.runner, a.fs, a.logger).Verify(ctx, prof)
}
