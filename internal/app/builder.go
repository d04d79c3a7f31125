package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/domain/platform"
	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/domain/verify"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/provider/apt"
	"github.com/felixgeelhaar/rigup/internal/provider/brew"
	"github.com/felixgeelhaar/rigup/internal/provider/cursor"
	"github.com/felixgeelhaar/rigup/internal/provider/fonts"
	"github.com/felixgeelhaar/rigup/internal/provider/gitconfig"
	"github.com/felixgeelhaar/rigup/internal/provider/repos"
	"github.com/felixgeelhaar/rigup/internal/provider/sshkeys"
	"github.com/felixgeelhaar/rigup/internal/provider/winget"
)

// The setup steps, in declaration order. Declaration order breaks ties
// in the topological sort, so this order is what a full run executes.
var (
	StepDevEnv = steps.MustID("devenv")
	StepFonts  = steps.MustID("fonts")
	StepApps   = steps.MustID("apps")
	StepGit    = steps.MustID("git")
	StepSSH    = steps.MustID("ssh")
	StepCursor = steps.MustID("cursor")
	StepRepos  = steps.MustID("repos")
	StepVerify = steps.MustID("verify")
)

// StepIDs returns every setup step in declaration order.
func StepIDs() []steps.ID {
	return []steps.ID{
		StepDevEnv, StepFonts, StepApps, StepGit,
		StepSSH, StepCursor, StepRepos, StepVerify,
	}
}

// BuildRegistry creates a provider for every package manager the
// profile declares, plus the fonts and repos providers. Managers the
// profile does not mention are not registered, so a Linux profile
// never constructs a winget provider.
func BuildRegistry(prof *profile.Profile, plat *platform.Platform, runner ports.CommandRunner, fs ports.FileSystem, logger ports.Logger) *capability.Registry {
	reg := capability.NewRegistry()

	for _, mgr := range prof.Managers() {
		switch mgr.Kind {
		case capability.KindApt:
			reg.Register(apt.New(runner, logger))
		case capability.KindBrew:
			reg.Register(brew.New(runner, logger))
		case capability.KindWinget:
			reg.Register(winget.New(runner, plat, logger))
		}
	}

	if prof.Paths().FontsDir != "" {
		reg.Register(fonts.New(nil, fs, runner, prof.Paths().FontsDir, logger))
	}
	reg.Register(repos.New(runner, fs, logger))

	return reg
}

// GraphOptions tune graph construction.
type GraphOptions struct {
	// Workers bounds the parallel batches. Values below 1 mean
	// execution.DefaultWorkers.
	Workers int

	// Sink receives per-item progress events from parallel batches.
	Sink execution.Sink
}

// BuildGraph binds the profile to the eight setup steps and returns
// the prerequisite graph. The step closures read everything else from
// the RunContext at execution time, which is how dry-run swaps in its
// recording filesystem and no-op providers without the graph noticing.
func BuildGraph(prof *profile.Profile, opts GraphOptions) (*steps.Graph, error) {
	sink := opts.Sink
	if sink == nil {
		sink = execution.NopSink()
	}
	pool := execution.NewPool(opts.Workers)

	defs := []*steps.Definition{
		{
			StepID:     StepDevEnv,
			StepLabel:  "Development packages",
			IsCritical: true,
			RunFunc:    managerBatch(StepDevEnv, prof, prof.Packages, pool, sink),
			UndoFunc:   managerUndo(StepDevEnv, prof),
		},
		{
			StepID:    StepFonts,
			StepLabel: "Fonts",
			RunFunc:   fontBatch(prof, pool, sink),
			UndoFunc:  fontUndo(),
		},
		{
			StepID:    StepApps,
			StepLabel: "Applications",
			Needs:     []steps.ID{StepDevEnv},
			RunFunc:   managerBatch(StepApps, prof, prof.Apps, pool, sink),
			UndoFunc:  managerUndo(StepApps, prof),
		},
		{
			StepID:     StepGit,
			StepLabel:  "Git configuration",
			Needs:      []steps.ID{StepDevEnv},
			IsCritical: true,
			RunFunc:    gitRun(prof),
		},
		{
			StepID:    StepSSH,
			StepLabel: "SSH keys",
			RunFunc:   sshRun(prof),
		},
		{
			StepID:    StepCursor,
			StepLabel: "Editor settings",
			Needs:     []steps.ID{StepApps},
			RunFunc:   cursorRun(prof),
		},
		{
			StepID:    StepRepos,
			StepLabel: "Repository clones",
			Needs:     []steps.ID{StepGit, StepSSH},
			RunOnce:   true,
			RunFunc:   reposRun(prof, sink),
		},
		{
			StepID:    StepVerify,
			StepLabel: "Verification",
			Needs:     []steps.ID{StepDevEnv, StepFonts, StepApps, StepGit, StepSSH, StepCursor, StepRepos},
			RunFunc:   verifyRun(prof),
		},
	}

	g := steps.NewGraph()
	for _, def := range defs {
		if err := g.Add(def); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// pickManager returns the first declared manager with a registered
// provider. The declaration order in the profile is a preference list.
func pickManager(reg *capability.Registry, prof *profile.Profile) (capability.Kind, capability.Provider, error) {
	for _, mgr := range prof.Managers() {
		if reg == nil || !reg.Has(mgr.Kind) {
			continue
		}
		prov, err := reg.Get(mgr.Kind)
		if err != nil {
			continue
		}
		return mgr.Kind, prov, nil
	}
	return "", nil, fmt.Errorf("no package manager provider available (profile declares %d managers)", len(prof.Managers()))
}

// managerBatch runs one package list through the chosen manager on the
// worker pool. Item failures stay inside the outcome list; the step
// outcome is the aggregate.
func managerBatch(stepID steps.ID, prof *profile.Profile, list func() []profile.Item, pool *execution.Pool, sink execution.Sink) func(steps.RunContext) steps.Result {
	return func(rc steps.RunContext) steps.Result {
		declared := list()
		if len(declared) == 0 {
			return steps.NewResult(stepID, steps.OutcomeSuccess).WithMessage("nothing declared")
		}

		kind, prov, err := pickManager(rc.Providers(), prof)
		if err != nil {
			return steps.FailedResult(stepID, err)
		}

		items := make([]capability.Item, len(declared))
		for i, it := range declared {
			item := capability.NewItem(it.NameFor(kind))
			if it.MinVersion != "" {
				item = item.WithAttr(capability.AttrMinVersion, it.MinVersion)
			}
			items[i] = item
		}

		results := pool.Run(rc.Context(), items, func(ctx context.Context, item capability.Item) capability.ItemResult {
			return capability.EnsureInstalled(ctx, prov, item)
		}, itemPublisher(stepID, sink))
		return steps.AggregateItems(stepID, results)
	}
}

// managerUndo removes the items the recorded run actually installed.
// Removal runs sequentially: package managers lock their own databases
// and rollback is not the place to fight over them.
func managerUndo(stepID steps.ID, prof *profile.Profile) func(steps.RunContext, steps.Result) steps.Result {
	return func(rc steps.RunContext, applied steps.Result) steps.Result {
		installed := applied.InstalledItems()
		if len(installed) == 0 {
			return steps.NewResult(stepID, steps.OutcomeSuccess)
		}
		_, prov, err := pickManager(rc.Providers(), prof)
		if err != nil {
			rc.Logger().Warn("cannot undo step", ports.F("step", stepID.String()), ports.F("error", err.Error()))
			return steps.FailedResult(stepID, err)
		}
		return removeInstalled(rc, stepID, prov, installed)
	}
}

func fontBatch(prof *profile.Profile, pool *execution.Pool, sink execution.Sink) func(steps.RunContext) steps.Result {
	return func(rc steps.RunContext) steps.Result {
		declared := prof.Fonts()
		if len(declared) == 0 {
			return steps.NewResult(StepFonts, steps.OutcomeSuccess).WithMessage("nothing declared")
		}

		prov, err := rc.Providers().Get(capability.KindFonts)
		if err != nil {
			return steps.FailedResult(StepFonts,
				fmt.Errorf("profile declares fonts but no fonts_dir path: %w", err))
		}

		items := make([]capability.Item, len(declared))
		for i, f := range declared {
			items[i] = capability.NewItem(f.Name).WithAttr(capability.AttrURL, f.URL)
		}

		results := pool.Run(rc.Context(), items, func(ctx context.Context, item capability.Item) capability.ItemResult {
			return capability.EnsureInstalled(ctx, prov, item)
		}, itemPublisher(StepFonts, sink))
		return steps.AggregateItems(StepFonts, results)
	}
}

func fontUndo() func(steps.RunContext, steps.Result) steps.Result {
	return func(rc steps.RunContext, applied steps.Result) steps.Result {
		installed := applied.InstalledItems()
		if len(installed) == 0 {
			return steps.NewResult(StepFonts, steps.OutcomeSuccess)
		}
		prov, err := rc.Providers().Get(capability.KindFonts)
		if err != nil {
			return steps.FailedResult(StepFonts, err)
		}
		return removeInstalled(rc, StepFonts, prov, installed)
	}
}

func gitRun(prof *profile.Profile) func(steps.RunContext) steps.Result {
	return func(rc steps.RunContext) steps.Result {
		identity := prof.Git()
		if identity.IsZero() {
			return steps.NewResult(StepGit, steps.OutcomeSuccess).WithMessage("nothing declared")
		}

		merger := gitconfig.New(rc.FS(), gitconfig.DefaultPath, rc.Logger())
		if err := rc.Backup()(merger.Path()); err != nil {
			return steps.FailedResult(StepGit, fmt.Errorf("snapshot %s: %w", merger.Path(), err))
		}
		changes, err := merger.Apply(identity)
		if err != nil {
			return steps.FailedResult(StepGit, err)
		}
		if len(changes) == 0 {
			return steps.NewResult(StepGit, steps.OutcomeSuccess).WithMessage("already configured")
		}
		return steps.NewResult(StepGit, steps.OutcomeSuccess).
			WithMessage(fmt.Sprintf("%d keys set", len(changes)))
	}
}

func sshRun(prof *profile.Profile) func(steps.RunContext) steps.Result {
	return func(rc steps.RunContext) steps.Result {
		key := prof.SSH()
		if key.IsZero() {
			return steps.NewResult(StepSSH, steps.OutcomeSuccess).WithMessage("nothing declared")
		}

		// Snapshot both paths before generation. For a fresh key the
		// snapshots record "did not exist", which is what lets rollback
		// delete it again.
		privPath, pubPath := sshkeys.KeyPaths(key)
		for _, path := range []string{privPath, pubPath} {
			if err := rc.Backup()(path); err != nil {
				return steps.FailedResult(StepSSH, fmt.Errorf("snapshot %s: %w", path, err))
			}
		}

		res, err := sshkeys.New(rc.FS(), rc.Logger()).Ensure(key)
		if err != nil {
			return steps.FailedResult(StepSSH, err)
		}
		if !res.Created {
			return steps.NewResult(StepSSH, steps.OutcomeSuccess).WithMessage("key already exists")
		}
		return steps.NewResult(StepSSH, steps.OutcomeSuccess).
			WithMessage("generated " + res.PrivatePath)
	}
}

func cursorRun(prof *profile.Profile) func(steps.RunContext) steps.Result {
	return func(rc steps.RunContext) steps.Result {
		settings := prof.Editor().Settings
		if len(settings) == 0 {
			return steps.NewResult(StepCursor, steps.OutcomeSuccess).WithMessage("nothing declared")
		}
		path := prof.Paths().EditorSettings
		if path == "" {
			return steps.FailedResult(StepCursor,
				fmt.Errorf("profile declares editor settings but no editor_settings path"))
		}

		merger := cursor.New(rc.FS(), path, rc.Logger())
		if err := rc.Backup()(merger.Path()); err != nil {
			return steps.FailedResult(StepCursor, fmt.Errorf("snapshot %s: %w", merger.Path(), err))
		}
		changes, err := merger.Apply(settings)
		if err != nil {
			return steps.FailedResult(StepCursor, err)
		}
		if len(changes) == 0 {
			return steps.NewResult(StepCursor, steps.OutcomeSuccess).WithMessage("already configured")
		}
		return steps.NewResult(StepCursor, steps.OutcomeSuccess).
			WithMessage(fmt.Sprintf("%d settings merged", len(changes)))
	}
}

// reposRun clones declared repositories one at a time. Clones hit the
// network and the disk hard enough that parallelism buys nothing, and
// sequential order keeps failures attributable.
func reposRun(prof *profile.Profile, sink execution.Sink) func(steps.RunContext) steps.Result {
	return func(rc steps.RunContext) steps.Result {
		declared := prof.Repos()
		if len(declared) == 0 {
			return steps.NewResult(StepRepos, steps.OutcomeSuccess).WithMessage("nothing declared")
		}

		prov, err := rc.Providers().Get(capability.KindRepos)
		if err != nil {
			return steps.FailedResult(StepRepos, err)
		}

		publish := itemPublisher(StepRepos, sink)
		// Cancellation is checked between clones only; a clone already
		// underway runs to completion, same as in-flight pool items.
		itemCtx := context.WithoutCancel(rc.Context())
		var results []capability.ItemResult
		for _, repo := range declared {
			if rc.Context().Err() != nil {
				break
			}
			item := capability.NewItem(filepath.Base(repo.Dest)).
				WithAttr(capability.AttrURL, repo.URL).
				WithAttr(capability.AttrDest, repo.Dest)
			if repo.Branch != "" {
				item = item.WithAttr(capability.AttrBranch, repo.Branch)
			}
			res := capability.EnsureInstalled(itemCtx, prov, item)
			publish(res)
			results = append(results, res)
		}
		return steps.AggregateItems(StepRepos, results)
	}
}

func verifyRun(prof *profile.Profile) func(steps.RunContext) steps.Result {
	return func(rc steps.RunContext) steps.Result {
		v := verify.New(rc.Providers(), rc.Runner(), rc.FS(), rc.Logger())
		rep, err := v.Verify(rc.Context(), prof)
		if err != nil {
			return steps.FailedResult(StepVerify, err)
		}

		pass, fail, unknown := rep.Counts()
		msg := fmt.Sprintf("%d passed, %d failed, %d unknown", pass, fail, unknown)
		if fail == 0 {
			return steps.NewResult(StepVerify, steps.OutcomeSuccess).WithMessage(msg)
		}
		for _, finding := range rep.Failures() {
			rc.Logger().Warn("verification mismatch", ports.F("check", finding.String()))
		}
		return steps.FailedResult(StepVerify, fmt.Errorf("%d checks failed", fail)).WithMessage(msg)
	}
}

// removeInstalled is the shared rollback path for batch steps.
func removeInstalled(rc steps.RunContext, stepID steps.ID, prov capability.Provider, installed []capability.ItemResult) steps.Result {
	undone := make([]capability.ItemResult, 0, len(installed))
	for _, prior := range installed {
		undone = append(undone, capability.EnsureRemoved(rc.Context(), prov, prior.Item))
	}
	return steps.AggregateItems(stepID, undone)
}

func itemPublisher(stepID steps.ID, sink execution.Sink) func(capability.ItemResult) {
	return func(res capability.ItemResult) {
		sink.Publish(execution.Event{
			Kind:        execution.EventItemFinished,
			Time:        time.Now(),
			StepID:      stepID,
			Item:        res.Item.Name,
			ItemOutcome: res.Outcome,
			ItemErr:     res.Err,
		})
	}
}
