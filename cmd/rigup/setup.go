package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/app"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install and configure everything the profile declares",
	Long: `Setup resolves the step graph for your profile and runs it:
package managers, fonts, applications, git identity, SSH keys, editor
settings, repository clones, and a final verification pass.

Progress is journaled per step. An interrupted run resumes with
--resume; a failed critical step restores the files it touched and
removes what it installed.

Use --dry-run to see what would happen without making changes.`,
	RunE: runSetup,
}

var (
	setupResume      bool
	setupNoResume    bool
	setupDryRun      bool
	setupNoBackup    bool
	setupListSteps   bool
	setupConcurrency int
	setupSelection   func() app.PlanOptions
)

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().BoolVar(&setupResume, "resume", false, "Continue the latest unfinished session")
	setupCmd.Flags().BoolVar(&setupNoResume, "no-resume", false, "Archive unfinished sessions and start fresh")
	setupCmd.Flags().BoolVar(&setupDryRun, "dry-run", false, "Show what would be done without making changes")
	setupCmd.Flags().BoolVar(&setupNoBackup, "no-backup", false, "Skip file snapshots; critical failures abort without rollback")
	setupCmd.Flags().BoolVar(&setupListSteps, "list-steps", false, "Print the resolved step order and exit")
	setupCmd.Flags().IntVar(&setupConcurrency, "concurrency", 0, "Parallel installs per batch (0 = auto)")
	setupSelection = addSelectionFlags(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The live display owns the terminal, so console logging is
	// diverted to the log file; --verbose switches to plain output
	// where per-item lines and debug logs can stream.
	interactive := isTerminal(os.Stdout) && !verbose
	console := io.Writer(os.Stderr)
	if interactive {
		console = io.Discard
	}

	a, settings, err := newApp(console, !setupDryRun)
	if err != nil {
		return err
	}

	planOpts := setupSelection()
	plan, err := a.ListSteps(profileFlag, planOpts)
	if err != nil {
		return err
	}

	styles := outputStyles(settings)
	if setupListSteps {
		printPlan(os.Stdout, plan, styles)
		return nil
	}

	opts := app.SetupOptions{
		Profile:     profileFlag,
		Resume:      setupResume,
		NoResume:    setupNoResume,
		DryRun:      setupDryRun,
		NoBackup:    setupNoBackup,
		Skip:        planOpts.Skip,
		AppsOnly:    planOpts.AppsOnly,
		Concurrency: setupConcurrency,
	}

	printer := tui.NewPrinter(os.Stdout).WithStyles(styles).WithVerbose(verbose)

	var summary *execution.Summary
	if interactive {
		progressOpts := tui.NewProgressOptions().
			WithPlan(plan).
			WithDryRun(setupDryRun).
			WithStyles(styles)
		summary, err = tui.RunProgress(ctx, progressOpts,
			func(ctx context.Context, sink execution.Sink) (*execution.Summary, error) {
				runOpts := opts
				runOpts.Sink = sink
				return a.Setup(ctx, runOpts)
			})
	} else {
		opts.Sink = printer
		summary, err = a.Setup(ctx, opts)
	}
	if err != nil {
		return err
	}

	printer.Summary(summary)
	if code := summary.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// addSelectionFlags registers --apps-only plus one --skip-<step> flag
// per known step, and returns a collector for the resulting options.
func addSelectionFlags(cmd *cobra.Command) func() app.PlanOptions {
	appsOnly := cmd.Flags().Bool("apps-only", false, "Run only the apps step and its prerequisites")
	skips := make(map[string]*bool, len(app.StepIDs()))
	for _, id := range app.StepIDs() {
		name := id.String()
		skips[name] = cmd.Flags().Bool("skip-"+name, false, "Skip the "+name+" step")
	}
	return func() app.PlanOptions {
		opts := app.PlanOptions{AppsOnly: *appsOnly}
		for _, id := range app.StepIDs() {
			if *skips[id.String()] {
				opts.Skip = append(opts.Skip, id.String())
			}
		}
		return opts
	}
}
