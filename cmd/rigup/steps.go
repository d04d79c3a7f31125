package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/app"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
	"github.com/felixgeelhaar/rigup/internal/tui"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Show the resolved step order for a profile",
	Long: `Steps resolves the same plan 'setup' would run and prints it in
execution order, with markers for anything the selection flags skip.`,
	RunE: runSteps,
}

var stepsSelection func() app.PlanOptions

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsSelection = addSelectionFlags(stepsCmd)
}

func runSteps(_ *cobra.Command, _ []string) error {
	a, settings, err := newApp(os.Stderr, false)
	if err != nil {
		return err
	}

	plan, err := a.ListSteps(profileFlag, stepsSelection())
	if err != nil {
		return err
	}

	printPlan(os.Stdout, plan, outputStyles(settings))
	return nil
}

// printPlan lists the resolved order with selection markers. Skipped
// steps stay listed: order is a property of the graph, not the flags.
func printPlan(w io.Writer, plan *steps.Plan, styles tui.Styles) {
	for i, ps := range plan.Steps() {
		line := fmt.Sprintf("%d. %-8s %s", i+1, ps.Step.ID(), ps.Step.Label())
		switch ps.Skip {
		case steps.SkipByFlag:
			line += styles.Help.Render("  (skipped by flag)")
		case steps.SkipNotSelected:
			line += styles.Help.Render("  (not selected)")
		case steps.SkipNone:
		}
		fmt.Fprintln(w, line)
	}
}
