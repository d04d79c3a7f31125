package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/domain/verify"
	"github.com/felixgeelhaar/rigup/internal/tui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the machine against the profile without changing it",
	Long: `Verify probes the machine read-only: package managers, packages,
fonts, git identity, SSH keys, editor settings, cloned repositories,
and any pinned minimum versions. Exits non-zero when anything
diverges.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, settings, err := newApp(os.Stderr, false)
	if err != nil {
		return err
	}

	report, err := a.Verify(ctx, profileFlag)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report, outputStyles(settings))
	if !report.Ok() {
		os.Exit(1)
	}
	return nil
}

func printReport(w io.Writer, report *verify.Report, styles tui.Styles) {
	for _, f := range report.Findings() {
		var style = styles.Help
		glyph := "?"
		switch f.Outcome {
		case verify.Pass:
			style, glyph = styles.Success, "✓"
		case verify.Fail:
			style, glyph = styles.Error, "✗"
		case verify.Unknown:
			style, glyph = styles.Warning, "?"
		}
		detail := ""
		if f.Detail != "" {
			detail = ": " + f.Detail
		}
		fmt.Fprintf(w, "%s [%s] %s%s\n", style.Render(glyph), f.Area, f.Subject, detail)
	}

	pass, fail, unknown := report.Counts()
	fmt.Fprintf(w, "\n%d passed, %d failed, %d unknown\n", pass, fail, unknown)
}
