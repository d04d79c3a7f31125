package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/domain/session"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

// Printer is an execution.Sink that writes line-oriented progress.
// It serves piped output, --no-color runs, and anywhere the live
// display cannot own the terminal.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	styles  Styles
	verbose bool
}

// NewPrinter creates a printer writing to w with default styles.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: DefaultStyles()}
}

// WithStyles sets the styles. Call before the first event.
func (p *Printer) WithStyles(styles Styles) *Printer {
	p.styles = styles
	return p
}

// WithVerbose enables per-item lines for successful items. Failed
// items always print.
func (p *Printer) WithVerbose(verbose bool) *Printer {
	p.verbose = verbose
	return p
}

// Publish writes one line per event.
func (p *Printer) Publish(ev execution.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case execution.EventRunStarted:
		fmt.Fprintf(p.w, "%s %d steps (session %s)\n",
			p.styles.Info.Render("Starting setup:"), ev.StepCount, ev.SessionID)

	case execution.EventStepStarted:
		fmt.Fprintf(p.w, "%s %s\n", p.styles.Info.Render("→"), ev.StepLabel)

	case execution.EventItemFinished:
		switch {
		case ev.ItemOutcome == capability.OutcomeFailed:
			fmt.Fprintf(p.w, "    %s %s: %v\n", p.styles.Error.Render("✗"), ev.Item, ev.ItemErr)
		case p.verbose:
			fmt.Fprintf(p.w, "    %s %s (%s)\n", itemGlyph(ev.ItemOutcome), ev.Item, ev.ItemOutcome)
		}

	case execution.EventStepFinished:
		style := p.styles.outcomeStyle(ev.Outcome)
		line := fmt.Sprintf("%s %s", style.Render(outcomeGlyph(ev.Outcome)), ev.StepLabel)
		if note := outcomeNote(ev.Outcome); note != "" {
			line += " (" + note + ")"
		}
		if ev.Outcome == steps.OutcomeFailed && ev.Err != nil {
			line += ": " + ev.Err.Error()
		}
		fmt.Fprintln(p.w, line)

	case execution.EventRollbackStarted:
		fmt.Fprintln(p.w, p.styles.Warning.Render("Rolling back"))

	case execution.EventRollbackStep:
		fmt.Fprintf(p.w, "  ↩ %s\n", ev.StepLabel)

	case execution.EventRunFinished:
		// Summary prints the closing block.
	}
}

// Summary writes the end-of-run block: headline, failed steps,
// rollback accounting, and the resume hint when one applies. It is
// shared by both display modes; the live display's last frame is the
// step list, this is everything below it.
func (p *Printer) Summary(sum *execution.Summary) {
	if sum == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.headline(sum))

	if sum.DryRun {
		fmt.Fprintln(p.w, p.styles.Help.Render("Dry run: no changes were made."))
	}

	for _, line := range sum.Steps {
		if line.Outcome != steps.OutcomeFailed && line.Outcome != steps.OutcomePartialFailure {
			continue
		}
		style := p.styles.outcomeStyle(line.Outcome)
		fmt.Fprintf(p.w, "  %s %s: %s\n",
			style.Render(outcomeGlyph(line.Outcome)), line.Label, failDetail(line))
	}

	if sum.RollbackPerformed {
		fmt.Fprintf(p.w, "%s %d files restored, %d items removed\n",
			p.styles.Warning.Render("Rolled back:"), sum.FilesRestored, sum.ItemsRemoved)
		if sum.RestoreFailures > 0 || sum.RemoveFailures > 0 {
			fmt.Fprintf(p.w, "%s %d restore and %d removal failures, check the log\n",
				p.styles.Error.Render("Rollback incomplete:"), sum.RestoreFailures, sum.RemoveFailures)
		}
	}

	if sum.Cause != nil && !sum.Completed() {
		fmt.Fprintf(p.w, "  cause: %v\n", sum.Cause)
	}

	if sum.Interrupted {
		fmt.Fprintln(p.w, p.styles.Help.Render("Run 'rigup setup --resume' to pick up where this left off."))
	}
}

func (p *Printer) headline(sum *execution.Summary) string {
	counts := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s",
		sum.Succeeded(), sum.Failed(), sum.Skipped(), sum.Duration.Round(time.Millisecond))

	switch {
	case sum.Interrupted:
		return p.styles.Warning.Render("Interrupted:") + " " + counts
	case sum.Completed() && sum.Failed() == 0:
		return p.styles.Success.Render("Setup complete:") + " " + counts
	case sum.Completed():
		return p.styles.Warning.Render("Completed with failures:") + " " + counts
	case sum.RollbackPerformed:
		return p.styles.Error.Render("Aborted and rolled back:") + " " + counts
	default:
		return p.styles.Error.Render("Aborted:") + " " + counts
	}
}

func failDetail(line execution.StepLine) string {
	if line.Outcome == steps.OutcomePartialFailure {
		return fmt.Sprintf("%d of %d items failed", line.FailedItems, line.Items)
	}
	if line.Err != nil {
		return line.Err.Error()
	}
	return "failed"
}

// FormatStatus renders one session for `rigup status`.
func FormatStatus(w io.Writer, sess *session.Session, styles Styles) {
	if sess == nil {
		fmt.Fprintln(w, styles.Help.Render("No sessions recorded yet. Run 'rigup setup' to start one."))
		return
	}

	state := sess.Terminal
	if state == "" {
		state = "unfinished"
	}
	fmt.Fprintf(w, "%s %s\n", styles.Title.Render("Session"), sess.ID)
	fmt.Fprintf(w, "  platform %s, profile %s\n", sess.Platform, sess.Profile)
	fmt.Fprintf(w, "  started %s, %s\n", sess.StartedAt.Format(time.RFC3339), state)
	if sess.DryRun {
		fmt.Fprintln(w, styles.Help.Render("  dry run"))
	}

	records := sess.Records()
	if len(records) == 0 {
		fmt.Fprintln(w, styles.Help.Render("  no steps recorded"))
	}
	for _, rec := range records {
		style := styles.outcomeStyle(rec.Outcome)
		line := fmt.Sprintf("  %s %-8s %s",
			style.Render(outcomeGlyph(rec.Outcome)), rec.StepID, outcomeTitle(rec.Outcome))
		if rec.Duration > 0 {
			line += fmt.Sprintf(" (%s)", rec.Duration.Round(time.Millisecond))
		}
		if rec.Error != "" {
			line += ": " + rec.Error
		}
		fmt.Fprintln(w, line)
	}

	if !sess.IsTerminal() && !sess.DryRun {
		fmt.Fprintln(w, styles.Help.Render("Resumable: run 'rigup setup --resume' to continue."))
	}
}

// outcomeTitle renders an outcome as a display word, "partial-failure"
// becoming "Partial Failure".
func outcomeTitle(o steps.Outcome) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(o), "-", " "))
}
