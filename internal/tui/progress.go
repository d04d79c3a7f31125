package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/execution"
	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

// ProgressOptions configures the live progress display.
type ProgressOptions struct {
	Plan   *steps.Plan
	DryRun bool
	Styles Styles
}

// NewProgressOptions creates default progress options.
func NewProgressOptions() ProgressOptions {
	return ProgressOptions{
		Styles: DefaultStyles(),
	}
}

// WithPlan sets the plan whose steps the display lists.
func (o ProgressOptions) WithPlan(plan *steps.Plan) ProgressOptions {
	o.Plan = plan
	return o
}

// WithDryRun marks the run as a dry run.
func (o ProgressOptions) WithDryRun(dryRun bool) ProgressOptions {
	o.DryRun = dryRun
	return o
}

// WithStyles sets the styles.
func (o ProgressOptions) WithStyles(styles Styles) ProgressOptions {
	o.Styles = styles
	return o
}

// RunFunc executes the setup run, publishing progress to sink. It is
// called on its own goroutine while the display owns the terminal.
type RunFunc func(ctx context.Context, sink execution.Sink) (*execution.Summary, error)

// RunProgress renders live progress while run executes and returns
// run's result once both have finished. Ctrl+C cancels run's context;
// the display stays up until the run has wound down, so an in-flight
// step can finish and the session stays resumable.
func RunProgress(ctx context.Context, opts ProgressOptions, run RunFunc) (*execution.Summary, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(opts, cancel))

	done := make(chan runDoneMsg, 1)
	go func() {
		summary, err := run(runCtx, execution.SinkFunc(func(ev execution.Event) {
			p.Send(eventMsg{event: ev})
		}))
		msg := runDoneMsg{summary: summary, err: err}
		done <- msg
		p.Send(msg)
	}()

	_, uiErr := p.Run()
	// If the display died first, stop the run and wait it out; the
	// result is authoritative either way.
	cancel()
	res := <-done
	if res.err != nil {
		return res.summary, res.err
	}
	if uiErr != nil {
		return res.summary, fmt.Errorf("progress display failed: %w", uiErr)
	}
	return res.summary, nil
}

// eventMsg wraps an execution event for the bubbletea loop.
type eventMsg struct {
	event execution.Event
}

// runDoneMsg carries the run's final result into the model.
type runDoneMsg struct {
	summary *execution.Summary
	err     error
}

// stepRow is the display state of one plan step.
type stepRow struct {
	id          steps.ID
	label       string
	running     bool
	finished    bool
	outcome     steps.Outcome
	err         error
	lastItem    string
	lastOutcome capability.Outcome
}

type progressModel struct {
	styles  Styles
	spin    spinner.Model
	cancel  context.CancelFunc
	dryRun  bool
	width   int
	session string

	rows  []stepRow
	index map[steps.ID]int

	finished int
	failed   int

	rollingBack   bool
	rollbackSteps []string
	cancelling    bool
	done          bool
	summary       *execution.Summary
}

func newProgressModel(opts ProgressOptions, cancel context.CancelFunc) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = opts.Styles.Spinner

	m := progressModel{
		styles: opts.Styles,
		spin:   s,
		cancel: cancel,
		dryRun: opts.DryRun,
		width:  80,
		index:  make(map[steps.ID]int),
	}
	if opts.Plan != nil {
		for _, ps := range opts.Plan.Steps() {
			m.index[ps.Step.ID()] = len(m.rows)
			m.rows = append(m.rows, stepRow{id: ps.Step.ID(), label: ps.Step.Label()})
		}
	}
	return m
}

// Init starts the spinner and requests the terminal size.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tea.WindowSize())
}

// Update handles messages.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.done && !m.cancelling {
			// Cancel the run; the quit follows once the orchestrator
			// has released the session.
			m.cancelling = true
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		return m.applyEvent(msg.event), nil

	case runDoneMsg:
		m.done = true
		m.summary = msg.summary
		return m, tea.Quit
	}

	return m, nil
}

func (m progressModel) applyEvent(ev execution.Event) progressModel {
	switch ev.Kind {
	case execution.EventRunStarted:
		m.session = ev.SessionID

	case execution.EventStepStarted:
		i := m.rowFor(ev.StepID, ev.StepLabel)
		m.rows[i].running = true

	case execution.EventStepFinished:
		i := m.rowFor(ev.StepID, ev.StepLabel)
		m.rows[i].running = false
		m.rows[i].finished = true
		m.rows[i].outcome = ev.Outcome
		m.rows[i].err = ev.Err
		m.finished++
		if ev.Outcome == steps.OutcomeFailed || ev.Outcome == steps.OutcomePartialFailure {
			m.failed++
		}

	case execution.EventItemFinished:
		i := m.rowFor(ev.StepID, ev.StepLabel)
		m.rows[i].lastItem = ev.Item
		m.rows[i].lastOutcome = ev.ItemOutcome

	case execution.EventRollbackStarted:
		m.rollingBack = true

	case execution.EventRollbackStep:
		m.rollbackSteps = append(m.rollbackSteps, ev.StepLabel)

	case execution.EventRunFinished:
		// The done message carries the summary; nothing to track here.
	}
	return m
}

// rowFor returns the row index for a step, creating one when the
// display was started without a plan.
func (m *progressModel) rowFor(id steps.ID, label string) int {
	if i, ok := m.index[id]; ok {
		if label != "" {
			m.rows[i].label = label
		}
		return i
	}
	m.index[id] = len(m.rows)
	m.rows = append(m.rows, stepRow{id: id, label: label})
	return len(m.rows) - 1
}

// View renders the progress display.
func (m progressModel) View() string {
	var b strings.Builder

	title := "Setting up your machine"
	if m.dryRun {
		title = "Previewing setup (dry run)"
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n")
	if m.session != "" {
		b.WriteString(m.styles.Subtitle.Render("session " + m.session))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.progressBar())
	b.WriteString("\n\n")

	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	if m.rollingBack {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render("Rolling back"))
		b.WriteString("\n")
		for _, label := range m.rollbackSteps {
			b.WriteString("  ↩ " + label + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.done:
		// The final summary prints below the last frame.
	case m.cancelling:
		b.WriteString(m.styles.Warning.Render("Cancelling, waiting for the current step to finish"))
		b.WriteString("\n")
	default:
		b.WriteString(m.styles.Help.Render("Ctrl+C to cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m progressModel) progressBar() string {
	total := len(m.rows)
	percent := 0.0
	if total > 0 {
		percent = float64(m.finished) / float64(total)
	}

	barWidth := 40
	filled := int(percent * float64(barWidth))
	bar := fmt.Sprintf("[%s%s]",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
	)

	counts := fmt.Sprintf(" %d/%d steps", m.finished, total)
	if m.failed > 0 {
		counts += fmt.Sprintf(" (%d failed)", m.failed)
	}
	return m.styles.ProgressBar.Render(bar) + counts
}

func (m progressModel) renderRow(row stepRow) string {
	switch {
	case row.running:
		line := fmt.Sprintf("%s %s", m.spin.View(), row.label)
		if row.lastItem != "" {
			line += m.styles.Help.Render(fmt.Sprintf("  %s %s", row.lastItem, itemGlyph(row.lastOutcome)))
		}
		return line

	case row.finished:
		style := m.styles.outcomeStyle(row.outcome)
		line := fmt.Sprintf("%s %s", style.Render(outcomeGlyph(row.outcome)), row.label)
		if note := outcomeNote(row.outcome); note != "" {
			line += m.styles.Help.Render(" (" + note + ")")
		}
		if row.outcome == steps.OutcomeFailed && row.err != nil {
			line += m.styles.Error.Render("  " + truncate(row.err.Error(), 60))
		}
		return line

	default:
		return m.styles.Help.Render("· " + row.label)
	}
}

func itemGlyph(o capability.Outcome) string {
	switch o {
	case capability.OutcomeFailed:
		return "✗"
	case capability.OutcomeSkipped:
		return "-"
	default:
		return "✓"
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
