// Package tui renders setup progress: a live bubbletea model when
// stdout is a terminal, and a plain line printer otherwise. Both
// consume execution events and share one style set.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/rigup/internal/domain/steps"
)

// Theme colors (Catppuccin Mocha inspired).
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"} // Blue
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"} // Green
	ColorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"} // Yellow
	ColorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"} // Red
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"} // Overlay0
	ColorText    = lipgloss.AdaptiveColor{Light: "#4c4f69", Dark: "#cdd6f4"} // Text
)

// Styles contains the lipgloss styles shared by the progress model and
// the plain printer.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	Help        lipgloss.Style
	ProgressBar lipgloss.Style
	Spinner     lipgloss.Style
}

// DefaultStyles returns the default color styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		Subtitle: lipgloss.NewStyle().
			Foreground(ColorMuted),

		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),

		Error: lipgloss.NewStyle().
			Foreground(ColorError),

		Info: lipgloss.NewStyle().
			Foreground(ColorPrimary),

		Help: lipgloss.NewStyle().
			Foreground(ColorMuted),

		ProgressBar: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		Spinner: lipgloss.NewStyle().
			Foreground(ColorPrimary),
	}
}

// PlainStyles returns styles with no color or weight, for --no-color
// runs and non-terminal output.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:       plain,
		Subtitle:    plain,
		Success:     plain,
		Warning:     plain,
		Error:       plain,
		Info:        plain,
		Help:        plain,
		ProgressBar: plain,
		Spinner:     plain,
	}
}

// outcomeGlyph returns the one-character marker for a step outcome.
func outcomeGlyph(o steps.Outcome) string {
	switch o {
	case steps.OutcomeSuccess:
		return "✓"
	case steps.OutcomePartialFailure:
		return "!"
	case steps.OutcomeFailed:
		return "✗"
	case steps.OutcomeSkippedByFlag, steps.OutcomeSkippedAlreadyDone:
		return "-"
	default:
		return "?"
	}
}

// outcomeStyle returns the style matching a step outcome.
func (s Styles) outcomeStyle(o steps.Outcome) lipgloss.Style {
	switch o {
	case steps.OutcomeSuccess:
		return s.Success
	case steps.OutcomePartialFailure:
		return s.Warning
	case steps.OutcomeFailed:
		return s.Error
	case steps.OutcomeSkippedByFlag, steps.OutcomeSkippedAlreadyDone:
		return s.Help
	default:
		return s.Help
	}
}

// outcomeNote returns the short annotation printed after a step label,
// or "" when the outcome speaks for itself.
func outcomeNote(o steps.Outcome) string {
	switch o {
	case steps.OutcomePartialFailure:
		return "partial failure"
	case steps.OutcomeSkippedByFlag:
		return "skipped"
	case steps.OutcomeSkippedAlreadyDone:
		return "already done"
	default:
		return ""
	}
}
