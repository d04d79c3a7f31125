package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/domain/session"
	"github.com/felixgeelhaar/rigup/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest setup session",
	Long: `Status replays the most recent session journal: which steps ran,
their outcomes, and whether the session can be resumed.`,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(_ *cobra.Command, _ []string) error {
	a, settings, err := newApp(os.Stderr, false)
	if err != nil {
		return err
	}

	sess, err := a.Status()
	if err != nil {
		return err
	}

	if statusJSON {
		return printStatusJSON(os.Stdout, sess)
	}
	tui.FormatStatus(os.Stdout, sess, outputStyles(settings))
	return nil
}

// statusView is the machine-readable session shape for --json.
type statusView struct {
	ID         string       `json:"id"`
	Platform   string       `json:"platform"`
	Profile    string       `json:"profile"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DryRun     bool         `json:"dry_run"`
	Terminal   string       `json:"terminal,omitempty"`
	Resumable  bool         `json:"resumable"`
	Cursor     int          `json:"cursor"`
	Order      []string     `json:"order"`
	Steps      []statusStep `json:"steps"`
}

type statusStep struct {
	ID         string       `json:"id"`
	Outcome    string       `json:"outcome"`
	Error      string       `json:"error,omitempty"`
	DurationMS int64        `json:"duration_ms"`
	Items      []statusItem `json:"items,omitempty"`
}

type statusItem struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func printStatusJSON(w io.Writer, sess *session.Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if sess == nil {
		return enc.Encode(nil)
	}

	view := statusView{
		ID:         sess.ID,
		Platform:   sess.Platform,
		Profile:    sess.Profile,
		StartedAt:  sess.StartedAt,
		FinishedAt: sess.FinishedAt,
		DryRun:     sess.DryRun,
		Terminal:   sess.Terminal,
		Resumable:  !sess.IsTerminal(),
		Cursor:     sess.Cursor(),
		Order:      sess.Order,
		Steps:      []statusStep{},
	}
	for _, rec := range sess.Records() {
		step := statusStep{
			ID:         rec.StepID,
			Outcome:    string(rec.Outcome),
			Error:      rec.Error,
			DurationMS: rec.Duration.Milliseconds(),
		}
		for _, item := range rec.Items {
			step.Items = append(step.Items, statusItem{
				Name:    item.Name,
				Outcome: item.Outcome,
				Error:   item.Error,
			})
		}
		view.Steps = append(view.Steps, step)
	}
	return enc.Encode(view)
}
