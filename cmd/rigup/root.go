package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/adapters/filesystem"
	"github.com/felixgeelhaar/rigup/internal/adapters/logging"
	"github.com/felixgeelhaar/rigup/internal/app"
	"github.com/felixgeelhaar/rigup/internal/domain/platform"
	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/tui"
)

var (
	// Global flags
	profileFlag string
	verbose     bool
	noColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "rigup",
	Short: "A resumable dev machine setup orchestrator",
	Long: `Rigup turns a declarative machine profile into an installed, verified
development environment.

Every run records its progress in a session journal, so an interrupted
setup resumes where it stopped, and a failed critical step rolls the
machine back to where it started.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command, printing any error the way rigup
// formats them.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "profile name or path (default: the platform profile)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var cfgErr *profile.ConfigError
	if errors.As(err, &cfgErr) {
		msg := cfgErr.Message
		if cfgErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", cfgErr.Context)
		}
		if cfgErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", cfgErr.Suggestion)
		}
		if verbose && cfgErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", cfgErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// newApp loads settings and wires an App against the real machine.
// Console logging goes to console; pass io.Discard while the live
// display owns the terminal.
func newApp(console io.Writer, logToFile bool) (*app.App, profile.Settings, error) {
	fs := filesystem.NewOSFileSystem()
	settings, err := profile.LoadSettings(fs, platform.SettingsPath())
	if err != nil {
		return nil, settings, err
	}

	paths := statePaths(settings)
	opts := logging.Options{
		Level:   logLevel(settings),
		Console: console,
		NoColor: colorDisabled(settings),
	}
	if logToFile {
		opts.LogFile = paths.LogFile()
	}

	a := app.New(app.Options{
		FS:       fs,
		Logger:   logging.New(opts),
		Paths:    paths,
		Settings: settings,
	})
	return a, settings, nil
}

func statePaths(settings profile.Settings) platform.Paths {
	if settings.StateDir != "" {
		return platform.NewPathsAt(ports.ExpandPath(settings.StateDir))
	}
	return platform.NewPaths()
}

// logLevel maps --verbose and the settings file onto a log level.
func logLevel(settings profile.Settings) ports.Level {
	if verbose {
		return ports.LevelDebug
	}
	switch settings.LogLevel {
	case "debug":
		return ports.LevelDebug
	case "warn":
		return ports.LevelWarn
	case "error":
		return ports.LevelError
	default:
		return ports.LevelInfo
	}
}

func colorDisabled(settings profile.Settings) bool {
	return noColor || settings.NoColor
}

// outputStyles picks the style set for a settings+flags combination.
func outputStyles(settings profile.Settings) tui.Styles {
	if colorDisabled(settings) {
		return tui.PlainStyles()
	}
	return tui.DefaultStyles()
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	// Complete --profile with YAML files
	_ = rootCmd.RegisterFlagCompletionFunc("profile", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
}
