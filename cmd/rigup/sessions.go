package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage recorded setup sessions",
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Archive all unfinished sessions",
	Long: `Clear moves every unfinished session journal into the archive
directory. Journals are never deleted; 'setup --resume' simply stops
seeing them.`,
	RunE: runSessionsClear,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
}

func runSessionsClear(_ *cobra.Command, _ []string) error {
	a, _, err := newApp(os.Stderr, false)
	if err != nil {
		return err
	}

	n, err := a.SessionsClear()
	if err != nil {
		return err
	}

	switch n {
	case 0:
		fmt.Println("No unfinished sessions.")
	case 1:
		fmt.Println("Archived 1 unfinished session.")
	default:
		fmt.Printf("Archived %d unfinished sessions.\n", n)
	}
	return nil
}
