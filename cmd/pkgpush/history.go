package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgpush/pkgpush/config"
	"github.com/pkgpush/pkgpush/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pushes recorded locally",
	Long: `Show recent pushes from the local history database.

Every push is recorded unless history is disabled in the config file
(history.enabled: false).

Examples:
  pkgpush history
  pkgpush history -n 25 --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultListLimit, "max entries to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	formatter := getFormatter()

	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	path := cfg.History.Path
	if path == "" {
		path, err = history.DefaultPath()
		if err != nil {
			_ = formatter.FormatError(os.Stderr, err)
			return err
		}
	}

	store, err := history.Open(cmd.Context(), path)
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	return formatter.FormatHistory(os.Stdout, entries)
}
