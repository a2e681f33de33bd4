package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"toast/internal/config"
	"toast/internal/history"
	"toast/internal/notify"
)

var historyOpts struct {
	file    string
	limit   int
	all     bool
	format  string
	app     string
	urgency string
}

var pruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded notifications",
	Long: `List notifications toastd has recorded, newest first.

Notifications suppressed by Do Not Disturb are recorded too, so history
is where they end up.

Examples:
  # The 20 most recent notifications
  toast history

  # Everything from one application, as JSON
  toast history --all --app firefox --format json

  # Critical notifications only
  toast history --urgency critical`,
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old notifications from history",
	Long: `Remove old notifications from the history file.

Examples:
  # Remove notifications older than 7 days
  toast history prune --older-than 7d

  # Keep only the 100 most recent notifications
  toast history prune --keep 100

  # Preview what would be removed (dry run)
  toast history prune --older-than 48h --dry-run`,
	RunE: runHistoryPrune,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all notifications from history",
	Long:  `Remove every recorded notification, leaving an empty history file.`,
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyCmd.PersistentFlags().StringVar(&historyOpts.file, "file", "",
		"Path to history file (default: the daemon's configured path)")

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 20,
		"Maximum number of notifications to show")
	historyCmd.Flags().BoolVar(&historyOpts.all, "all", false,
		"Show the full history regardless of --limit")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "",
		"Output format (table, json, yaml)")
	historyCmd.Flags().StringVar(&historyOpts.app, "app", "",
		"Filter by application name (exact match)")
	historyCmd.Flags().StringVar(&historyOpts.urgency, "urgency", "",
		"Filter by urgency (low, normal, critical)")

	historyPruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove notifications older than this duration (e.g., 48h, 7d, 1w)")
	historyPruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep only the N most recent notifications (0=unlimited)")
	historyPruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without actually removing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	records = history.Newest(records)
	records, err = filterRecords(records)
	if err != nil {
		return err
	}

	if !historyOpts.all && historyOpts.limit > 0 && len(records) > historyOpts.limit {
		records = records[:historyOpts.limit]
	}

	format := historyOpts.format
	if format == "" {
		format = cfg.Output.Format
	}

	return history.Format(os.Stdout, records, format, colorEnabled())
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	if pruneOpts.olderThan == "" && pruneOpts.keep == 0 {
		return fmt.Errorf("specify --older-than or --keep")
	}

	olderThan, err := history.ParseAge(pruneOpts.olderThan)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if pruneOpts.dryRun {
		records, err := store.Load()
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		fmt.Printf("Would remove %d notification(s)\n", countRemovable(records, olderThan, pruneOpts.keep))
		return nil
	}

	removed, err := store.Prune(olderThan, pruneOpts.keep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	if removed == 0 {
		fmt.Println("No notifications to remove")
		return nil
	}
	fmt.Printf("Removed %d notification(s)\n", removed)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	count := store.Count()
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Printf("Removed %d notification(s)\n", count)
	return nil
}

// openHistory opens the store toastd writes, honoring a daemon config
// that relocates it.
func openHistory() (*history.Store, error) {
	path := historyOpts.file
	if path == "" {
		if dcfgPath, err := config.DaemonConfigPath(); err == nil {
			if dcfg, err := config.LoadDaemonConfig(dcfgPath); err == nil {
				path = dcfg.HistoryFilePath()
			}
		}
	}
	if path == "" {
		path = config.HistoryPath()
	}

	store, err := history.Open(path, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open history at %s: %w", path, err)
	}
	return store, nil
}

// filterRecords applies the app and urgency filters.
func filterRecords(records []history.Record) ([]history.Record, error) {
	if historyOpts.app == "" && historyOpts.urgency == "" {
		return records, nil
	}

	var urgency notify.Urgency
	if historyOpts.urgency != "" {
		u, err := notify.ParseUrgency(historyOpts.urgency)
		if err != nil {
			return nil, err
		}
		urgency = u
	}

	filtered := records[:0:0]
	for _, r := range records {
		if historyOpts.app != "" && r.AppName != historyOpts.app {
			continue
		}
		if historyOpts.urgency != "" && notify.Urgency(r.Urgency) != urgency {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// countRemovable mirrors Store.Prune for --dry-run, on records in file
// (oldest first) order.
func countRemovable(records []history.Record, olderThan time.Duration, keep int) int {
	kept := len(records)
	if olderThan > 0 {
		cutoff := time.Now().Add(-olderThan).Unix()
		kept = 0
		for _, r := range records {
			if r.Timestamp >= cutoff {
				kept++
			}
		}
	}
	if keep > 0 && kept > keep {
		kept = keep
	}
	return len(records) - kept
}

// colorEnabled honors the output.color config with "auto" meaning a tty.
func colorEnabled() bool {
	switch cfg.Output.Color {
	case "always":
		return true
	case "never":
		return false
	default:
		return history.ShouldColorize(os.Stdout)
	}
}
