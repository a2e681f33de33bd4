package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"toast/internal/dbus"
	"toast/internal/tui"
)

var monitorOpts struct {
	plain bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch notifications as they arrive",
	Long: `Watch notification traffic on the session bus as a live feed.

This runs alongside the active notification daemon without disturbing
it. In a terminal it opens an interactive viewer; when piped, or with
--plain, it prints one line per notification instead.

Examples:
  # Interactive feed
  toast monitor

  # Log notifications to a file
  toast monitor --plain >> notifications.log`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorOpts.plain, "plain", false,
		"Print one line per notification instead of the interactive feed")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	events := make(chan tui.Entry, 64)

	monitor := dbus.NewMonitor(logger)
	monitor.SetNotifyHandler(func(req *dbus.Request, id uint32) {
		select {
		case events <- tui.EntryFromRequest(req, id):
		default:
			// A stalled consumer drops events rather than blocking the bus.
		}
	})

	if err := monitor.Start(); err != nil {
		return fmt.Errorf("failed to start bus monitor: %w", err)
	}
	defer func() { _ = monitor.Stop() }()

	if monitorOpts.plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		return runMonitorPlain(events)
	}

	model := tui.New(events, cfg.Monitor.ClipboardCommand)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// runMonitorPlain prints entries line by line until interrupted.
func runMonitorPlain(events <-chan tui.Entry) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case entry := <-events:
			fmt.Println(entry.Plain())
		case <-sigCh:
			return nil
		}
	}
}
