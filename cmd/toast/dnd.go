package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"toast/internal/config"
)

var dndOpts struct {
	quiet bool // Suppress output, return exit code only
}

// dndCmd represents the dnd command group.
var dndCmd = &cobra.Command{
	Use:   "dnd",
	Short: "Manage Do Not Disturb mode",
	Long: `Manage Do Not Disturb (DnD) mode for toastd.

When DnD is enabled, toastd suppresses notification popups and sounds
while still recording notifications to history. Critical notifications
bypass DnD unless configured otherwise.

The state lives in a small file that toastd watches, so changes take
effect immediately without talking to the daemon.

Use 'toast dnd status' to check the current state.
Use 'toast dnd on' to enable DnD mode.
Use 'toast dnd off' to disable DnD mode.
Use 'toast dnd toggle' to toggle DnD mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to showing status
		return dndStatusRun(cmd, args)
	},
}

// dndOnCmd enables DnD mode.
var dndOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable Do Not Disturb mode",
	Long:  `Enable Do Not Disturb mode. Notification popups and sounds will be suppressed.`,
	RunE:  dndOnRun,
}

// dndOffCmd disables DnD mode.
var dndOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable Do Not Disturb mode",
	Long:  `Disable Do Not Disturb mode. Notification popups and sounds will resume.`,
	RunE:  dndOffRun,
}

// dndToggleCmd toggles DnD mode.
var dndToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle Do Not Disturb mode",
	Long:  `Toggle Do Not Disturb mode between enabled and disabled.`,
	RunE:  dndToggleRun,
}

// dndStatusCmd shows DnD status.
var dndStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Do Not Disturb status",
	Long:  `Show whether Do Not Disturb mode is currently enabled or disabled.`,
	RunE:  dndStatusRun,
}

func init() {
	// Add subcommands
	dndCmd.AddCommand(dndOnCmd)
	dndCmd.AddCommand(dndOffCmd)
	dndCmd.AddCommand(dndToggleCmd)
	dndCmd.AddCommand(dndStatusCmd)

	// Add flags to all subcommands
	for _, cmd := range []*cobra.Command{dndCmd, dndOnCmd, dndOffCmd, dndToggleCmd, dndStatusCmd} {
		cmd.Flags().BoolVarP(&dndOpts.quiet, "quiet", "q", false,
			"Suppress output, return exit code only (0=off, 1=on)")
	}

	// Add to root
	rootCmd.AddCommand(dndCmd)
}

func dndOnRun(cmd *cobra.Command, args []string) error {
	if _, err := config.SaveDnD(config.DnDStatePath(), true); err != nil {
		if !dndOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to save state: %v\n", err)
		}
		return err
	}

	if !dndOpts.quiet {
		fmt.Println("Do Not Disturb: enabled")
	}

	exitState(true)
	return nil
}

func dndOffRun(cmd *cobra.Command, args []string) error {
	if _, err := config.SaveDnD(config.DnDStatePath(), false); err != nil {
		if !dndOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to save state: %v\n", err)
		}
		return err
	}

	if !dndOpts.quiet {
		fmt.Println("Do Not Disturb: disabled")
	}

	exitState(false)
	return nil
}

func dndToggleRun(cmd *cobra.Command, args []string) error {
	state, err := config.LoadDnD(config.DnDStatePath())
	if err != nil {
		if !dndOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to load state: %v\n", err)
		}
		return err
	}

	newState, err := config.SaveDnD(config.DnDStatePath(), !state.Enabled)
	if err != nil {
		if !dndOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to save state: %v\n", err)
		}
		return err
	}

	if !dndOpts.quiet {
		if newState.Enabled {
			fmt.Println("Do Not Disturb: enabled")
		} else {
			fmt.Println("Do Not Disturb: disabled")
		}
	}

	exitState(newState.Enabled)
	return nil
}

func dndStatusRun(cmd *cobra.Command, args []string) error {
	state, err := config.LoadDnD(config.DnDStatePath())
	if err != nil {
		if !dndOpts.quiet {
			fmt.Fprintf(os.Stderr, "Failed to load state: %v\n", err)
		}
		return err
	}

	if !dndOpts.quiet {
		if state.Enabled {
			fmt.Println("Do Not Disturb: enabled")
		} else {
			fmt.Println("Do Not Disturb: disabled")
		}

		if !state.SinceTime().IsZero() {
			fmt.Printf("  Last change: %s\n", humanize.Time(state.SinceTime()))
		}
	}

	exitState(state.Enabled)
	return nil
}

// exitState reports the DnD state through the exit code in quiet mode,
// 1 when enabled. Outside quiet mode success is always exit 0.
func exitState(enabled bool) {
	if dndOpts.quiet && enabled {
		os.Exit(1)
	}
}
