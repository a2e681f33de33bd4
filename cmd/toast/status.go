package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"toast/internal/config"
	"toast/internal/dbus"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the notification daemon state in Waybar's custom module JSON
format.

This is designed to be used with Waybar's custom module:

  "custom/toast": {
    "exec": "toast status",
    "interval": 5,
    "return-type": "json",
    "on-click": "toast dnd toggle"
  }

The output includes:
  - alt/class: daemon state (on, dnd, stopped, error)
  - tooltip: server identity, plus the DnD age when enabled`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := dbus.NewClient()
	if err != nil {
		return outputStatus(WaybarStatus{Alt: "error", Class: "error"})
	}

	info, err := client.ServerInformation()
	if errors.Is(err, dbus.ErrNoServer) {
		return outputStatus(WaybarStatus{
			Alt:     "stopped",
			Tooltip: "No notification daemon running",
			Class:   "stopped",
		})
	}
	if err != nil {
		return outputStatus(WaybarStatus{
			Alt:     "error",
			Tooltip: err.Error(),
			Class:   "error",
		})
	}

	tooltip := fmt.Sprintf("%s %s", info.Name, info.Version)

	dnd, err := config.LoadDnD(config.DnDStatePath())
	if err == nil && dnd.Enabled {
		if !dnd.SinceTime().IsZero() {
			tooltip += fmt.Sprintf("\nDo Not Disturb enabled %s", humanize.Time(dnd.SinceTime()))
		} else {
			tooltip += "\nDo Not Disturb enabled"
		}
		return outputStatus(WaybarStatus{Alt: "dnd", Tooltip: tooltip, Class: "dnd"})
	}

	return outputStatus(WaybarStatus{Alt: "on", Tooltip: tooltip, Class: "on"})
}

// outputStatus writes the status as JSON.
func outputStatus(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}
