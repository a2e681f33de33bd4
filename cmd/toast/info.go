package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"toast/internal/dbus"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show notification server information",
	Long: `Query the notification server on the session bus and print its
identity and capabilities.

This works against toastd or any other daemon owning the
org.freedesktop.Notifications name.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := dbus.NewClient()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	info, err := client.ServerInformation()
	if err != nil {
		return fmt.Errorf("no notification server reachable: %w", err)
	}

	caps, err := client.Capabilities()
	if err != nil {
		return fmt.Errorf("failed to query capabilities: %w", err)
	}

	fmt.Printf("Name:         %s\n", info.Name)
	fmt.Printf("Vendor:       %s\n", info.Vendor)
	fmt.Printf("Version:      %s\n", info.Version)
	fmt.Printf("Spec version: %s\n", info.SpecVersion)
	fmt.Printf("Capabilities: %s\n", strings.Join(caps, ", "))
	return nil
}
