package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"toast/internal/dbus"
	"toast/internal/notify"
	"toast/internal/param"
)

var sendOpts struct {
	title         string
	body          string
	icon          string
	appName       string
	urgency       string
	position      string
	timeout       string
	category      string
	soundFile     string
	actions       []string
	value         int
	replacesID    uint32
	suppressSound bool
	transient     bool
	resident      bool
	dark          bool
	noCloseButton bool
	wait          bool
}

var sendCmd = &cobra.Command{
	Use:   "send [summary] [body]",
	Short: "Send a desktop notification",
	Long: `Send a desktop notification and print the assigned id.

The summary comes from the first argument or --title, the body from the
second argument or --body. Literal \n and <br> tags in the body become
line breaks.

Examples:
  # Simple notification
  toast send "Build finished"

  # Critical, sticky, stacked top-center
  toast send --urgency critical --timeout 0 --position top-center "Disk almost full"

  # Progress notification updated in place
  id=$(toast send --value 30 "Copying")
  toast send --replaces-id "$id" --value 60 "Copying"

  # Block until it closes; the last line is the invoked action key
  # or the close reason (expired, dismissed, closed)
  toast send --action open=Open --wait "New mail"`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendOpts.title, "title", "",
		"Notification title (alternative to the first argument)")
	sendCmd.Flags().StringVar(&sendOpts.body, "body", "",
		"Notification body (alternative to the second argument)")
	sendCmd.Flags().StringVar(&sendOpts.icon, "icon", "",
		"Icon name or image path")
	sendCmd.Flags().StringVar(&sendOpts.appName, "app-name", "",
		"Application name reported to the daemon")
	sendCmd.Flags().StringVarP(&sendOpts.urgency, "urgency", "u", "",
		"Urgency level (low, normal, critical)")
	sendCmd.Flags().StringVarP(&sendOpts.position, "position", "p", "",
		"Screen position (top-left, top-center, ..., bottom-right)")
	sendCmd.Flags().StringVarP(&sendOpts.timeout, "timeout", "t", "",
		"Time until auto-dismiss ('5s' or milliseconds, 0 = sticky, empty = daemon default)")
	sendCmd.Flags().StringVar(&sendOpts.category, "category", "",
		"Notification category hint (e.g. email.arrived)")
	sendCmd.Flags().StringVar(&sendOpts.soundFile, "sound-file", "",
		"Sound file to play instead of the daemon default")
	sendCmd.Flags().StringArrayVarP(&sendOpts.actions, "action", "a", nil,
		"Action button as key=label (repeatable)")
	sendCmd.Flags().IntVar(&sendOpts.value, "value", -1,
		"Progress value 0-100 rendered as a meter")
	sendCmd.Flags().Uint32Var(&sendOpts.replacesID, "replaces-id", 0,
		"Id of an earlier notification to update in place")
	sendCmd.Flags().BoolVar(&sendOpts.suppressSound, "suppress-sound", false,
		"Ask the daemon not to play a sound")
	sendCmd.Flags().BoolVar(&sendOpts.transient, "transient", false,
		"Skip history for this notification")
	sendCmd.Flags().BoolVar(&sendOpts.resident, "resident", false,
		"Keep the popup visible after an action is invoked")
	sendCmd.Flags().BoolVar(&sendOpts.dark, "dark", false,
		"Render with the dark style")
	sendCmd.Flags().BoolVar(&sendOpts.noCloseButton, "no-close-button", false,
		"Hide the close button")
	sendCmd.Flags().BoolVarP(&sendOpts.wait, "wait", "w", false,
		"Block until the notification closes and print how it ended")
}

func runSend(cmd *cobra.Command, args []string) error {
	summary := sendOpts.title
	if len(args) > 0 {
		summary = args[0]
	}
	if summary == "" {
		return fmt.Errorf("a summary is required, as the first argument or --title")
	}

	body := sendOpts.body
	if len(args) > 1 {
		body = args[1]
	}
	body, err := param.LineBreaks{}.Convert(body)
	if err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}

	req, err := buildRequest(summary, body)
	if err != nil {
		return err
	}

	client, err := dbus.NewClient()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	id, err := client.Send(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	fmt.Println(id)

	if !sendOpts.wait {
		return nil
	}

	result, err := client.WaitClosed(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed waiting for close: %w", err)
	}
	if result.ActionKey != "" {
		fmt.Println(result.ActionKey)
	} else {
		fmt.Println(result.Reason)
	}
	return nil
}

// buildRequest assembles the wire request from flags and config defaults.
func buildRequest(summary, body string) (*dbus.Request, error) {
	appName := sendOpts.appName
	if appName == "" {
		appName = cfg.Send.AppName
	}

	urgencyName := sendOpts.urgency
	if urgencyName == "" {
		urgencyName = cfg.Send.Urgency
	}
	if err := (param.OneOf{Allowed: notify.Urgencies()}).Validate("urgency", urgencyName); err != nil {
		return nil, err
	}

	positionName := sendOpts.position
	if positionName == "" {
		positionName = cfg.Send.Position
	}
	if err := (param.OneOf{Allowed: notify.Positions()}).Validate("position", positionName); err != nil {
		return nil, err
	}

	timeoutFlag := sendOpts.timeout
	if timeoutFlag == "" {
		timeoutFlag = cfg.Send.Timeout
	}
	timeout, err := parseTimeout(timeoutFlag)
	if err != nil {
		return nil, err
	}

	actions, err := parseActions(sendOpts.actions)
	if err != nil {
		return nil, err
	}

	req := &dbus.Request{
		AppName:       appName,
		ReplacesID:    sendOpts.replacesID,
		AppIcon:       sendOpts.icon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		ExpireTimeout: timeout,
	}

	if urgencyName != "" {
		u, err := notify.ParseUrgency(urgencyName)
		if err != nil {
			return nil, err
		}
		req.SetUrgency(u)
	}
	if positionName != "" {
		p, err := notify.ParsePosition(positionName)
		if err != nil {
			return nil, err
		}
		req.SetPosition(p)
	}
	if sendOpts.value >= 0 {
		if sendOpts.value > 100 {
			return nil, fmt.Errorf("value must be between 0 and 100, got %d", sendOpts.value)
		}
		req.SetValue(sendOpts.value)
	}
	if sendOpts.category != "" {
		req.SetCategory(sendOpts.category)
	}
	if sendOpts.soundFile != "" {
		req.SetSoundFile(sendOpts.soundFile)
	}
	if sendOpts.suppressSound {
		req.SetSuppressSound(true)
	}
	if sendOpts.transient {
		req.SetTransient(true)
	}
	if sendOpts.resident {
		req.SetResident(true)
	}
	if sendOpts.dark {
		req.SetDark(true)
	}
	if sendOpts.noCloseButton {
		req.SetNoCloseButton(true)
	}

	return req, nil
}

// parseTimeout maps the --timeout flag onto the wire expire_timeout:
// empty = daemon default (-1), "0" = never expire, otherwise a Go
// duration or integer milliseconds.
func parseTimeout(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 32); err == nil {
		if ms < 0 {
			return -1, nil
		}
		return int32(ms), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: use a duration like '5s' or milliseconds", s)
	}
	if d < 0 {
		return -1, nil
	}
	return int32(d.Milliseconds()), nil
}

// parseActions expands repeated key=label flags into the alternating
// wire form. A bare key doubles as its own label.
func parseActions(specs []string) ([]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	actions := make([]string, 0, len(specs)*2)
	for _, spec := range specs {
		key, label, _ := strings.Cut(spec, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid action %q, expected key=label", spec)
		}
		if label == "" {
			label = key
		}
		actions = append(actions, key, label)
	}
	return actions, nil
}
