package daemon

import (
	"log/slog"
	"sync"
	"time"

	"toast/internal/dbus"
	"toast/internal/notify"
)

// notifierAppName identifies self-notifications in popups and history.
const notifierAppName = "toastd"

// Notifier sends notifications about daemon events (config reloads,
// do-not-disturb toggles) through the same path external senders use.
// Identical notifications are rate-limited so a flapping config file
// cannot flood the screen.
type Notifier struct {
	mu      sync.Mutex
	logger  *slog.Logger
	send    func(req *dbus.Request) uint32
	last    map[string]time.Time
	minGap  time.Duration
	enabled bool
}

// NewNotifier creates a notifier. Send is wired separately because the
// server does not exist yet when the daemon assembles its parts.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:  logger,
		last:    make(map[string]time.Time),
		minGap:  5 * time.Second,
		enabled: true,
	}
}

// SetSendFunc sets the function that injects a request into the notify
// pipeline.
func (n *Notifier) SetSendFunc(send func(req *dbus.Request) uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = send
}

// SetEnabled turns self-notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// notify sends one self-notification unless the same key fired within
// the rate-limit window.
func (n *Notifier) notify(key, title, body string, urgency notify.Urgency, graphic string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled || n.send == nil {
		return
	}
	if last, ok := n.last[key]; ok && time.Since(last) < n.minGap {
		n.logger.Debug("self-notification rate-limited", "key", key)
		return
	}
	n.last[key] = time.Now()

	req := &dbus.Request{
		AppName:       notifierAppName,
		AppIcon:       graphic,
		Summary:       title,
		Body:          body,
		ExpireTimeout: 5000,
	}
	req.SetUrgency(urgency).SetTransient(true)

	n.send(req)
}

// NotifyConfigReloaded announces a successful config reload.
func (n *Notifier) NotifyConfigReloaded() {
	n.notify("config-reload",
		"Configuration reloaded",
		"toastd picked up the new configuration.",
		notify.UrgencyLow, notify.GraphicInformation)
}

// NotifyConfigError announces a config reload failure. The old
// configuration stays in effect.
func (n *Notifier) NotifyConfigError(err error) {
	n.notify("config-error",
		"Configuration error",
		"Reload failed, keeping previous settings: "+err.Error(),
		notify.UrgencyNormal, notify.GraphicWarning)
}

// NotifyDnDChanged announces a do-not-disturb toggle.
func (n *Notifier) NotifyDnDChanged(enabled bool) {
	if enabled {
		// The enabling toast would be suppressed by the state it
		// announces, so it is sent before suppression kicks in.
		n.notify("dnd-change",
			"Do not disturb on",
			"Notifications will be recorded but not shown.",
			notify.UrgencyLow, notify.GraphicInformation)
		return
	}
	n.notify("dnd-change",
		"Do not disturb off",
		"Notifications will be shown again.",
		notify.UrgencyLow, notify.GraphicInformation)
}
