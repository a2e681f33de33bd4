package dbus

import (
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Monitor observes Notify traffic on the session bus without claiming
// the bus name, so it works alongside a running notification daemon.
// It uses a private connection: BecomeMonitor makes a connection
// receive-only, which must not happen to the shared session bus handle.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	onNotify NotifyHandler
}

// NewMonitor creates an unstarted monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{logger: logger}
}

// SetNotifyHandler sets the callback for captured notifications. Must
// be called before Start.
func (m *Monitor) SetNotifyHandler(h NotifyHandler) {
	m.onNotify = h
}

// Start connects and begins capturing Notify calls. It prefers the
// Monitoring.BecomeMonitor API and falls back to an eavesdrop match
// rule on buses that predate it.
func (m *Monitor) Start() error {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return fmt.Errorf("failed to open private bus connection: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to authenticate to session bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to register on session bus: %w", err)
	}
	m.conn = conn

	rule := fmt.Sprintf("type='method_call',interface='%s',member='Notify'", Interface)

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		[]string{rule},
		uint32(0),
	).Err
	if err != nil {
		m.logger.Warn("BecomeMonitor unavailable, falling back to eavesdrop match", "error", err)
		return m.startEavesdrop(rule)
	}

	m.logger.Info("notification monitor started", "mode", "monitor")
	go m.pump()
	return nil
}

// startEavesdrop registers an eavesdrop='true' match rule, the
// pre-BecomeMonitor mechanism. Some bus configurations refuse it.
func (m *Monitor) startEavesdrop(rule string) error {
	err := m.conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch",
		0,
		rule+",eavesdrop='true'",
	).Err
	if err != nil {
		_ = m.conn.Close()
		return fmt.Errorf("failed to add eavesdrop match rule: %w", err)
	}

	m.logger.Info("notification monitor started", "mode", "eavesdrop")
	go m.pump()
	return nil
}

// pump reads captured messages until the connection closes.
func (m *Monitor) pump() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		if msg.Type != dbus.TypeMethodCall {
			continue
		}
		if msg.Headers[dbus.FieldInterface].Value() != Interface {
			continue
		}
		if msg.Headers[dbus.FieldMember].Value() != "Notify" {
			continue
		}
		m.capture(msg)
	}
}

// capture decodes a Notify method call and hands it to the handler.
func (m *Monitor) capture(msg *dbus.Message) {
	if len(msg.Body) < 8 {
		m.logger.Warn("malformed Notify call", "args", len(msg.Body))
		return
	}

	req := &Request{}
	var ok bool
	if req.AppName, ok = msg.Body[0].(string); !ok {
		return
	}
	if req.ReplacesID, ok = msg.Body[1].(uint32); !ok {
		return
	}
	if req.AppIcon, ok = msg.Body[2].(string); !ok {
		return
	}
	if req.Summary, ok = msg.Body[3].(string); !ok {
		return
	}
	if req.Body, ok = msg.Body[4].(string); !ok {
		return
	}
	if actions, ok := msg.Body[5].([]string); ok {
		req.Actions = actions
	}
	if hints, ok := msg.Body[6].(map[string]dbus.Variant); ok {
		req.Hints = hints
	}
	if timeout, ok := msg.Body[7].(int32); ok {
		req.ExpireTimeout = timeout
	}

	// The server's reply carries the real id but a monitor never sees
	// its own requests answered, so captured notifications get a
	// content-derived pseudo-id. Identical re-sends map to the same id,
	// mirroring how the daemon stacks duplicates.
	id := monitorID(req)

	m.logger.Debug("captured notification",
		"app_name", req.AppName,
		"summary", req.Summary,
		"id", id,
	)

	if m.onNotify != nil {
		m.onNotify(req, id)
	}
}

// Stop closes the private connection, ending the capture loop.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

func monitorID(req *Request) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.AppName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(req.Summary))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(req.Body))
	return h.Sum32()
}
