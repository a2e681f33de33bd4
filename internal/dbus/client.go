package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	callNotify               = Interface + ".Notify"
	callCloseNotification    = Interface + ".CloseNotification"
	callGetCapabilities      = Interface + ".GetCapabilities"
	callGetServerInformation = Interface + ".GetServerInformation"
	signalNotificationClosed = Interface + ".NotificationClosed"
	signalActionInvoked      = Interface + ".ActionInvoked"

	// The bus daemon replies with this error name when no process owns
	// the notification name and nothing can be activated to claim it.
	errServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"

	signalBufferSize = 16
)

// ErrNoServer reports that no notification daemon owns the bus name.
var ErrNoServer = errors.New("no notification daemon is running")

// callError wraps a failed method call, mapping the bus's
// service-unknown reply to ErrNoServer so callers can branch on it.
func callError(call string, err error) error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == errServiceUnknown {
		return fmt.Errorf("%s: %w", call, ErrNoServer)
	}
	return fmt.Errorf("%s call failed: %w", call, err)
}

// Client is the sending side of the notification interface, used by the
// CLI to talk to whichever daemon owns the bus name.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient connects to the session bus. The connection is the shared
// process-wide one; Client does not own it.
func NewClient() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(BusName, ObjectPath),
	}, nil
}

// Send delivers a notification and returns the id the server assigned.
func (c *Client) Send(req *Request) (uint32, error) {
	req.ensureHints()
	actions := req.Actions
	if actions == nil {
		actions = []string{}
	}

	call := c.obj.Call(callNotify, 0,
		req.AppName,
		req.ReplacesID,
		req.AppIcon,
		req.Summary,
		req.Body,
		actions,
		req.Hints,
		req.ExpireTimeout,
	)
	if call.Err != nil {
		return 0, callError("Notify", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to read Notify reply: %w", err)
	}
	return id, nil
}

// CloseNotification asks the server to close a notification.
func (c *Client) CloseNotification(id uint32) error {
	if id == 0 {
		return fmt.Errorf("notification ids start at 1")
	}
	call := c.obj.Call(callCloseNotification, 0, id)
	if call.Err != nil {
		return callError("CloseNotification", call.Err)
	}
	return nil
}

// ServerInformation queries the daemon's identification.
func (c *Client) ServerInformation() (ServerInfo, error) {
	call := c.obj.Call(callGetServerInformation, 0)
	if call.Err != nil {
		return ServerInfo{}, callError("GetServerInformation", call.Err)
	}

	var info ServerInfo
	if err := call.Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion); err != nil {
		return ServerInfo{}, fmt.Errorf("failed to read GetServerInformation reply: %w", err)
	}
	return info, nil
}

// Capabilities queries the daemon's capability list.
func (c *Client) Capabilities() ([]string, error) {
	call := c.obj.Call(callGetCapabilities, 0)
	if call.Err != nil {
		return nil, callError("GetCapabilities", call.Err)
	}

	var caps []string
	if err := call.Store(&caps); err != nil {
		return nil, fmt.Errorf("failed to read GetCapabilities reply: %w", err)
	}
	return caps, nil
}

// WaitResult describes how a waited-on notification ended.
type WaitResult struct {
	Reason CloseReason
	// ActionKey is set when the user invoked an action before close.
	ActionKey string
}

// WaitClosed blocks until the notification closes or ctx is done. The
// signal subscription covers the whole interface, so signals about
// other notifications are filtered by id.
func (c *Client) WaitClosed(ctx context.Context, id uint32) (WaitResult, error) {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
	); err != nil {
		return WaitResult{}, fmt.Errorf("failed to subscribe to signals: %w", err)
	}

	ch := make(chan *dbus.Signal, signalBufferSize)
	c.conn.Signal(ch)
	defer func() {
		c.conn.RemoveSignal(ch)
		_ = c.conn.RemoveMatchSignal(
			dbus.WithMatchObjectPath(ObjectPath),
			dbus.WithMatchInterface(Interface),
		)
	}()

	var result WaitResult
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return result, fmt.Errorf("session bus connection closed")
			}
			switch sig.Name {
			case signalActionInvoked:
				if len(sig.Body) == 2 && asUint32(sig.Body[0]) == id {
					if key, ok := sig.Body[1].(string); ok {
						result.ActionKey = key
					}
				}
			case signalNotificationClosed:
				if len(sig.Body) == 2 && asUint32(sig.Body[0]) == id {
					result.Reason = CloseReason(asUint32(sig.Body[1]))
					return result, nil
				}
			}
		}
	}
}

func asUint32(v any) uint32 {
	u, _ := v.(uint32)
	return u
}
