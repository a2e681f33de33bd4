package dbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// NotifyHandler receives each accepted Notify call with its assigned id.
type NotifyHandler func(req *Request, id uint32)

// CloseHandler receives CloseNotification requests for active ids.
type CloseHandler func(id uint32)

// Server owns org.freedesktop.Notifications on the session bus and
// forwards incoming calls to the daemon's handlers. Methods on Server
// are invoked from godbus worker goroutines; handlers must do their own
// serialization (the daemon posts to the scene loop).
type Server struct {
	conn   *dbus.Conn
	logger *slog.Logger

	nextID atomic.Uint32

	onNotify NotifyHandler
	onClose  CloseHandler

	mu      sync.RWMutex
	active  map[uint32]bool
	info    ServerInfo
	running bool
}

// NewServer creates an unstarted server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger,
		active: make(map[uint32]bool),
		info:   DefaultServerInfo(),
	}
}

// SetNotifyHandler sets the handler for incoming notifications. Must be
// called before Start.
func (s *Server) SetNotifyHandler(h NotifyHandler) {
	s.onNotify = h
}

// SetCloseHandler sets the handler for CloseNotification requests. Must
// be called before Start.
func (s *Server) SetCloseHandler(h CloseHandler) {
	s.onClose = h
}

// SetServerInfo overrides the GetServerInformation reply, typically to
// inject the build version.
func (s *Server) SetServerInfo(info ServerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

// Start connects to the session bus, exports the notification object,
// and claims the bus name. With replace set the name is taken over from
// a running daemon; without it a taken name is an error.
func (s *Server) Start(replace bool) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export notification object: %w", err)
	}

	node := &introspect.Node{
		Name: ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: interfaceMethods(),
				Signals: interfaceSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection data: %w", err)
	}

	flags := dbus.NameFlagDoNotQueue
	if replace {
		flags |= dbus.NameFlagReplaceExisting
	}
	reply, err := conn.RequestName(BusName, flags)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already owned (is another notification daemon running?)", BusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("notification service started", "bus_name", BusName, "path", ObjectPath)
	return nil
}

// Stop releases the bus name. The session bus connection is shared and
// stays open.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
	}

	s.logger.Info("notification service stopped")
	return nil
}

// GetCapabilities implements GetCapabilities() -> as.
func (s *Server) GetCapabilities() ([]string, *dbus.Error) {
	return Capabilities, nil
}

// GetServerInformation implements GetServerInformation() -> (ssss).
func (s *Server) GetServerInformation() (string, string, string, string, *dbus.Error) {
	s.mu.RLock()
	info := s.info
	s.mu.RUnlock()
	return info.Name, info.Vendor, info.Version, info.SpecVersion, nil
}

// Notify implements Notify(susssasa{sv}i) -> u. A replaces_id greater
// than zero reuses that id so the popup is replaced in place; otherwise
// a fresh id is assigned.
func (s *Server) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	id := replacesID
	if id == 0 {
		id = s.nextID.Add(1)
	}

	s.logger.Debug("Notify received",
		"app_name", appName,
		"replaces_id", replacesID,
		"summary", summary,
		"id", id,
	)

	req := &Request{
		AppName:       appName,
		ReplacesID:    replacesID,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expireTimeout,
	}

	s.mu.Lock()
	s.active[id] = true
	s.mu.Unlock()

	if s.onNotify != nil {
		s.onNotify(req, id)
	}

	return id, nil
}

// CloseNotification implements CloseNotification(u). The protocol treats
// closing an unknown id as a no-op, not an error.
func (s *Server) CloseNotification(id uint32) *dbus.Error {
	s.logger.Debug("CloseNotification received", "id", id)

	s.mu.Lock()
	_, exists := s.active[id]
	delete(s.active, id)
	s.mu.Unlock()

	if !exists {
		return nil
	}

	if s.onClose != nil {
		s.onClose(id)
	}
	if err := s.EmitNotificationClosed(id, CloseReasonClosed); err != nil {
		s.logger.Warn("failed to emit NotificationClosed", "id", id, "error", err)
	}
	return nil
}

// NotifyLocal injects a notification that did not arrive over the bus,
// for daemon-originated toasts like config reload errors. Returns the
// assigned id.
func (s *Server) NotifyLocal(req *Request) uint32 {
	id := s.nextID.Add(1)

	s.mu.Lock()
	s.active[id] = true
	s.mu.Unlock()

	if s.onNotify != nil {
		s.onNotify(req, id)
	}
	return id
}

// MarkClosed drops an id from active tracking without emitting a
// signal. Used when the emission is handled separately.
func (s *Server) MarkClosed(id uint32) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// IsActive reports whether an id is currently tracked.
func (s *Server) IsActive(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[id]
}

func interfaceMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetCapabilities",
			Args: []introspect.Arg{
				{Name: "capabilities", Type: "as", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
				{Name: "spec_version", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "app_name", Type: "s", Direction: "in"},
				{Name: "replaces_id", Type: "u", Direction: "in"},
				{Name: "app_icon", Type: "s", Direction: "in"},
				{Name: "summary", Type: "s", Direction: "in"},
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "actions", Type: "as", Direction: "in"},
				{Name: "hints", Type: "a{sv}", Direction: "in"},
				{Name: "expire_timeout", Type: "i", Direction: "in"},
				{Name: "id", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "CloseNotification",
			Args: []introspect.Arg{
				{Name: "id", Type: "u", Direction: "in"},
			},
		},
	}
}

func interfaceSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "NotificationClosed",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "reason", Type: "u"},
			},
		},
		{
			Name: "ActionInvoked",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "action_key", Type: "s"},
			},
		},
	}
}
