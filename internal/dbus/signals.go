package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// EmitNotificationClosed emits NotificationClosed(id, reason).
func (s *Server) EmitNotificationClosed(id uint32, reason CloseReason) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to session bus")
	}
	if err := s.conn.Emit(ObjectPath, Interface+".NotificationClosed", id, uint32(reason)); err != nil {
		return fmt.Errorf("failed to emit NotificationClosed: %w", err)
	}
	s.logger.Debug("emitted NotificationClosed", "id", id, "reason", reason.String())
	return nil
}

// EmitActionInvoked emits ActionInvoked(id, action_key).
func (s *Server) EmitActionInvoked(id uint32, actionKey string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to session bus")
	}
	if err := s.conn.Emit(ObjectPath, Interface+".ActionInvoked", id, actionKey); err != nil {
		return fmt.Errorf("failed to emit ActionInvoked: %w", err)
	}
	s.logger.Debug("emitted ActionInvoked", "id", id, "action_key", actionKey)
	return nil
}

// CloseWithReason drops the id from active tracking and emits
// NotificationClosed. Called by the daemon when a popup goes away for
// any reason other than a CloseNotification call.
func (s *Server) CloseWithReason(id uint32, reason CloseReason) error {
	s.MarkClosed(id)
	return s.EmitNotificationClosed(id, reason)
}

// InvokeAction emits ActionInvoked and, unless the notification is
// resident, closes it with the dismissed reason.
func (s *Server) InvokeAction(id uint32, actionKey string, resident bool) error {
	if err := s.EmitActionInvoked(id, actionKey); err != nil {
		return err
	}
	if !resident {
		return s.CloseWithReason(id, CloseReasonDismissed)
	}
	return nil
}

// Connection exposes the underlying bus connection for callers that
// need to make their own calls on it.
func (s *Server) Connection() *dbus.Conn {
	return s.conn
}
