package dbus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestCallErrorMapsServiceUnknown(t *testing.T) {
	err := callError("Notify", dbus.Error{Name: errServiceUnknown})

	assert.ErrorIs(t, err, ErrNoServer)
	assert.Contains(t, err.Error(), "Notify")
}

func TestCallErrorKeepsOtherBusErrors(t *testing.T) {
	busErr := dbus.Error{Name: "org.freedesktop.DBus.Error.AccessDenied"}
	err := callError("CloseNotification", busErr)

	assert.NotErrorIs(t, err, ErrNoServer)
	assert.ErrorAs(t, err, &dbus.Error{})
}

func TestCallErrorKeepsPlainErrors(t *testing.T) {
	plain := errors.New("connection reset")
	err := callError("GetCapabilities", plain)

	assert.NotErrorIs(t, err, ErrNoServer)
	assert.ErrorIs(t, err, plain)
}
