// Package dbus carries toast notifications over the session bus using
// the org.freedesktop.Notifications interface. Server owns the bus name
// and receives Notify calls, Client is the sending side used by the CLI,
// and Monitor observes traffic without claiming ownership so the feed
// works alongside another notification daemon.
package dbus
