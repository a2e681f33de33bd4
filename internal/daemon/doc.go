// Package daemon wires toastd together: the D-Bus server feeding the
// display manager, audio playback, history persistence, do-not-disturb
// state, and configuration hot reload. It also enforces single-instance
// execution through a lock file.
package daemon
