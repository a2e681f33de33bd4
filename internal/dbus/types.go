package dbus

import (
	"github.com/godbus/dbus/v5"

	"toast/internal/notify"
)

// Bus identifiers from the freedesktop.org notification specification.
const (
	BusName    = "org.freedesktop.Notifications"
	ObjectPath = "/org/freedesktop/Notifications"
	Interface  = "org.freedesktop.Notifications"
)

// Hint keys honored by the server. Unknown hints pass through silently.
const (
	HintUrgency       = "urgency"
	HintCategory      = "category"
	HintSoundFile     = "sound-file"
	HintSuppressAudio = "suppress-sound"
	HintTransient     = "transient"
	HintResident      = "resident"
	HintValue         = "value"
	HintPosition      = "x-toast-position"
	HintDark          = "x-toast-dark"
	HintNoCloseButton = "x-toast-no-close-button"
)

// CloseReason is the NotificationClosed reason code.
type CloseReason uint32

const (
	// CloseReasonExpired means the notification timed out.
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed means the user dismissed it.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed means a CloseNotification call closed it.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined covers everything else, including
	// do-not-disturb suppression.
	CloseReasonUndefined CloseReason = 4
)

func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Request holds the raw parameters of one Notify call, in wire order.
// The same struct serves both directions: the server receives it and the
// client sends it.
type Request struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 server default, 0 never expire, >0 milliseconds
}

// ParsedActions converts the alternating key/label wire form into
// structured actions. A trailing key without a label is dropped.
func (r *Request) ParsedActions() []notify.Action {
	actions := make([]notify.Action, 0, len(r.Actions)/2)
	for i := 0; i+1 < len(r.Actions); i += 2 {
		actions = append(actions, notify.Action{
			Key:   r.Actions[i],
			Label: r.Actions[i+1],
		})
	}
	return actions
}

// Urgency extracts the urgency hint, defaulting to normal.
func (r *Request) Urgency() notify.Urgency {
	if v, ok := r.Hints[HintUrgency]; ok {
		if b, ok := v.Value().(byte); ok && b <= byte(notify.UrgencyCritical) {
			return notify.Urgency(b)
		}
	}
	return notify.UrgencyNormal
}

// Position extracts the position hint. The second return is false when
// the hint is absent or not a known position name, in which case the
// daemon falls back to its configured default.
func (r *Request) Position() (notify.Position, bool) {
	v, ok := r.Hints[HintPosition]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", false
	}
	p, err := notify.ParsePosition(s)
	if err != nil {
		return "", false
	}
	return p, true
}

// Value extracts the progress value hint. Returns -1 when absent;
// callers clamp to 0-100.
func (r *Request) Value() int {
	if v, ok := r.Hints[HintValue]; ok {
		switch val := v.Value().(type) {
		case int32:
			return int(val)
		case uint32:
			return int(val)
		case int:
			return val
		case byte:
			return int(val)
		}
	}
	return -1
}

// Category extracts the category hint, empty when absent.
func (r *Request) Category() string {
	return r.stringHint(HintCategory)
}

// SoundFile extracts the sound-file hint, empty when absent.
func (r *Request) SoundFile() string {
	return r.stringHint(HintSoundFile)
}

// SuppressSound reports whether the suppress-sound hint is set.
func (r *Request) SuppressSound() bool {
	return r.boolHint(HintSuppressAudio)
}

// Transient reports whether the transient hint is set. Transient
// notifications are displayed but never recorded to history.
func (r *Request) Transient() bool {
	return r.boolHint(HintTransient)
}

// Resident reports whether the resident hint is set. Resident
// notifications stay visible after an action is invoked.
func (r *Request) Resident() bool {
	return r.boolHint(HintResident)
}

// Dark reports whether the dark-style hint is set.
func (r *Request) Dark() bool {
	return r.boolHint(HintDark)
}

// NoCloseButton reports whether the no-close-button hint is set.
func (r *Request) NoCloseButton() bool {
	return r.boolHint(HintNoCloseButton)
}

func (r *Request) stringHint(key string) string {
	if v, ok := r.Hints[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func (r *Request) boolHint(key string) bool {
	if v, ok := r.Hints[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

func (r *Request) ensureHints() {
	if r.Hints == nil {
		r.Hints = make(map[string]dbus.Variant)
	}
}

// SetUrgency attaches the urgency hint. Used on the sending side.
func (r *Request) SetUrgency(u notify.Urgency) *Request {
	r.ensureHints()
	r.Hints[HintUrgency] = dbus.MakeVariant(byte(u))
	return r
}

// SetPosition attaches the position hint.
func (r *Request) SetPosition(p notify.Position) *Request {
	r.ensureHints()
	r.Hints[HintPosition] = dbus.MakeVariant(string(p))
	return r
}

// SetValue attaches the progress value hint.
func (r *Request) SetValue(v int) *Request {
	r.ensureHints()
	r.Hints[HintValue] = dbus.MakeVariant(int32(v))
	return r
}

// SetCategory attaches the category hint.
func (r *Request) SetCategory(c string) *Request {
	r.ensureHints()
	r.Hints[HintCategory] = dbus.MakeVariant(c)
	return r
}

// SetSoundFile attaches the sound-file hint.
func (r *Request) SetSoundFile(path string) *Request {
	r.ensureHints()
	r.Hints[HintSoundFile] = dbus.MakeVariant(path)
	return r
}

// SetSuppressSound attaches the suppress-sound hint.
func (r *Request) SetSuppressSound(b bool) *Request {
	r.ensureHints()
	r.Hints[HintSuppressAudio] = dbus.MakeVariant(b)
	return r
}

// SetTransient attaches the transient hint.
func (r *Request) SetTransient(b bool) *Request {
	r.ensureHints()
	r.Hints[HintTransient] = dbus.MakeVariant(b)
	return r
}

// SetResident attaches the resident hint.
func (r *Request) SetResident(b bool) *Request {
	r.ensureHints()
	r.Hints[HintResident] = dbus.MakeVariant(b)
	return r
}

// SetDark attaches the dark-style hint.
func (r *Request) SetDark(b bool) *Request {
	r.ensureHints()
	r.Hints[HintDark] = dbus.MakeVariant(b)
	return r
}

// SetNoCloseButton attaches the no-close-button hint.
func (r *Request) SetNoCloseButton(b bool) *Request {
	r.ensureHints()
	r.Hints[HintNoCloseButton] = dbus.MakeVariant(b)
	return r
}

// Capabilities advertised by GetCapabilities.
var Capabilities = []string{
	"actions",
	"body",
	"persistence",
	"sound",
}

// ServerInfo is the GetServerInformation reply.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DefaultServerInfo returns the identification reported by toastd. The
// version is overwritten at startup with the build version.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "toastd",
		Vendor:      "toast",
		Version:     "0.0.0",
		SpecVersion: "1.2",
	}
}
