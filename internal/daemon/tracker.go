package daemon

import (
	"sync"
)

// tracked is the daemon-side state for one D-Bus notification id.
type tracked struct {
	popupID  string
	resident bool
}

// Tracker maps D-Bus notification ids to display popup ids. Duplicate
// stacking makes the relation many-to-one: several D-Bus ids can ride
// the same popup, and all of them get a NotificationClosed signal when
// it hides. Safe for concurrent use; the bus handlers and the scene
// loop both touch it.
type Tracker struct {
	mu      sync.RWMutex
	byDBus  map[uint32]tracked
	byPopup map[string][]uint32
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byDBus:  make(map[uint32]tracked),
		byPopup: make(map[string][]uint32),
	}
}

// Register binds a D-Bus id to a popup. Re-registering an id (a sender
// replacing its notification) detaches it from its previous popup
// first.
func (t *Tracker) Register(dbusID uint32, popupID string, resident bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.byDBus[dbusID]; ok {
		t.detachLocked(dbusID, old.popupID)
	}

	t.byDBus[dbusID] = tracked{popupID: popupID, resident: resident}
	t.byPopup[popupID] = append(t.byPopup[popupID], dbusID)
}

// PopupID returns the popup a D-Bus id is riding.
func (t *Tracker) PopupID(dbusID uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.byDBus[dbusID]
	return entry.popupID, ok
}

// DBusIDs returns every D-Bus id riding a popup, in registration order.
func (t *Tracker) DBusIDs(popupID string) []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := t.byPopup[popupID]
	out := make([]uint32, len(ids))
	copy(out, ids)
	return out
}

// Resident reports whether the id was registered resident.
func (t *Tracker) Resident(dbusID uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byDBus[dbusID].resident
}

// Detach removes a popup and returns the D-Bus ids that were riding
// it, so close signals can be emitted for each.
func (t *Tracker) Detach(popupID string) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := t.byPopup[popupID]
	delete(t.byPopup, popupID)
	for _, id := range ids {
		delete(t.byDBus, id)
	}
	return ids
}

// detachLocked removes one D-Bus id from a popup's rider list.
func (t *Tracker) detachLocked(dbusID uint32, popupID string) {
	delete(t.byDBus, dbusID)
	ids := t.byPopup[popupID]
	for i, id := range ids {
		if id == dbusID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(t.byPopup, popupID)
	} else {
		t.byPopup[popupID] = ids
	}
}

// Count returns the number of tracked popups.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byPopup)
}
