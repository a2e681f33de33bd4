package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toast/internal/dbus"
	"toast/internal/notify"
)

func entry(summary string) Entry {
	return Entry{
		Time:    time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		AppName: "mail",
		Summary: summary,
		Body:    "you have mail",
		Urgency: notify.UrgencyNormal,
		Value:   -1,
	}
}

// ready returns a model that has seen a window size.
func ready(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestEntryFromRequest(t *testing.T) {
	req := &dbus.Request{AppName: "mail", Summary: "hi", Body: "text"}
	req.SetUrgency(notify.UrgencyCritical)
	req.SetValue(30)

	e := EntryFromRequest(req, 7)

	assert.Equal(t, uint32(7), e.ID)
	assert.Equal(t, "mail", e.AppName)
	assert.Equal(t, "hi", e.Summary)
	assert.Equal(t, notify.UrgencyCritical, e.Urgency)
	assert.Equal(t, 30, e.Value)
	assert.False(t, e.Time.IsZero())
}

func TestEntryPlain(t *testing.T) {
	e := entry("Build finished")
	assert.Equal(t, "09:30:00 normal   mail: Build finished | you have mail", e.Plain())
}

func TestEntryPlainProgressAndMultiline(t *testing.T) {
	e := entry("Copying")
	e.Value = 40
	e.Body = "line one\nline two"
	assert.Equal(t, "09:30:00 normal   mail: Copying [40%] | line one line two", e.Plain())
}

func TestEntryPlainNoBody(t *testing.T) {
	e := entry("Ping")
	e.Body = ""
	assert.Equal(t, "09:30:00 normal   mail: Ping", e.Plain())
}

func TestFeedPrependsNewestFirst(t *testing.T) {
	m := ready(t, New(nil, ""))

	next, cmd := m.Update(entryMsg{entry: entry("first")})
	m = next.(Model)
	next, _ = m.Update(entryMsg{entry: entry("second")})
	m = next.(Model)

	require.Len(t, m.entries, 2)
	assert.Equal(t, "second", m.entries[0].Summary)
	assert.Equal(t, "first", m.entries[1].Summary)
	assert.NotNil(t, cmd, "feed should re-arm the channel wait")
}

func TestFeedCapsEntries(t *testing.T) {
	m := ready(t, New(nil, ""))

	for i := 0; i < feedCap+10; i++ {
		next, _ := m.Update(entryMsg{entry: entry("n")})
		m = next.(Model)
	}

	assert.Len(t, m.entries, feedCap)
}

func TestClearKeyEmptiesFeed(t *testing.T) {
	m := ready(t, New(nil, ""))
	next, _ := m.Update(entryMsg{entry: entry("a")})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	m = next.(Model)

	assert.Empty(t, m.entries)
}

func TestPauseKeepsCollecting(t *testing.T) {
	m := ready(t, New(nil, ""))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m = next.(Model)
	assert.True(t, m.paused)

	next, _ = m.Update(entryMsg{entry: entry("while paused")})
	m = next.(Model)
	assert.Len(t, m.entries, 1)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m = next.(Model)
	assert.False(t, m.paused)
}

func TestQuitKey(t *testing.T) {
	m := ready(t, New(nil, ""))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestFeedClosedShowsDisconnect(t *testing.T) {
	m := ready(t, New(nil, ""))

	next, _ := m.Update(feedClosedMsg{})
	m = next.(Model)

	assert.True(t, m.closed)
	assert.Contains(t, m.View(), "disconnected")
}

func TestViewShowsEntries(t *testing.T) {
	m := ready(t, New(nil, ""))
	next, _ := m.Update(entryMsg{entry: entry("quarterly report")})
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "quarterly report")
	assert.Contains(t, view, "Notification Monitor")
}

func TestHelpToggle(t *testing.T) {
	m := ready(t, New(nil, ""))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	m = next.(Model)

	assert.Contains(t, m.View(), "Keyboard Shortcuts")
}
