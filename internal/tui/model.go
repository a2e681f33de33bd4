// Package tui implements the live notification feed behind toast monitor.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"toast/internal/dbus"
	"toast/internal/notify"
)

// feedCap bounds the number of entries kept in memory.
const feedCap = 500

// Entry is one captured Notify call.
type Entry struct {
	Time    time.Time
	ID      uint32
	AppName string
	Summary string
	Body    string
	Urgency notify.Urgency
	Value   int // progress percentage, -1 when absent
}

// EntryFromRequest converts a captured bus request into a feed entry.
func EntryFromRequest(req *dbus.Request, id uint32) Entry {
	return Entry{
		Time:    time.Now(),
		ID:      id,
		AppName: req.AppName,
		Summary: req.Summary,
		Body:    req.Body,
		Urgency: req.Urgency(),
		Value:   req.Value(),
	}
}

// Plain renders the entry as a single log line for non-TTY output.
func (e Entry) Plain() string {
	s := fmt.Sprintf("%s %-8s %s: %s",
		e.Time.Format("15:04:05"),
		e.Urgency.String(),
		e.AppName,
		e.Summary)
	if e.Value >= 0 {
		s += fmt.Sprintf(" [%d%%]", e.Value)
	}
	if e.Body != "" {
		s += " | " + strings.ReplaceAll(e.Body, "\n", " ")
	}
	return s
}

// Model is the monitor feed model.
type Model struct {
	events <-chan Entry

	// Components
	viewport viewport.Model
	help     help.Model

	// State
	entries  []Entry // newest first
	paused   bool
	closed   bool
	showHelp bool
	width    int
	height   int
	ready    bool

	// Key bindings
	keys KeyMap

	// Clipboard command, empty means auto-detect
	clipboardCmd string

	// Status message
	statusMsg string
	statusErr bool
}

// New creates a monitor feed fed from the given channel. The channel
// closing ends the feed but not the program.
func New(events <-chan Entry, clipboardCmd string) Model {
	return Model{
		events:       events,
		help:         help.New(),
		keys:         DefaultKeyMap(),
		clipboardCmd: clipboardCmd,
	}
}

// Init starts waiting for captured notifications.
func (m Model) Init() tea.Cmd {
	return m.waitForEntry
}

// waitForEntry blocks on the capture channel.
func (m Model) waitForEntry() tea.Msg {
	e, ok := <-m.events
	if !ok {
		return feedClosedMsg{}
	}
	return entryMsg{entry: e}
}

type entryMsg struct {
	entry Entry
}

type feedClosedMsg struct{}

type statusNote struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// One line of header, one of footer
		vpHeight := msg.Height - 2
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderFeed())
		return m, nil

	case entryMsg:
		m.entries = append([]Entry{msg.entry}, m.entries...)
		if len(m.entries) > feedCap {
			m.entries = m.entries[:feedCap]
		}
		if m.ready && !m.paused {
			atTop := m.viewport.YOffset == 0
			m.viewport.SetContent(m.renderFeed())
			if atTop {
				m.viewport.GotoTop()
			}
		}
		return m, m.waitForEntry

	case feedClosedMsg:
		m.closed = true
		m.statusMsg = "monitor disconnected"
		m.statusErr = true
		return m, nil

	case statusNote:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusNote{text: "Copy failed: " + msg.err.Error(), isErr: true}
			}
		}
		return m, func() tea.Msg {
			return statusNote{text: "Copied to clipboard"}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKey dispatches key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.entries = nil
		if m.ready {
			m.viewport.SetContent(m.renderFeed())
		}
		return m, func() tea.Msg {
			return statusNote{text: "Feed cleared"}
		}

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if m.ready && !m.paused {
			m.viewport.SetContent(m.renderFeed())
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if len(m.entries) == 0 {
			return m, nil
		}
		return m, m.copyEntry(m.entries[0])

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// copyEntry copies an entry's text to the system clipboard.
func (m Model) copyEntry(e Entry) tea.Cmd {
	text := e.Summary
	if e.Body != "" {
		text += "\n" + e.Body
	}
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, m.clipboardCmd)}
	}
}

// View renders the feed.
func (m Model) View() string {
	if !m.ready {
		return "Waiting for notifications..."
	}
	if m.showHelp {
		return m.viewHelp()
	}
	return m.viewHeader() + "\n" + m.viewport.View() + "\n" + m.viewFooter()
}

func (m Model) viewHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	s := titleStyle.Render("Notification Monitor")
	s += dimStyle.Render(fmt.Sprintf("  %d captured", len(m.entries)))
	if m.paused {
		s += lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Render("  [paused]")
	}
	if m.closed {
		s += lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Render("  [disconnected]")
	}
	return s
}

func (m Model) viewFooter() string {
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		return statusStyle.Render(m.statusMsg)
	}
	return m.help.View(m.keys)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"

	s += sectionStyle.Render("Navigation") + "\n"
	s += keyStyle.Render("  j/k, ↑/↓") + "     Scroll up/down\n"
	s += keyStyle.Render("  g/G") + "          Go to top/bottom\n"
	s += keyStyle.Render("  pgup/pgdn") + "    Page up/down\n"
	s += "\n"

	s += sectionStyle.Render("Actions") + "\n"
	s += keyStyle.Render("  p/space") + "      Pause the feed\n"
	s += keyStyle.Render("  c") + "            Clear captured entries\n"
	s += keyStyle.Render("  y") + "            Copy newest to clipboard\n"
	s += "\n"

	s += sectionStyle.Render("Global") + "\n"
	s += keyStyle.Render("  ?") + "            Toggle this help\n"
	s += keyStyle.Render("  q") + "            Quit\n"

	return s
}

// renderFeed renders all entries, newest first.
func (m Model) renderFeed() string {
	if len(m.entries) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Render("No notifications captured yet.")
	}

	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		blocks = append(blocks, m.renderEntry(e))
	}
	return strings.Join(blocks, "\n\n")
}

// renderEntry renders one entry as a two or three line block.
func (m Model) renderEntry(e Entry) string {
	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	appStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("14"))

	summaryStyle := lipgloss.NewStyle().
		Bold(true)

	header := dimStyle.Render(e.Time.Format("15:04:05")) + " " +
		appStyle.Render(e.AppName) + " " +
		urgencyBadge(e.Urgency)

	s := header + "\n" + summaryStyle.Render(e.Summary)
	if e.Value >= 0 {
		s += dimStyle.Render(fmt.Sprintf(" %d%%", e.Value))
	}
	if e.Body != "" {
		s += "\n" + dimStyle.Render(strings.ReplaceAll(e.Body, "\n", " "))
	}
	return s
}

// urgencyBadge renders the urgency marker for an entry header.
func urgencyBadge(u notify.Urgency) string {
	switch u {
	case notify.UrgencyLow:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Render("low")
	case notify.UrgencyCritical:
		return lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9")).
			Render("CRITICAL")
	default:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Render("normal")
	}
}
