package toast

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/policywatch/internal/keys"
	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/suppress"
	"github.com/nhle/policywatch/internal/theme"
)

// exitAnimationDelay is the grace period between the user's click and the
// resolve callback, covering the slide-out animation. Presentational
// only; correctness never depends on it.
const exitAnimationDelay = 340 * time.Millisecond

// ActionType identifies what the user did to the visible notification.
type ActionType int

const (
	ActionAck ActionType = iota
	ActionClose
	ActionMute
	ActionMuteAlways
	ActionUnmute
)

// ActionMsg is emitted after the exit animation completes; the parent
// routes it into the session.
type ActionMsg struct {
	Type       ActionType
	AlertID    string
	DeliveryID string
	Duration   time.Duration
}

// animationDoneMsg fires when the exit delay for the pending action has
// elapsed.
type animationDoneMsg struct {
	action ActionMsg
}

// menuEntry is one row of the mute menu.
type menuEntry struct {
	label  string
	action ActionType
	dur    time.Duration
}

// Model renders the current queue head as a pop-up and translates key
// presses into ActionMsg values. At most one notification is shown at a
// time; the parent supplies the head on every render.
type Model struct {
	keys    *keys.KeyMap
	width   int
	current *model.Notification

	// leaving marks the exit animation in progress; input is ignored
	// until the pending action fires.
	leaving bool

	menuOpen   bool
	menuCursor int
	menu       []menuEntry
}

// New creates a toast model.
func New(k *keys.KeyMap, width int) Model {
	return Model{
		keys:  k,
		width: width,
	}
}

// SetWidth updates the rendering width.
func (m *Model) SetWidth(width int) {
	m.width = width
}

// Show updates the notification being presented. Passing nil hides the
// toast. A change of notification cancels any open mute menu.
func (m *Model) Show(n *model.Notification) {
	if n == nil || m.current == nil || n.Delivery.ID != m.current.Delivery.ID {
		m.menuOpen = false
		m.menuCursor = 0
		m.leaving = false
	}
	m.current = n
}

// Visible reports whether a notification is currently presented.
func (m Model) Visible() bool {
	return m.current != nil
}

// MenuOpen reports whether the mute menu has keyboard focus.
func (m Model) MenuOpen() bool {
	return m.menuOpen
}

// Update handles key input for the visible toast. It returns the emitted
// command, which resolves to an ActionMsg after the exit animation.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case animationDoneMsg:
		m.leaving = false
		action := msg.action
		return m, func() tea.Msg { return action }

	case tea.KeyMsg:
		if m.current == nil || m.leaving {
			return m, nil
		}
		if m.menuOpen {
			return m.updateMenu(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Ack):
			return m.depart(ActionMsg{
				Type:       ActionAck,
				AlertID:    m.current.Alert.ID,
				DeliveryID: m.current.Delivery.ID,
			})
		case key.Matches(msg, m.keys.CloseToast):
			return m.depart(ActionMsg{
				Type:       ActionClose,
				AlertID:    m.current.Alert.ID,
				DeliveryID: m.current.Delivery.ID,
			})
		case key.Matches(msg, m.keys.MuteMenu):
			m.menuOpen = true
			m.menuCursor = 0
			m.menu = buildMenu()
		}
	}

	return m, nil
}

// updateMenu handles navigation and selection inside the mute menu.
func (m Model) updateMenu(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.menuOpen = false
	case key.Matches(msg, m.keys.Down):
		if m.menuCursor < len(m.menu)-1 {
			m.menuCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case key.Matches(msg, m.keys.Select):
		entry := m.menu[m.menuCursor]
		m.menuOpen = false
		action := ActionMsg{
			Type:       entry.action,
			AlertID:    m.current.Alert.ID,
			DeliveryID: m.current.Delivery.ID,
			Duration:   entry.dur,
		}
		if entry.action == ActionUnmute {
			// Unmuting leaves the toast up; no animation needed.
			return m, func() tea.Msg { return action }
		}
		return m.depart(action)
	}
	return m, nil
}

// depart starts the exit animation and schedules the action for when it
// completes.
func (m Model) depart(action ActionMsg) (Model, tea.Cmd) {
	m.leaving = true
	return m, tea.Tick(exitAnimationDelay, func(time.Time) tea.Msg {
		return animationDoneMsg{action: action}
	})
}

// buildMenu lists the timed durations plus permanent mute, and an unmute
// row when any mute could be active.
func buildMenu() []menuEntry {
	entries := make([]menuEntry, 0, len(suppress.MuteOptions)+2)
	for _, opt := range suppress.MuteOptions {
		entries = append(entries, menuEntry{
			label:  "Mute for " + opt.Label,
			action: ActionMute,
			dur:    opt.Duration,
		})
	}
	entries = append(entries, menuEntry{
		label:  "Mute always",
		action: ActionMuteAlways,
	})
	entries = append(entries, menuEntry{
		label:  "Unmute",
		action: ActionUnmute,
	})
	return entries
}

// View renders the toast panel, or an empty string when nothing is
// visible.
func (m Model) View() string {
	if m.current == nil {
		return ""
	}

	n := m.current

	header := lipgloss.NewStyle().Bold(true).
		Foreground(theme.ColorWhite).
		Render(fmt.Sprintf("%s · %s", n.Item.SourceName, n.Item.Title))

	var impact string
	if n.Item.ImpactScore != 0 {
		impact = theme.ImpactStyle(n.Item.ImpactScore).
			Render(fmt.Sprintf("impact %+.2f", n.Item.ImpactScore))
		if detail := n.Item.ImpactDetail(); detail != nil && detail.OverallWhy != "" {
			impact += " " + theme.HelpStyle.Render(detail.OverallWhy)
		}
	}

	meta := theme.HelpStyle.Render(fmt.Sprintf(
		"%s · delivered %s",
		n.Item.Status,
		n.Delivery.DeliveredAt.Local().Format("Jan 2 15:04"),
	))

	body := lipgloss.NewStyle().
		Width(m.width - 8).
		Render(n.Item.Summary)

	sections := []string{header}
	if impact != "" {
		sections = append(sections, impact)
	}
	sections = append(sections, meta, body)

	if m.menuOpen {
		sections = append(sections, m.renderMenu())
	} else {
		sections = append(sections, theme.HelpStyle.Render(
			"a got it · x close · m mute…",
		))
	}

	style := theme.ToastStyle.Width(m.width - 4)
	if m.leaving {
		style = style.Faint(true)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderMenu renders the mute menu rows with the cursor highlighted.
func (m Model) renderMenu() string {
	rows := make([]string, 0, len(m.menu))
	for i, entry := range m.menu {
		if i == m.menuCursor {
			rows = append(rows, theme.SelectedItemStyle.Render(entry.label))
			continue
		}
		rows = append(rows, theme.ListItemStyle.Render(entry.label))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

