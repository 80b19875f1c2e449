package alertmgr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/policywatch/internal/api"
	"github.com/nhle/policywatch/internal/keys"
	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/store"
	"github.com/nhle/policywatch/internal/theme"
)

// requestTimeout bounds each directory call made by the view.
const requestTimeout = 30 * time.Second

// AlertsLoadedMsg carries the refreshed alert list.
type AlertsLoadedMsg struct {
	Alerts    []model.Alert
	FromCache bool
	Err       error
}

// AlertSavedMsg is dispatched after a create or update completes.
type AlertSavedMsg struct {
	Alert *model.Alert
	Err   error
}

// AlertDeletedMsg is dispatched after a delete completes.
type AlertDeletedMsg struct {
	AlertID string
	Err     error
}

// ToggleMuteMsg asks the parent to flip the permanent mute flag through
// the session, so the notification queue is stripped in the same step.
type ToggleMuteMsg struct {
	AlertID string
	Muted   bool
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	sourceKey  string
	statuses   string
	categories string
	enabled    bool
}

// Model is the alert directory manager: a list of the user's alerts with
// create/edit/delete and enable/mute toggles.
type Model struct {
	client *api.Client
	store  store.Store
	keys   *keys.KeyMap

	alerts  []model.Alert
	cursor  int
	loading bool
	errText string

	form     *huh.Form
	fb       *formBindings
	editMode bool
	editRow  model.Alert

	width  int
	height int
}

// New creates an alert manager view.
func New(client *api.Client, s store.Store, k *keys.KeyMap, width, height int) Model {
	return Model{
		client: client,
		store:  s,
		keys:   k,
		fb:     &formBindings{enabled: true},
		width:  width,
		height: height,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Load refreshes the alert list from the directory, falling back to the
// local cache when the network call fails. A successful fetch refreshes
// the cache.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	client := m.client
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		alerts, err := client.ListAlerts(ctx)
		if err != nil {
			cached, cacheErr := s.GetAlerts(ctx)
			if cacheErr != nil || cached == nil {
				return AlertsLoadedMsg{Err: err}
			}
			return AlertsLoadedMsg{Alerts: cached, FromCache: true, Err: err}
		}

		// Cache failures are not fatal; the list still renders.
		_ = s.ReplaceAlerts(ctx, alerts)
		return AlertsLoadedMsg{Alerts: alerts}
	}
}

// Update handles messages for the alert manager.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case AlertsLoadedMsg:
		m.loading = false
		if msg.Err != nil && !msg.FromCache {
			m.errText = msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		if msg.FromCache {
			m.errText = "offline: showing cached alerts"
		}
		m.alerts = msg.Alerts
		if m.cursor >= len(m.alerts) {
			m.cursor = max(0, len(m.alerts)-1)
		}
		return m, nil

	case AlertSavedMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		return m, m.Load()

	case AlertDeletedMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		return m, m.Load()

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

// updateKeys handles list navigation and row actions.
func (m Model) updateKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.alerts)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()
	case key.Matches(msg, m.keys.NewAlert):
		return m, m.startCreate()
	case key.Matches(msg, m.keys.EditAlert):
		if a := m.selected(); a != nil {
			return m, m.startEdit(*a)
		}
	case key.Matches(msg, m.keys.DeleteAlert):
		if a := m.selected(); a != nil {
			return m, m.deleteAlert(a.ID)
		}
	case key.Matches(msg, m.keys.ToggleEnabled):
		if a := m.selected(); a != nil {
			return m, m.toggleEnabled(*a)
		}
	case key.Matches(msg, m.keys.ToggleMuted):
		if a := m.selected(); a != nil {
			muted := a.Muted
			id := a.ID
			// Routed through the session so mute-always also strips
			// the queue.
			return m, func() tea.Msg {
				return ToggleMuteMsg{AlertID: id, Muted: muted}
			}
		}
	}
	return m, nil
}

// updateForm routes messages into the active huh form.
func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		submit := m.handleSubmit()
		m.form = nil
		return m, submit
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, nil
	}

	return m, cmd
}

// selected returns the alert under the cursor, or nil.
func (m *Model) selected() *model.Alert {
	if m.cursor < 0 || m.cursor >= len(m.alerts) {
		return nil
	}
	return &m.alerts[m.cursor]
}

// startCreate opens the form for a new alert.
func (m *Model) startCreate() tea.Cmd {
	m.editMode = false
	m.fb.sourceKey = ""
	m.fb.statuses = ""
	m.fb.categories = ""
	m.fb.enabled = true
	m.form = m.buildForm()
	return m.form.Init()
}

// startEdit opens the form pre-filled with an existing row.
func (m *Model) startEdit(a model.Alert) tea.Cmd {
	m.editMode = true
	m.editRow = a
	m.fb.sourceKey = a.SourceKey
	m.fb.statuses = strings.Join(a.Statuses, ", ")
	m.fb.categories = strings.Join(a.Categories, ", ")
	m.fb.enabled = a.Enabled
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Source key").
				Placeholder("federal_register").
				Value(&m.fb.sourceKey).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("source key is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Statuses").
				Placeholder("comma-separated, empty for all").
				Value(&m.fb.statuses),
			huh.NewInput().
				Title("Categories").
				Placeholder("comma-separated, empty for all").
				Value(&m.fb.categories),
			huh.NewConfirm().
				Title("Enabled").
				Value(&m.fb.enabled),
		),
	).WithWidth(m.width - 4)
}

// handleSubmit turns the form values into a create or update call.
func (m *Model) handleSubmit() tea.Cmd {
	in := api.AlertIn{
		SourceKey:  strings.TrimSpace(m.fb.sourceKey),
		Statuses:   splitList(m.fb.statuses),
		Categories: splitList(m.fb.categories),
		Enabled:    m.fb.enabled,
	}
	if m.editMode {
		in.Muted = m.editRow.Muted
	}

	client := m.client
	s := m.store
	editMode := m.editMode
	editID := m.editRow.ID

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			alert *model.Alert
			err   error
		)
		if editMode {
			alert, err = client.UpdateAlert(ctx, editID, in)
		} else {
			alert, err = client.CreateAlert(ctx, in)
		}
		if err != nil {
			return AlertSavedMsg{Err: err}
		}
		_ = s.UpsertAlert(ctx, *alert)
		return AlertSavedMsg{Alert: alert}
	}
}

// toggleEnabled flips the enabled flag with a full-object update.
func (m *Model) toggleEnabled(a model.Alert) tea.Cmd {
	in := api.AlertInFrom(a)
	in.Enabled = !a.Enabled

	client := m.client
	s := m.store

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		updated, err := client.UpdateAlert(ctx, a.ID, in)
		if err != nil {
			return AlertSavedMsg{Err: err}
		}
		_ = s.UpsertAlert(ctx, *updated)
		return AlertSavedMsg{Alert: updated}
	}
}

// deleteAlert removes a row from the directory and the cache.
func (m *Model) deleteAlert(id string) tea.Cmd {
	client := m.client
	s := m.store

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := client.DeleteAlert(ctx, id); err != nil {
			return AlertDeletedMsg{AlertID: id, Err: err}
		}
		_ = s.DeleteAlert(ctx, id)
		return AlertDeletedMsg{AlertID: id}
	}
}

// View renders the alert list or the active form.
func (m Model) View() string {
	if m.form != nil {
		title := "New Alert"
		if m.editMode {
			title = "Edit Alert"
		}
		titleStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1)
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(titleStyle.Render(title) + "\n" + m.form.View())
	}

	var b strings.Builder

	if m.loading {
		b.WriteString(theme.HelpStyle.Render("Loading alerts…"))
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errText))
		b.WriteString("\n")
	}

	if len(m.alerts) == 0 && !m.loading {
		b.WriteString(theme.HelpStyle.Render("No alerts. Press n to create one."))
	}

	for i, a := range m.alerts {
		line := renderAlertLine(a)
		if i == m.cursor {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(
		"n new · e edit · d delete · space enable · u mute/unmute · r refresh",
	))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// renderAlertLine formats one alert row.
func renderAlertLine(a model.Alert) string {
	var flags []string
	if !a.Enabled {
		flags = append(flags, "disabled")
	}
	if a.Muted {
		flags = append(flags, theme.MutedLabelStyle.Render("muted"))
	}

	line := a.SourceKey
	if len(a.Statuses) > 0 {
		line += " · " + strings.Join(a.Statuses, ",")
	}
	if len(a.Categories) > 0 {
		line += " · " + strings.Join(a.Categories, ",")
	}
	if len(flags) > 0 {
		line += "  [" + strings.Join(flags, " ") + "]"
	}
	return line
}

// splitList parses a comma-separated input into a trimmed string slice.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
