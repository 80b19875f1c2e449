package app

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nhle/policywatch/internal/api"
	"github.com/nhle/policywatch/internal/credential"
	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/notify"
	"github.com/nhle/policywatch/internal/sound"
	"github.com/nhle/policywatch/internal/store"
	"github.com/nhle/policywatch/internal/suppress"
	"github.com/nhle/policywatch/internal/theme"
	"github.com/nhle/policywatch/internal/ui"
	"github.com/nhle/policywatch/internal/ui/alertmgr"
	"github.com/nhle/policywatch/internal/ui/toast"
)

// tokenLoadedMsg carries the result of reading the stored credential.
type tokenLoadedMsg struct {
	token string
	err   error
}

// signinBindings keeps the token input on the heap so huh's Value()
// pointer survives Bubble Tea model copies.
type signinBindings struct {
	token string
}

// Model is the root Bubble Tea model: it owns the session lifecycle and
// routes input between the sign-in form, the alert manager, and the
// notification toast.
type Model struct {
	cfg   *model.AppConfig
	store *store.SQLiteStore
	log   *zap.Logger
	keys  *KeyMap

	layout ui.Layout
	gate   *sound.Gate

	client  *api.Client
	session *notify.Session

	alertView alertmgr.Model
	toast     toast.Model
	helpView  help.Model
	showHelp  bool

	signinForm *huh.Form
	sb         *signinBindings

	statusText string
	ready      bool
}

// New creates the root application model.
func New(cfg *model.AppConfig, s *store.SQLiteStore, log *zap.Logger) Model {
	keys := DefaultKeyMap()
	return Model{
		cfg:      cfg,
		store:    s,
		log:      log,
		keys:     keys,
		layout:   ui.NewLayout(80, 24),
		gate:     sound.NewGate(sound.BellPlayer{}, cfg.Sound.Enabled),
		toast:    toast.New(keys, 80),
		helpView: help.New(),
		sb:       &signinBindings{},
	}
}

// Init loads the stored credential; the session activates once it
// arrives.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		token, err := credential.Token()
		return tokenLoadedMsg{token: token, err: err}
	}
}

// Update routes messages to the session and the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.toast.SetWidth(msg.Width)
		m.alertView.SetSize(msg.Width, m.layout.ContentHeight())
		m.helpView.Width = msg.Width
		m.ready = true
		return m, nil

	case tokenLoadedMsg:
		if msg.token == "" {
			return m.startSignin(), nil
		}
		return m.signIn(msg.token)

	case notify.PollResultMsg:
		if m.session == nil {
			return m, nil
		}
		m.session.ApplyPoll(msg)
		m.toast.Show(m.session.Head())
		return m, m.session.WaitForNextResult()

	case notify.AckResultMsg:
		if m.session == nil {
			return m, nil
		}
		m.session.ApplyAckResult(msg)
		m.toast.Show(m.session.Head())
		return m, nil

	case toast.ActionMsg:
		return m.applyToastAction(msg)

	case alertmgr.ToggleMuteMsg:
		return m.applyMuteToggle(msg)

	case alertmgr.AlertsLoadedMsg, alertmgr.AlertSavedMsg, alertmgr.AlertDeletedMsg:
		var cmd tea.Cmd
		m.alertView, cmd = m.alertView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	// Forms, timers, and spinners need the remaining message types. The
	// toast is included: its exit-animation tick must come back to it or
	// the pending action never resolves.
	if m.signinForm != nil {
		return m.updateSignin(msg)
	}
	var toastCmd, viewCmd tea.Cmd
	m.toast, toastCmd = m.toast.Update(msg)
	m.alertView, viewCmd = m.alertView.Update(msg)
	return m, tea.Batch(toastCmd, viewCmd)
}

// updateKeys handles one key press. The first gesture of the process
// unlocks the audio gate.
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.gate.Unlock()

	if m.signinForm != nil {
		return m.updateSignin(msg)
	}

	// The mute menu owns the keyboard while open.
	if m.toast.MenuOpen() {
		var cmd tea.Cmd
		m.toast, cmd = m.toast.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.SignOut):
		return m.signOut()

	case m.toast.Visible() &&
		(key.Matches(msg, m.keys.Ack) ||
			key.Matches(msg, m.keys.CloseToast) ||
			key.Matches(msg, m.keys.MuteMenu)):
		var cmd tea.Cmd
		m.toast, cmd = m.toast.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.alertView, cmd = m.alertView.Update(msg)
	return m, cmd
}

// applyToastAction resolves a toast action against the session.
func (m Model) applyToastAction(msg toast.ActionMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}

	var cmd tea.Cmd
	switch msg.Type {
	case toast.ActionAck:
		cmd = m.session.Acknowledge(msg.DeliveryID)
	case toast.ActionClose:
		if err := m.session.Close(msg.AlertID); err != nil {
			m.statusText = err.Error()
		}
	case toast.ActionMute:
		if err := m.session.Mute(msg.AlertID, msg.Duration); err != nil {
			m.statusText = err.Error()
		}
	case toast.ActionMuteAlways:
		if _, err := m.session.MuteAlways(msg.AlertID); err != nil {
			m.statusText = err.Error()
		}
	case toast.ActionUnmute:
		if err := m.session.Unmute(msg.AlertID); err != nil {
			m.statusText = err.Error()
		}
	}

	m.toast.Show(m.session.Head())
	return m, cmd
}

// applyMuteToggle flips the permanent mute flag from the manager view.
// Routed through the session so muting also strips the queue.
func (m Model) applyMuteToggle(msg alertmgr.ToggleMuteMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}

	var err error
	if msg.Muted {
		err = m.session.Unmute(msg.AlertID)
	} else {
		_, err = m.session.MuteAlways(msg.AlertID)
	}
	if err != nil {
		m.statusText = err.Error()
	}
	m.toast.Show(m.session.Head())
	return m, m.alertView.Load()
}

// signIn builds the API client and session for a credential and
// activates polling.
func (m Model) signIn(token string) (tea.Model, tea.Cmd) {
	m.client = api.NewClient(m.cfg.Server.BaseURL, token)
	sup := suppress.New(m.store, m.client)
	interval := time.Duration(m.cfg.Server.PollIntervalSec) * time.Second
	m.session = notify.NewSession(m.client, m.client, sup, m.gate, m.log, interval)
	m.alertView = alertmgr.New(m.client, m.store, m.keys, m.layout.Width, m.layout.ContentHeight())
	m.signinForm = nil
	m.statusText = ""

	return m, tea.Batch(m.session.Activate(), m.alertView.Load())
}

// signOut tears the session down and returns to the sign-in form. The
// queue is cleared with it.
func (m Model) signOut() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Deactivate()
		m.session = nil
	}
	m.client = nil
	m.toast.Show(nil)
	if err := credential.DeleteToken(); err != nil {
		m.statusText = err.Error()
	}
	return m.startSignin(), nil
}

// startSignin opens the token entry form.
func (m Model) startSignin() Model {
	m.sb.token = ""
	m.signinForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API token").
				Description("Paste the bearer token from your policywatch account page.").
				EchoMode(huh.EchoModePassword).
				Value(&m.sb.token),
		),
	).WithWidth(60)
	return m
}

// updateSignin routes messages into the sign-in form.
func (m Model) updateSignin(msg tea.Msg) (tea.Model, tea.Cmd) {
	mdl, cmd := m.signinForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.signinForm = f
	}

	if m.signinForm.State == huh.StateCompleted {
		token := m.sb.token
		if token == "" {
			return m.startSignin(), nil
		}
		if err := credential.SetToken(token); err != nil {
			m.statusText = err.Error()
		}
		return m.signIn(token)
	}

	return m, cmd
}

// View renders the frame: header, active view, toast overlay, status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	if m.signinForm != nil {
		title := lipgloss.NewStyle().Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1).
			Render("Sign in to policywatch")
		return lipgloss.NewStyle().Padding(1, 2).
			Render(title + "\n" + m.signinForm.View())
	}

	header := m.layout.RenderHeader("policywatch", m.syncLabel())

	content := m.alertView.View()
	if m.showHelp {
		content = m.helpView.FullHelpView(m.keys.FullHelp())
	}
	var overlay string
	if m.toast.Visible() {
		overlay = m.toast.View()
	}

	hints := m.statusText
	if hints == "" {
		hints = m.helpView.ShortHelpView(m.keys.ShortHelp())
	}
	statusBar := m.layout.RenderStatusBar(hints)

	return m.layout.Frame(header, overlay, content, statusBar)
}

// syncLabel summarizes the session state for the header.
func (m Model) syncLabel() string {
	if m.session == nil || !m.session.Active() {
		return "signed out"
	}
	if n := m.session.Pending(); n > 0 {
		return lipgloss.NewStyle().Bold(true).Render(
			"● " + strconv.Itoa(n) + " pending",
		)
	}
	return "watching"
}
