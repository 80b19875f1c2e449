package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Session
	SignOut key.Binding

	// Toast actions
	Ack        key.Binding
	CloseToast key.Binding
	MuteMenu   key.Binding

	// Alert manager actions
	NewAlert      key.Binding
	EditAlert     key.Binding
	DeleteAlert   key.Binding
	ToggleEnabled key.Binding
	ToggleMuted   key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "sign out"),
		),
		Ack: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "got it"),
		),
		CloseToast: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close"),
		),
		MuteMenu: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute…"),
		),
		NewAlert: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new alert"),
		),
		EditAlert: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit alert"),
		),
		DeleteAlert: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete alert"),
		),
		ToggleEnabled: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "enable/disable"),
		),
		ToggleMuted: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "mute/unmute"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Ack, k.CloseToast,
		k.MuteMenu, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Ack, k.CloseToast, k.MuteMenu},
		{k.NewAlert, k.EditAlert, k.DeleteAlert, k.ToggleEnabled, k.ToggleMuted},
		{k.Refresh, k.Help, k.SignOut},
	}
}
