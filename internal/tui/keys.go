package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	Enter   key.Binding
	Back    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Left    key.Binding
	Right   key.Binding

	// Actions
	Quit          key.Binding
	ForceQuit     key.Binding
	Search        key.Binding
	ToggleFav     key.Binding
	ShowFavorites key.Binding
	Reset         key.Binding
	Refresh       key.Binding
	Add           key.Binding
	OpenWeb       key.Binding
	Preset        key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Navigation
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select/open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "prev tab"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "previous"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next"),
		),

		// Actions
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
		),
		Search: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "search"),
		),
		ToggleFav: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "favorite"),
		),
		ShowFavorites: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "saved only"),
		),
		Reset: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		OpenWeb: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "open in browser"),
		),
		Preset: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "city preset"),
		),
	}
}
