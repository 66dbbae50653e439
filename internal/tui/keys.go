package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the client.
type KeyMap struct {
	Enroll key.Binding
	Close  key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Enroll: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "enter round"),
		),
		Close: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "close entries"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
