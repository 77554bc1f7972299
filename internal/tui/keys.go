package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the operator key bindings.
type KeyMap struct {
	Gun     key.Binding
	Camera  key.Binding
	Stop    key.Binding
	Print   key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Gun: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "barcode gun"),
		),
		Camera: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "camera"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop scanning"),
		),
		Print: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "print badge"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "next scan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
