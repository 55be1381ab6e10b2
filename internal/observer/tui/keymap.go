package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the observer keybindings.
type KeyMap struct {
	// Stop asks the scheduler to stop and closes the UI.
	Stop key.Binding

	// Clear empties the recent-activity pane.
	Clear key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Stop: key.NewBinding(
			key.WithKeys("s", "q", "ctrl+c"),
			key.WithHelp("s/q", "stop"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear log"),
		),
	}
}

// ShortHelp returns the bindings shown in the help line.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Clear}
}

// FullHelp returns all bindings grouped for the expanded help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
