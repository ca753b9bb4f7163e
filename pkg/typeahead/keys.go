package typeahead

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap binds terminal keys to navigation keys.
type KeyMap struct {
	Down    key.Binding
	Up      key.Binding
	Confirm key.Binding
	Close   key.Binding
	Leave   key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Down:    key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next")),
		Up:      key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "previous")),
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Leave:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "leave")),
	}
}

// Resolve maps a key message to a navigation key.
func (km KeyMap) Resolve(msg tea.KeyMsg) Key {
	switch {
	case key.Matches(msg, km.Down):
		return KeyDown
	case key.Matches(msg, km.Up):
		return KeyUp
	case key.Matches(msg, km.Confirm):
		return KeyEnter
	case key.Matches(msg, km.Close):
		return KeyEscape
	case key.Matches(msg, km.Leave):
		return KeyTab
	}
	return KeyOther
}

// ShortHelp lists the bindings shown in a help line.
func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Down, km.Up, km.Confirm, km.Close}
}
