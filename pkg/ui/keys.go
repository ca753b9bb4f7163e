package ui

import "github.com/charmbracelet/bubbles/key"

// hostKeys are the bindings handled by the screen rather than the picker.
// None of them produce text, so they never collide with typing a query.
type hostKeys struct {
	Quit   key.Binding
	Back   key.Binding
	Help   key.Binding
	Copy   key.Binding
	Reload key.Binding
}

func defaultHostKeys() hostKeys {
	return hostKeys{
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close list / quit")),
		Help:   key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Copy:   key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		Reload: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
	}
}
