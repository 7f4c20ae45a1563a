package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	reserve key.Binding
	login   key.Binding
	logout  key.Binding
	recheck key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		reserve: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "reserve")),
		login:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "login")),
		logout:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "logout")),
		recheck: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recheck")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.reserve, k.recheck, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.reserve},
		{k.login, k.logout, k.recheck},
		{k.quit},
	}
}
