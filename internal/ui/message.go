package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/edjs/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStateChanged MsgKind = iota
	MsgActionDone
)

// actionResult reports the outcome of a dispatched action.
type actionResult struct {
	action string
	err    error
}

// StateChanged is sent by the reconciler subscription whenever the authoritative state changes.
func StateChanged(state models.AuthState) Msg {
	return Msg{kind: MsgStateChanged, data: state}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{action: action, err: err}}
}

func (m Msg) Kind() MsgKind { return m.kind }

// Sender receives messages from outside the event loop. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward returns an observer that delivers every state change to s in emission order.
// Each call blocks until s has taken the message, so it must not run on s's own event loop.
func Forward(s Sender) func(models.AuthState) {
	return func(state models.AuthState) {
		s.Send(StateChanged(state))
	}
}
