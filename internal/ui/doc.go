// Package ui projects the authentication state onto what the visitor sees.
//
// [Project] is pure: it maps a [models.AuthState] to a [Projection] describing the header
// (login and register buttons, or the user dropdown) and one reservation button per spectacle.
// [Render] prints a projection for command output.
//
// [Model] is the bubbletea view used by the watch command. It receives state changes as
// [StateChanged] messages and dispatches reservation, login, logout and recheck actions back to
// its [Controller]. Keyboard navigation uses vim-style bindings (j/k, enter, l, o, r, q).
package ui
