package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/services"
)

// Controller is the part of the reconciler the TUI dispatches to. The model never changes
// auth state itself.
type Controller interface {
	State() models.AuthState
	Open(target string) error
	Logout(ctx context.Context) error
}

// Options wires a [Model].
type Options struct {
	Controller Controller
	Endpoints  services.Endpoints
	Spectacles []models.Spectacle
	PageURL    string
	// Recheck queues a reconciliation pass and reports whether it was accepted.
	Recheck func() bool
}

// Model is the watch view: header state plus one reservation button per spectacle.
type Model struct {
	ctx        context.Context
	controller Controller
	endpoints  services.Endpoints
	spectacles []models.Spectacle
	pageURL    string
	recheck    func() bool

	state      models.AuthState
	projection Projection
	buttons    list.Model
	status     string
	err        error
	width      int
	height     int
	help       help.Model
	keys       keyMap
}

func NewModel(ctx context.Context, opts Options) *Model {
	m := &Model{
		ctx:        ctx,
		controller: opts.Controller,
		endpoints:  opts.Endpoints,
		spectacles: opts.Spectacles,
		pageURL:    opts.PageURL,
		recheck:    opts.Recheck,
		help:       help.New(),
		keys:       newKeyMap(),
		width:      80,
		height:     24,
	}

	m.buttons = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.buttons.Title = "Spectacles"
	m.buttons.SetShowHelp(false)
	m.buttons.SetFilteringEnabled(false)
	m.resize()

	m.apply(opts.Controller.State())
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgStateChanged:
			if state, ok := msg.data.(models.AuthState); ok {
				m.apply(state)
			}
		case MsgActionDone:
			if res, ok := msg.data.(actionResult); ok {
				m.err = res.err
				if res.err == nil {
					m.status = res.action
				}
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.buttons, cmd = m.buttons.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(RenderHeader(m.projection))
	b.WriteString("\n")
	b.WriteString(m.buttons.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(styles.help.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

// Projection returns what is currently shown.
func (m *Model) Projection() Projection { return m.projection }

func (m *Model) apply(state models.AuthState) {
	m.state = state.Clone()
	m.projection = Project(m.state, m.endpoints, m.spectacles, m.pageURL)
	m.buttons.SetItems(buttonItems(m.projection.Buttons))
}

func (m *Model) resize() {
	m.buttons.SetSize(m.width-4, max(m.height-12, 6))
}

func (m *Model) helpKeys() []key.Binding {
	if m.projection.Authenticated {
		return []key.Binding{m.keys.up, m.keys.down, m.keys.reserve, m.keys.logout, m.keys.recheck, m.keys.quit}
	}
	return []key.Binding{m.keys.up, m.keys.down, m.keys.reserve, m.keys.login, m.keys.recheck, m.keys.quit}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reserve):
		if item, ok := m.buttons.SelectedItem().(buttonItem); ok {
			return m, m.open(item.button.Link, fmt.Sprintf("%s: %s", item.button.Title, item.button.Label))
		}
		return m, nil
	case key.Matches(msg, m.keys.login):
		if !m.projection.AuthButtons {
			return m, nil
		}
		return m, m.open(m.projection.Login, "login page opened")
	case key.Matches(msg, m.keys.logout):
		if !m.projection.DropdownVisible {
			return m, nil
		}
		return m, m.logout()
	case key.Matches(msg, m.keys.recheck):
		if m.recheck == nil {
			return m, nil
		}
		if m.recheck() {
			m.status = "recheck queued"
		} else {
			m.status = "recheck throttled"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.buttons, cmd = m.buttons.Update(msg)
	return m, cmd
}

func (m *Model) open(l Link, done string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg(done, m.controller.Open(l.URL))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg("logged out", m.controller.Logout(m.ctx))
	}
}
