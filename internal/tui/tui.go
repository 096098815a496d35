package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	applog "github.com/shazow/wifiap/internal/log"
	"github.com/shazow/wifiap/wifi/manager"
)

// The main model for our TUI application
type model struct {
	stack    *ComponentStack
	list     *ListModel
	scanner  *ScanSchedule
	spinner  spinner.Model
	manager  manager.InterfaceManager
	ctx      context.Context
	cancel   context.CancelFunc
	status   manager.Status

	// busy is set while a manager command is in flight. The manager is not
	// safe for concurrent use, so nothing else is started until it clears.
	busy          bool
	statusMessage string
	width, height int
}

// NewModel creates the starting state of our application. logs is the
// handler whose records are shown in the dashboard; it may be nil.
func NewModel(m manager.InterfaceManager, logs *applog.Handler) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)

	scanner := NewScanSchedule(func() tea.Msg { return scanMsg{} })
	listModel := NewListModel(m, scanner, logs)
	ctx, cancel := context.WithCancel(context.Background())

	return &model{
		stack:         NewComponentStack(listModel),
		list:          listModel,
		scanner:       scanner,
		spinner:       s,
		manager:       m,
		ctx:           ctx,
		cancel:        cancel,
		busy:          true,
		statusMessage: "Scanning for networks...",
	}
}

// Init is the first command that is run when the program starts
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, scanNetworks(m.ctx, m.manager))
}

func (m *model) start(message string, cmd tea.Cmd) tea.Cmd {
	m.busy = true
	m.statusMessage = message
	return cmd
}

func (m *model) finish(status manager.Status) {
	m.busy = false
	m.statusMessage = ""
	m.status = status
	m.list.SetStatus(status)
}

// Update handles all incoming messages and updates the model accordingly
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Global messages that are not passed to components
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.stack.Resize(msg.Width, msg.Height)
		return m, nil
	case popViewMsg:
		m.stack.Pop()
		return m, nil
	case tickMsg:
		return m, m.scanner.Update(msg)
	case scanMsg:
		if m.busy {
			return m, nil
		}
		return m, m.start("Scanning for networks...", scanNetworks(m.ctx, m.manager))
	case actionMsg:
		if m.busy {
			return m, nil
		}
		return m, m.start(fmt.Sprintf("Trying to %s...", msg.verb), runAction(m.manager, msg))
	case networksMsg:
		m.finish(msg.status)
		m.list.SetNetworks(msg.networks)
		if len(msg.networks) == 0 {
			m.statusMessage = "No networks found."
		}
		return m, nil
	case actionDoneMsg:
		m.finish(msg.status)
		m.statusMessage = fmt.Sprintf("Done: %s.", msg.done)
		return m, nil
	case errorMsg:
		m.finish(msg.status)
		m.stack.Push(NewErrorModel(msg.err))
		return m, nil
	case applog.LogMsg:
		// The dashboard renders the latest records on every View.
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
	}

	cmds = append(cmds, m.stack.Update(msg))

	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)
	cmds = append(cmds, spinnerCmd)

	return m, tea.Batch(cmds...)
}

// View renders the UI based on the current model state
func (m *model) View() string {
	var s strings.Builder
	s.WriteString(m.stack.View())

	style := lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	if m.busy {
		s.WriteString(fmt.Sprintf("\n%s %s", m.spinner.View(), style.Render(m.statusMessage)))
	} else if m.statusMessage != "" {
		s.WriteString(fmt.Sprintf("\n%s", style.Render(m.statusMessage)))
	}
	return s.String()
}

// Run starts the TUI and blocks until the user quits. Records logged
// through logs are forwarded to the program while it runs.
func Run(m manager.InterfaceManager, logs *applog.Handler) error {
	mdl := NewModel(m, logs)
	defer mdl.cancel()

	p := tea.NewProgram(mdl, tea.WithAltScreen())
	if logs != nil {
		ch := make(chan tea.Msg, 16)
		done := make(chan struct{})
		logs.SetOutput(ch)
		defer close(done)
		defer logs.SetOutput(nil)
		go func() {
			for {
				select {
				case msg := <-ch:
					p.Send(msg)
				case <-done:
					return
				}
			}
		}()
	}

	_, err := p.Run()
	return err
}
