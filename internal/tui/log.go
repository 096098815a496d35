package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	applog "github.com/shazow/wifiap/internal/log"
)

// LogViewModel shows the records kept by a log handler.
type LogViewModel struct {
	logs *applog.Handler
}

// NewLogViewModel creates a new LogViewModel. logs may be nil.
func NewLogViewModel(logs *applog.Handler) *LogViewModel {
	return &LogViewModel{logs: logs}
}

func (m *LogViewModel) Init() tea.Cmd {
	return nil
}

func (m *LogViewModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "l":
			return m, func() tea.Msg {
				return popViewMsg{}
			}
		}
	}
	return m, nil
}

func (m *LogViewModel) View() string {
	var s strings.Builder
	s.WriteString("Latest logs (press 'q' to return):\n\n")
	s.WriteString(renderLogs(m.logs, 0))
	return lipgloss.NewStyle().Margin(1, 2).Render(s.String())
}

func (m *LogViewModel) Resize(width, height int) {}

// renderLogs renders the last n records of logs, or all of them if n <= 0.
func renderLogs(logs *applog.Handler, n int) string {
	if logs == nil {
		return ""
	}
	records := logs.Logs()
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}

	var s strings.Builder
	for _, r := range records {
		var style lipgloss.Style
		switch {
		case r.Level >= slog.LevelError:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Error)
		case r.Level >= slog.LevelWarn:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
		default:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
		}
		s.WriteString(style.Render(fmt.Sprintf("[%s] %s", r.Level, r.Message)))
		r.Attrs(func(a slog.Attr) bool {
			s.WriteString(style.Render(fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())))
			return true
		})
		s.WriteString("\n")
	}
	return s.String()
}
