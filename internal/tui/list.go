package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	applog "github.com/shazow/wifiap/internal/log"
	"github.com/shazow/wifiap/wifi"
	"github.com/shazow/wifiap/wifi/manager"
)

const recentLogLines = 4

// itemDelegate is our custom list delegate
type itemDelegate struct {
	list.DefaultDelegate
}

func (d itemDelegate) Height() int  { return 1 }
func (d itemDelegate) Spacing() int { return 0 }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(networkItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, listItem)
		return
	}

	title := i.Title()
	if title == "" {
		title = "(hidden)"
	}

	// Define column width for SSID
	ssidColumnWidth := 30
	titleLen := lipgloss.Width(title)
	if titleLen > ssidColumnWidth {
		title = string([]rune(title)[:ssidColumnWidth-1]) + "…"
		titleLen = lipgloss.Width(title)
	}
	padding := strings.Repeat(" ", max(ssidColumnWidth-titleLen, 0))
	title = lipgloss.NewStyle().Foreground(CurrentTheme.Normal).Render(title)

	bars := strings.Repeat("▂", int(i.SignalBars)) + strings.Repeat(" ", wifi.MaxSignalBars-int(i.SignalBars))
	signal := lipgloss.NewStyle().
		Foreground(CurrentTheme.SignalColor(i.SignalBars, wifi.MaxSignalBars)).
		Render(bars + " " + i.Description())
	bssid := lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(i.BSSID)

	line := title + padding + " " + signal + "  " + bssid
	if index == m.Index() {
		line = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render("▶ ") + line
	} else {
		line = "  " + line
	}
	fmt.Fprint(w, line)
}

type keyMap struct {
	Scan       key.Binding
	AutoScan   key.Binding
	WiFi       key.Binding
	AP         key.Binding
	DHCP       key.Binding
	Disconnect key.Binding
	Logs       key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Scan:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
	AutoScan:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "auto-scan")),
	WiFi:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "toggle wifi")),
	AP:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle ap")),
	DHCP:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "toggle dhcp")),
	Disconnect: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "disconnect")),
	Logs:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logs")),
	Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
}

// ListModel is the dashboard: radio status, scanned networks and the most
// recent log lines.
type ListModel struct {
	list    list.Model
	manager manager.InterfaceManager
	scanner *ScanSchedule
	logs    *applog.Handler
	status  manager.Status
}

func NewListModel(m manager.InterfaceManager, scanner *ScanSchedule, logs *applog.Handler) *ListModel {
	l := list.New([]list.Item{}, itemDelegate{DefaultDelegate: list.NewDefaultDelegate()}, 0, 0)
	l.Title = fmt.Sprintf("%-30s %s", "Nearby Network", "Signal")
	l.SetShowStatusBar(false)
	l.SetShowHelp(true)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit = keys.Quit
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Scan, keys.WiFi, keys.AP, keys.DHCP}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Scan, keys.AutoScan, keys.WiFi, keys.AP, keys.DHCP, keys.Disconnect, keys.Logs}
	}
	l.Styles.Title = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)

	return &ListModel{
		list:    l,
		manager: m,
		scanner: scanner,
		logs:    logs,
	}
}

// SetStatus replaces the status shown in the header.
func (m *ListModel) SetStatus(st manager.Status) {
	m.status = st
}

func (m *ListModel) SetNetworks(networks []wifi.NetworkInfo) {
	items := make([]list.Item, len(networks))
	for i, n := range networks {
		items[i] = networkItem{NetworkInfo: n}
	}
	m.list.SetItems(items)
}

func (m *ListModel) Init() tea.Cmd { return nil }

func (m *ListModel) Resize(width, height int) {
	h, v := lipgloss.NewStyle().Margin(1, 2).GetFrameSize()
	bh, bv := lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).GetFrameSize()
	// Header and recent log lines.
	extraVerticalSpace := 4 + recentLogLines
	m.list.SetSize(max(width-h-bh, 0), max(height-v-bv-extraVerticalSpace, 0))
}

func (m *ListModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Scan):
			return m, func() tea.Msg { return scanMsg{} }
		case key.Matches(msg, keys.AutoScan):
			_, cmd := m.scanner.Toggle()
			return m, cmd
		case key.Matches(msg, keys.WiFi):
			return m, m.action(toggleAction(m.status.WiFiEnabled, "wifi", m.manager.EnableWiFi, m.manager.DisableWiFi))
		case key.Matches(msg, keys.AP):
			return m, m.action(toggleAction(m.status.APEnabled, "access point", m.manager.EnableAP, m.manager.DisableAP))
		case key.Matches(msg, keys.DHCP):
			return m, m.action(toggleAction(m.status.DHCPRunning, "dhcp", m.manager.StartDHCP, m.manager.StopDHCP))
		case key.Matches(msg, keys.Disconnect):
			return m, m.action(actionMsg{verb: "disconnect wifi", fn: m.manager.DisconnectWiFi})
		case key.Matches(msg, keys.Logs):
			return NewLogViewModel(m.logs), nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *ListModel) action(a actionMsg) tea.Cmd {
	return func() tea.Msg { return a }
}

func (m *ListModel) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	listBorderStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).BorderForeground(CurrentTheme.Border)
	b.WriteString(listBorderStyle.Render(m.list.View()))
	b.WriteString("\n")

	statusText := ""
	if len(m.list.Items()) > 0 {
		statusText = fmt.Sprintf("%d/%d", m.list.Index()+1, len(m.list.Items()))
	}
	if m.scanner.Enabled() {
		statusText += " (auto-scan)"
	}
	b.WriteString(statusText)
	b.WriteString("\n")
	b.WriteString(renderLogs(m.logs, recentLogLines))
	return lipgloss.NewStyle().Margin(1, 2).Render(b.String())
}

func (m *ListModel) header() string {
	on := lipgloss.NewStyle().Foreground(CurrentTheme.Success)
	off := lipgloss.NewStyle().Foreground(CurrentTheme.Subtle)
	flag := func(name string, enabled bool, addr string) string {
		if !enabled {
			return off.Render(name + ": off")
		}
		s := name + ": on"
		if addr != "" {
			s += " " + addr
		}
		return on.Render(s)
	}

	parts := []string{
		flag("WiFi", m.status.WiFiEnabled, m.status.WiFiIPAddress),
		flag("AP", m.status.APEnabled, m.status.APIPAddress),
		flag("DHCP", m.status.DHCPRunning, ""),
	}
	header := strings.Join(parts, "  ")
	if m.status.PendingChanges {
		header += "  " + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render("reboot to apply changes")
	}
	return header
}
