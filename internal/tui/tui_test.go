package tui

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifiap/config"
	applog "github.com/shazow/wifiap/internal/log"
	"github.com/shazow/wifiap/wifi/manager"
	"github.com/shazow/wifiap/wifi/mock"
)

const testConfig = `
[WiFiAP]
Ssid = "Guest"
IpAddress = "192.168.4.1"
SubnetMask = "255.255.255.0"
`

func newTestModel(t *testing.T) (*model, *mock.Platform, *applog.Handler) {
	t.Helper()
	p := mock.New()
	p.Adapters[0].ReportDelay = 0

	provider, err := config.Load(strings.NewReader(testConfig))
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	logs := applog.NewHandler(nil, 50)
	mgr, err := manager.New(p, provider, slog.New(logs), manager.WithScanTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("manager.New failed: %v", err)
	}

	m := NewModel(mgr, logs)
	t.Cleanup(m.cancel)

	// Set a size for the model, otherwise the list component won't have enough space to render.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(*model), p, logs
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msg to the model and then runs the command it returns,
// feeding back the first message that the model handles itself.
func drive(t *testing.T, m *model, msg tea.Msg) *model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(*model)
	if cmd == nil {
		return m
	}
	for _, out := range flatten(cmd) {
		switch out.(type) {
		case scanMsg, actionMsg, networksMsg, actionDoneMsg, errorMsg, popViewMsg:
			return drive(t, m, out)
		}
	}
	return m
}

func flatten(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, flatten(c)...)
	}
	return msgs
}

func TestTuiModel_InitialScan(t *testing.T) {
	m, _, _ := newTestModel(t)
	if !m.busy {
		t.Fatalf("model should start busy with the initial scan")
	}

	m = drive(t, m, scanNetworks(m.ctx, m.manager)())

	view := m.View()
	for _, want := range []string{"HideYoKidsHideYoWiFi", "Multi-AP Network", "WiFi: on 10.0.0.23", "AP: off"} {
		if !strings.Contains(view, want) {
			t.Errorf("View does not contain %q in\n%s", want, view)
		}
	}
	if m.busy {
		t.Errorf("model should not be busy after the scan")
	}
}

func TestTuiModel_ToggleAP(t *testing.T) {
	m, p, _ := newTestModel(t)
	m = drive(t, m, scanNetworks(m.ctx, m.manager)())

	m = drive(t, m, keyPress("a"))

	if !m.status.APEnabled {
		t.Fatalf("access point should be enabled")
	}
	saved, ok := p.APConfigs[0].LastSaved()
	if !ok || saved.SSID != "Guest" {
		t.Errorf("access point configuration was not saved: %+v", saved)
	}
	view := m.View()
	if !strings.Contains(view, "reboot to apply changes") {
		t.Errorf("View does not show pending changes in\n%s", view)
	}
	if !strings.Contains(view, "AP enabled") {
		t.Errorf("View does not show the latest log line in\n%s", view)
	}
}

func TestTuiModel_ToggleDHCP(t *testing.T) {
	m, p, _ := newTestModel(t)
	m = drive(t, m, scanNetworks(m.ctx, m.manager)())

	m = drive(t, m, keyPress("d"))
	if !m.status.DHCPRunning || !p.DHCP.Running() {
		t.Fatalf("DHCP should be running")
	}

	m = drive(t, m, keyPress("d"))
	if m.status.DHCPRunning || p.DHCP.Running() {
		t.Fatalf("DHCP should be stopped")
	}
}

func TestTuiModel_ErrorView(t *testing.T) {
	m, p, _ := newTestModel(t)
	m = drive(t, m, scanNetworks(m.ctx, m.manager)())
	p.StationConfigs[0].SaveError = errors.New("read-only filesystem")

	m = drive(t, m, keyPress("w"))
	view := m.View()
	if !strings.Contains(view, "read-only filesystem") {
		t.Fatalf("View does not show the error in\n%s", view)
	}
	if m.stack.Len() != 2 {
		t.Fatalf("error view should be pushed, stack has %d components", m.stack.Len())
	}

	// Any key dismisses the error
	m = drive(t, m, keyPress("w"))
	if m.stack.Len() != 1 {
		t.Errorf("error view should be popped, stack has %d components", m.stack.Len())
	}
	if !m.status.WiFiEnabled {
		t.Errorf("failed save should leave WiFi enabled")
	}
}

func TestTuiModel_BusyIgnoresActions(t *testing.T) {
	m, p, _ := newTestModel(t)

	// Still busy with the initial scan.
	_, cmd := m.Update(actionMsg{verb: "disconnect wifi", fn: p.Adapters[0].Disconnect})
	if cmd != nil {
		t.Fatalf("action should be ignored while busy")
	}
	if p.Adapters[0].Disconnects() != 0 {
		t.Errorf("disconnect should not have run")
	}
}

func TestTuiModel_LogView(t *testing.T) {
	m, _, logs := newTestModel(t)
	m = drive(t, m, scanNetworks(m.ctx, m.manager)())
	slog.New(logs).Warn("something odd", "code", 7)

	m = drive(t, m, keyPress("l"))
	view := m.View()
	if !strings.Contains(view, "Latest logs") || !strings.Contains(view, "something odd code=7") {
		t.Fatalf("View does not show the log view in\n%s", view)
	}

	m = drive(t, m, keyPress("q"))
	if m.stack.Len() != 1 {
		t.Errorf("log view should be popped, stack has %d components", m.stack.Len())
	}
}
