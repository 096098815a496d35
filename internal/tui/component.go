package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifiap/wifi"
	"github.com/shazow/wifiap/wifi/manager"
)

// Component is the interface for a TUI component.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Component, tea.Cmd)
	View() string
	Resize(width, height int)
}

// popViewMsg is a message to pop the current view from the stack.
type popViewMsg struct{}

// networkItem holds a single scanned network in the list
type networkItem struct {
	wifi.NetworkInfo
}

func (i networkItem) Title() string { return i.SSID }
func (i networkItem) Description() string {
	return fmt.Sprintf("%.0f dBm", i.RSSI)
}
func (i networkItem) FilterValue() string { return i.Title() }

// Bubbletea messages are used to communicate between the main loop and commands
type (
	// From the manager
	networksMsg struct {
		networks []wifi.NetworkInfo
		status   manager.Status
	}
	actionDoneMsg struct {
		done   string
		status manager.Status
	}
	errorMsg struct {
		err    error
		status manager.Status
	}

	// To the main model
	scanMsg   struct{}
	actionMsg struct {
		verb string
		fn   func() error
	}
)

// --- Commands that interact with the manager ---
//
// The main model runs at most one of these at a time.

func scanNetworks(ctx context.Context, m manager.InterfaceManager) tea.Cmd {
	return func() tea.Msg {
		networks, err := m.AvailableNetworks(ctx)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to scan: %w", err), status: manager.Snapshot(m)}
		}
		wifi.SortNetworks(networks)
		return networksMsg{networks: networks, status: manager.Snapshot(m)}
	}
}

func runAction(m manager.InterfaceManager, a actionMsg) tea.Cmd {
	return func() tea.Msg {
		if err := a.fn(); err != nil {
			return errorMsg{err: fmt.Errorf("failed to %s: %w", a.verb, err), status: manager.Snapshot(m)}
		}
		return actionDoneMsg{done: a.verb, status: manager.Snapshot(m)}
	}
}

// toggleAction picks the action that flips a radio or service.
func toggleAction(enabled bool, name string, enable, disable func() error) actionMsg {
	if enabled {
		return actionMsg{verb: "disable " + name, fn: disable}
	}
	return actionMsg{verb: "enable " + name, fn: enable}
}
