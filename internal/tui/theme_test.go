package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestLoadTheme(t *testing.T) {
	tomlData := `
		Primary = "#FF0000"
		Subtle = ["#00FF00", "#00EE00"]
		Success = "#0000FF"
		SignalHigh = "#008000"
		SignalLow = "#FFA500"
	`

	loadedTheme, err := LoadTheme(strings.NewReader(tomlData))
	if err != nil {
		t.Fatalf("LoadTheme failed: %v", err)
	}

	// Verify a single color
	expectedColor := Color{lipgloss.Color("#FF0000")}
	if loadedTheme.Primary != expectedColor {
		t.Errorf("Expected Primary color to be %v, but got %v", expectedColor, loadedTheme.Primary)
	}

	// Verify an adaptive color
	adaptiveColor, ok := loadedTheme.Subtle.TerminalColor.(lipgloss.AdaptiveColor)
	if !ok {
		t.Fatalf("Expected Subtle color to be an AdaptiveColor, but it's not")
	}
	if adaptiveColor.Light != "#00FF00" {
		t.Errorf("Expected Subtle light color to be #00FF00, but got %s", adaptiveColor.Light)
	}
	if adaptiveColor.Dark != "#00EE00" {
		t.Errorf("Expected Subtle dark color to be #00EE00, but got %s", adaptiveColor.Dark)
	}

	// Unset colors keep their defaults
	if loadedTheme.Error != NewDefaultTheme().Error {
		t.Errorf("Expected Error color to keep its default, got %v", loadedTheme.Error)
	}
}

func TestLoadTheme_NilReader(t *testing.T) {
	_, err := LoadTheme(nil)
	if err == nil {
		t.Fatalf("LoadTheme(nil) should have returned an error, but it didn't")
	}
}

func TestLoadTheme_InvalidToml(t *testing.T) {
	for _, data := range []string{`Primary = `, `Primary = ["#000000"]`, `Primary = 42`} {
		if _, err := LoadTheme(strings.NewReader(data)); err == nil {
			t.Errorf("LoadTheme should have failed for %q, but it didn't", data)
		}
	}
}

func TestSignalColor(t *testing.T) {
	theme := NewDefaultTheme()
	theme.SignalLow = Color{lipgloss.Color("#000000")}
	theme.SignalHigh = Color{lipgloss.Color("#ffffff")}

	if got := theme.SignalColor(0, 4); got != lipgloss.Color("#000000") {
		t.Errorf("SignalColor(0) = %v", got)
	}
	if got := theme.SignalColor(4, 4); got != lipgloss.Color("#ffffff") {
		t.Errorf("SignalColor(4) = %v", got)
	}

	theme.SignalLow = Color{lipgloss.Color("not a color")}
	if got := theme.SignalColor(2, 4); got != theme.Subtle {
		t.Errorf("SignalColor with a bad color = %v, want Subtle", got)
	}
}
