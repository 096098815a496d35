package wifi

import (
	"reflect"
	"testing"
)

func TestSortNetworks(t *testing.T) {
	tests := []struct {
		name     string
		networks []NetworkInfo
		expected []NetworkInfo
	}{
		{
			name: "Sort by signal",
			networks: []NetworkInfo{
				{SSID: "Weak", RSSI: -80},
				{SSID: "Strong", RSSI: -40},
			},
			expected: []NetworkInfo{
				{SSID: "Strong", RSSI: -40},
				{SSID: "Weak", RSSI: -80},
			},
		},
		{
			name: "Same signal falls back to SSID",
			networks: []NetworkInfo{
				{SSID: "B", RSSI: -60},
				{SSID: "A", RSSI: -60},
			},
			expected: []NetworkInfo{
				{SSID: "A", RSSI: -60},
				{SSID: "B", RSSI: -60},
			},
		},
		{
			name: "Same SSID falls back to BSSID",
			networks: []NetworkInfo{
				{SSID: "Mesh", BSSID: "bb:bb:bb:bb:bb:bb", RSSI: -60},
				{SSID: "Mesh", BSSID: "aa:aa:aa:aa:aa:aa", RSSI: -60},
			},
			expected: []NetworkInfo{
				{SSID: "Mesh", BSSID: "aa:aa:aa:aa:aa:aa", RSSI: -60},
				{SSID: "Mesh", BSSID: "bb:bb:bb:bb:bb:bb", RSSI: -60},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortNetworks(tt.networks)
			if !reflect.DeepEqual(tt.networks, tt.expected) {
				t.Errorf("SortNetworks() = %v, want %v", tt.networks, tt.expected)
			}
		})
	}
}

func TestSignalBars(t *testing.T) {
	tests := []struct {
		rssi float64
		want uint8
	}{
		{-30, 4},
		{-55, 4},
		{-60, 3},
		{-70, 2},
		{-85, 1},
		{-95, 0},
	}
	for _, tt := range tests {
		if got := SignalBars(tt.rssi); got != tt.want {
			t.Errorf("SignalBars(%v) = %d, want %d", tt.rssi, got, tt.want)
		}
	}
}

func TestStrengthConversion(t *testing.T) {
	if got := StrengthToRSSI(80); got != -60 {
		t.Errorf("StrengthToRSSI(80) = %v, want -60", got)
	}
	if got := RSSIToStrength(-60); got != 80 {
		t.Errorf("RSSIToStrength(-60) = %d, want 80", got)
	}
	if got := RSSIToStrength(-120); got != 0 {
		t.Errorf("RSSIToStrength(-120) = %d, want 0", got)
	}
	if got := RSSIToStrength(-10); got != 100 {
		t.Errorf("RSSIToStrength(-10) = %d, want 100", got)
	}
}

func TestNewNetworkInfo(t *testing.T) {
	got := NewNetworkInfo(AvailableNetwork{SSID: "Cafe", BSSID: "00:11:22:33:44:55", Strength: 80})
	want := NetworkInfo{SSID: "Cafe", BSSID: "00:11:22:33:44:55", RSSI: -60, SignalBars: 3}
	if got != want {
		t.Errorf("NewNetworkInfo() = %+v, want %+v", got, want)
	}

	got = NewNetworkInfo(AvailableNetwork{SSID: "Lab", RSSI: -50, Strength: 10})
	if got.RSSI != -50 || got.SignalBars != 4 {
		t.Errorf("NewNetworkInfo() should prefer reported RSSI, got %+v", got)
	}

	got = NewNetworkInfo(AvailableNetwork{SSID: "Roof", RSSI: -90, SignalBars: 2})
	if got.RSSI != -90 || got.SignalBars != 2 {
		t.Errorf("NewNetworkInfo() should keep reported signal bars, got %+v", got)
	}

	got = NewNetworkInfo(AvailableNetwork{SSID: "Loud", RSSI: -30, SignalBars: 9})
	if got.SignalBars != MaxSignalBars {
		t.Errorf("NewNetworkInfo() should clamp signal bars, got %+v", got)
	}
}

func TestOptionsHas(t *testing.T) {
	opts := OptionEnable | OptionAutoStart
	if !opts.Has(OptionEnable) {
		t.Error("expected Enable bit")
	}
	if opts.Has(OptionDisable) {
		t.Error("unexpected Disable bit")
	}
	if opts.Has(OptionNone) {
		t.Error("OptionNone should never be reported as set")
	}
}
