package wifi

import "sort"

// MaxSignalBars is the number of bars reported for the strongest signal.
const MaxSignalBars = 4

// SignalBars converts a signal level in dBm into a bar count between 0 and
// MaxSignalBars.
func SignalBars(rssi float64) uint8 {
	switch {
	case rssi >= -55:
		return 4
	case rssi >= -66:
		return 3
	case rssi >= -77:
		return 2
	case rssi >= -88:
		return 1
	}
	return 0
}

// StrengthToRSSI approximates dBm from a 0-100 quality percentage, the way
// NetworkManager derives its strength value.
func StrengthToRSSI(strength uint8) float64 {
	if strength > 100 {
		strength = 100
	}
	return float64(strength)/2 - 100
}

// RSSIToStrength is the inverse of StrengthToRSSI, clamped to 0-100.
func RSSIToStrength(rssi float64) uint8 {
	q := 2 * (rssi + 100)
	switch {
	case q <= 0:
		return 0
	case q >= 100:
		return 100
	}
	return uint8(q)
}

// NewNetworkInfo maps a scan record into a NetworkInfo.
func NewNetworkInfo(n AvailableNetwork) NetworkInfo {
	rssi := n.RSSI
	if rssi == 0 && n.Strength > 0 {
		rssi = StrengthToRSSI(n.Strength)
	}
	bars := n.SignalBars
	if bars == 0 {
		bars = SignalBars(rssi)
	} else if bars > MaxSignalBars {
		bars = MaxSignalBars
	}
	return NetworkInfo{
		SSID:       n.SSID,
		BSSID:      n.BSSID,
		RSSI:       rssi,
		SignalBars: bars,
	}
}

// SortNetworks sorts networks in place, strongest signal first, falling back
// to SSID and then BSSID.
func SortNetworks(networks []NetworkInfo) {
	sort.SliceStable(networks, func(i, j int) bool {
		a := networks[i]
		b := networks[j]

		if a.RSSI != b.RSSI {
			return a.RSSI > b.RSSI
		}
		if a.SSID != b.SSID {
			return a.SSID < b.SSID
		}
		return a.BSSID < b.BSSID
	})
}
