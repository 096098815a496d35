package wifi

// SecurityType represents the security protocol of a network.
type SecurityType int

const (
	SecurityUnknown SecurityType = iota
	SecurityOpen
	SecurityWEP
	SecurityWPA
	SecurityWPA2
)

func (s SecurityType) String() string {
	switch s {
	case SecurityOpen:
		return "open"
	case SecurityWEP:
		return "wep"
	case SecurityWPA:
		return "wpa"
	case SecurityWPA2:
		return "wpa2"
	}
	return "unknown"
}

// InterfaceKind identifies what role a radio interface plays.
type InterfaceKind int

const (
	KindUnknown InterfaceKind = iota
	// KindStation is the radio acting as a Wi-Fi client.
	KindStation
	// KindAccessPoint is the radio acting as a hotspot.
	KindAccessPoint
)

func (k InterfaceKind) String() string {
	switch k {
	case KindStation:
		return "station"
	case KindAccessPoint:
		return "access point"
	}
	return "unknown"
}

// Options is the option bitmask of a radio configuration.
type Options uint8

const (
	OptionNone      Options = 0
	OptionDisable   Options = 1
	OptionEnable    Options = 2
	OptionAutoStart Options = 4
)

// Has reports whether all bits of o are set.
func (opts Options) Has(o Options) bool {
	return o != OptionNone && opts&o == o
}

// AvailableNetwork is a single record reported by a scan adapter.
type AvailableNetwork struct {
	SSID      string
	BSSID     string
	RSSI      float64 // dBm
	Strength  uint8   // 0-100
	Frequency uint    // MHz
	Security  SecurityType

	// SignalBars is the platform's own bar count. Zero derives it from RSSI.
	SignalBars uint8
}

// NetworkInfo describes a network discovered by a scan.
type NetworkInfo struct {
	SSID       string  `json:"ssid"`
	BSSID      string  `json:"bssid"`
	RSSI       float64 `json:"rssi"`
	SignalBars uint8   `json:"signalBars"`
}
