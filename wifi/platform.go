package wifi

import "net"

// Platform is the radio driver surface of a device.
type Platform interface {
	// Interfaces enumerates all network interfaces of the device.
	Interfaces() ([]Interface, error)
	// StationConfig returns the radio configuration at index, as referenced by
	// Interface.ConfigIndex of a station interface.
	StationConfig(index int) (RadioConfig, error)
	// AccessPointConfig returns the radio configuration at index, as
	// referenced by Interface.ConfigIndex of an access point interface.
	AccessPointConfig(index int) (RadioConfig, error)
	// ScanAdapters returns the radio adapters capable of scanning.
	ScanAdapters() ([]ScanAdapter, error)
	// NewDHCPServer creates a DHCP server for the access point interface.
	NewDHCPServer(captivePortalURL string) (DHCPServer, error)
}

// Interface is a handle to a physical radio interface.
type Interface interface {
	Name() string
	Kind() InterfaceKind
	// ConfigIndex is the index of the radio configuration tied to this interface.
	ConfigIndex() int
	// IPv4Address returns the current address, or "" if none is assigned.
	IPv4Address() string
	// EnableStaticIPv4 assigns a static address to the interface.
	EnableStaticIPv4(ip, mask, gateway string) error
}

// RadioSettings is the hardware-level configuration of a radio.
type RadioSettings struct {
	Options        Options
	SSID           string
	Security       SecurityType
	Password       string
	MaxConnections uint8
}

// RadioConfig is the mutable configuration of one radio. Changes made to
// Settings are only durable after Save.
type RadioConfig interface {
	Settings() *RadioSettings
	Save() error
}

// ScanAdapter scans for networks asynchronously. Reports are delivered to
// subscribers on a goroutine other than the caller's.
type ScanAdapter interface {
	// Subscribe registers fn for every scan report. The returned func
	// removes the registration.
	Subscribe(fn func([]AvailableNetwork)) (unsubscribe func())
	// ScanAsync requests a scan and returns without waiting for results.
	ScanAsync() error
	// Disconnect disconnects the station from any network.
	Disconnect() error
}

// DHCPServer serves leases to access point clients.
type DHCPServer interface {
	Start(ip net.IP, mask net.IPMask) error
	Stop() error
}
