package config

import (
	"fmt"
	"net"
)

const (
	APSectionName       = "WiFiAP"
	PlatformSectionName = "Platform"
	DaemonSectionName   = "Daemon"
)

// APSettings configures the access point.
type APSettings struct {
	SSID     string `toml:"Ssid"`
	Password string `toml:"Password"`
	// IPAddress is the static address of the access point. It is also used
	// as the clients' gateway and DNS server.
	IPAddress      string `toml:"IpAddress"`
	SubnetMask     string `toml:"SubnetMask"`
	MaxConnections uint8  `toml:"MaxConnections"`
	EnableDHCP     bool   `toml:"EnableDhcp"`
}

// DefaultAPSettings returns the settings used for anything missing from the
// WiFiAP section.
func DefaultAPSettings() APSettings {
	return APSettings{
		IPAddress:      "192.168.4.1",
		SubnetMask:     "255.255.255.0",
		MaxConnections: 1,
		EnableDHCP:     true,
	}
}

// IP returns the parsed access point address.
func (s APSettings) IP() net.IP {
	return net.ParseIP(s.IPAddress).To4()
}

// Mask returns the parsed subnet mask.
func (s APSettings) Mask() net.IPMask {
	ip := net.ParseIP(s.SubnetMask).To4()
	if ip == nil {
		return nil
	}
	return net.IPMask(ip)
}

// CaptivePortalURL is the address DHCP clients are pointed at.
func (s APSettings) CaptivePortalURL() string {
	return "http://" + s.IPAddress
}

// Validate checks that the addresses can be applied to an interface.
func (s APSettings) Validate() error {
	if s.IP() == nil {
		return fmt.Errorf("invalid access point IpAddress %q", s.IPAddress)
	}
	mask := s.Mask()
	if mask == nil {
		return fmt.Errorf("invalid access point SubnetMask %q", s.SubnetMask)
	}
	if ones, bits := mask.Size(); bits == 0 || ones == 0 {
		return fmt.Errorf("access point SubnetMask %q is not a valid prefix", s.SubnetMask)
	}
	return nil
}

// ReadAPSettings reads the WiFiAP section on top of the defaults.
func ReadAPSettings(p Provider) (APSettings, error) {
	s := DefaultAPSettings()
	if err := p.Section(APSectionName, &s); err != nil {
		return s, err
	}
	return s, nil
}

// PlatformSettings selects and configures the radio driver.
type PlatformSettings struct {
	// Backend is "networkmanager" or "mock".
	Backend string `toml:"Backend"`
	// Scanner is "networkmanager" or "iwd".
	Scanner              string `toml:"Scanner"`
	StationInterface     string `toml:"StationInterface"`
	AccessPointInterface string `toml:"AccessPointInterface"`
}

// DefaultPlatformSettings returns the platform defaults.
func DefaultPlatformSettings() PlatformSettings {
	return PlatformSettings{
		Backend:              "networkmanager",
		Scanner:              "networkmanager",
		StationInterface:     "wlan0",
		AccessPointInterface: "ap0",
	}
}

// ReadPlatformSettings reads the Platform section on top of the defaults.
func ReadPlatformSettings(p Provider) (PlatformSettings, error) {
	s := DefaultPlatformSettings()
	err := p.Section(PlatformSectionName, &s)
	return s, err
}

// DaemonSettings configures the long running process.
type DaemonSettings struct {
	// Listen is the address of the HTTP API. Empty disables it.
	Listen string `toml:"Listen"`
	// LeaseDB is the path of the SQLite lease database. Empty keeps leases
	// in memory.
	LeaseDB string `toml:"LeaseDB"`
	// CaptiveRedirect redirects HTTP traffic of AP clients to the portal.
	CaptiveRedirect bool `toml:"CaptiveRedirect"`
}

// DefaultDaemonSettings returns the daemon defaults.
func DefaultDaemonSettings() DaemonSettings {
	return DaemonSettings{
		Listen:          ":8080",
		CaptiveRedirect: true,
	}
}

// ReadDaemonSettings reads the Daemon section on top of the defaults.
func ReadDaemonSettings(p Provider) (DaemonSettings, error) {
	s := DefaultDaemonSettings()
	err := p.Section(DaemonSectionName, &s)
	return s, err
}
