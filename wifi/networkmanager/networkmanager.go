//go:build linux

package networkmanager

import (
	"fmt"
	"log/slog"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"
	"github.com/vishvananda/netlink"

	"github.com/shazow/wifiap/config"
	"github.com/shazow/wifiap/dhcpd"
	"github.com/shazow/wifiap/wifi"
)

// DefaultProfileID is the NetworkManager connection id of the access point
// profile.
const DefaultProfileID = "wifiap"

// Option configures a Platform.
type Option func(*Platform)

// WithScanAdapter replaces the NetworkManager scan adapter, e.g. with iwd.
func WithScanAdapter(a wifi.ScanAdapter) Option {
	return func(p *Platform) {
		p.scanner = a
	}
}

// WithDHCPConfig sets the template for DHCP servers created by the
// platform. Interface, CaptivePortalURL and MaxLeases are filled in.
func WithDHCPConfig(cfg dhcpd.Config) Option {
	return func(p *Platform) {
		p.dhcpConfig = cfg
	}
}

// WithProfileID overrides DefaultProfileID.
func WithProfileID(id string) Option {
	return func(p *Platform) {
		p.profileID = id
	}
}

// Platform implements wifi.Platform using D-Bus to communicate with
// NetworkManager. Radio configuration is persisted as NetworkManager
// connection profiles, so it takes effect once NetworkManager reactivates
// them, typically on the next boot.
type Platform struct {
	NM       gonetworkmanager.NetworkManager
	Settings gonetworkmanager.Settings
	// Conn is the system bus, used for properties the NetworkManager
	// bindings don't expose.
	Conn *dbus.Conn

	cfg        config.PlatformSettings
	logger     *slog.Logger
	profileID  string
	scanner    wifi.ScanAdapter
	dhcpConfig dhcpd.Config

	// ipv4 returns the address of the named interface.
	ipv4 func(name string) string

	station     *radioConfig
	accessPoint *radioConfig
	devices     map[string]gonetworkmanager.DeviceWireless
}

// New connects to NetworkManager on the system bus.
func New(cfg config.PlatformSettings, logger *slog.Logger, opts ...Option) (*Platform, error) {
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create network manager client: %w", wifi.ErrNotAvailable)
	}
	settings, err := gonetworkmanager.NewSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", wifi.ErrOperationFailed)
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", wifi.ErrNotAvailable)
	}
	return newPlatform(nm, settings, conn, cfg, logger, opts...), nil
}

func newPlatform(nm gonetworkmanager.NetworkManager, settings gonetworkmanager.Settings, conn *dbus.Conn, cfg config.PlatformSettings, logger *slog.Logger, opts ...Option) *Platform {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Platform{
		NM:        nm,
		Settings:  settings,
		Conn:      conn,
		cfg:       cfg,
		logger:    logger,
		profileID: DefaultProfileID,
		ipv4:      netlinkIPv4,
		devices:   make(map[string]gonetworkmanager.DeviceWireless),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// getWirelessDevice returns the NetworkManager Wi-Fi device called name.
func (p *Platform) getWirelessDevice(name string) (gonetworkmanager.DeviceWireless, error) {
	if dev, ok := p.devices[name]; ok {
		return dev, nil
	}

	devices, err := p.NM.GetDevices()
	if err != nil {
		return nil, err
	}
	for _, device := range devices {
		dev, ok := device.(gonetworkmanager.DeviceWireless)
		if !ok {
			continue
		}
		iface, err := dev.GetPropertyInterface()
		if err != nil {
			continue
		}
		if iface == name {
			p.devices[name] = dev
			return dev, nil
		}
	}
	return nil, fmt.Errorf("wireless device %s: %w", name, wifi.ErrNotFound)
}

// Interfaces returns the configured station and access point devices that
// NetworkManager knows about.
func (p *Platform) Interfaces() ([]wifi.Interface, error) {
	var ifaces []wifi.Interface
	for _, want := range []struct {
		name string
		kind wifi.InterfaceKind
	}{
		{p.cfg.StationInterface, wifi.KindStation},
		{p.cfg.AccessPointInterface, wifi.KindAccessPoint},
	} {
		if _, err := p.getWirelessDevice(want.name); err != nil {
			p.logger.Debug("interface unavailable", "name", want.name, "kind", want.kind.String(), "err", err)
			continue
		}
		ifaces = append(ifaces, &netInterface{name: want.name, kind: want.kind, platform: p})
	}
	return ifaces, nil
}

func (p *Platform) StationConfig(index int) (wifi.RadioConfig, error) {
	if index != 0 {
		return nil, fmt.Errorf("station configuration %d: %w", index, wifi.ErrNotFound)
	}
	if p.station == nil {
		cfg := &radioConfig{platform: p, kind: wifi.KindStation, iface: p.cfg.StationInterface}
		if err := cfg.load(); err != nil {
			return nil, err
		}
		p.station = cfg
	}
	return p.station, nil
}

func (p *Platform) AccessPointConfig(index int) (wifi.RadioConfig, error) {
	if index != 0 {
		return nil, fmt.Errorf("access point configuration %d: %w", index, wifi.ErrNotFound)
	}
	if p.accessPoint == nil {
		cfg := &radioConfig{platform: p, kind: wifi.KindAccessPoint, iface: p.cfg.AccessPointInterface}
		if err := cfg.load(); err != nil {
			return nil, err
		}
		p.accessPoint = cfg
	}
	return p.accessPoint, nil
}

func (p *Platform) ScanAdapters() ([]wifi.ScanAdapter, error) {
	if p.scanner != nil {
		return []wifi.ScanAdapter{p.scanner}, nil
	}
	dev, err := p.getWirelessDevice(p.cfg.StationInterface)
	if err != nil {
		return nil, err
	}
	p.scanner = newScanAdapter(dev, p.lastScanFunc(dev), p.logger)
	return []wifi.ScanAdapter{p.scanner}, nil
}

// NewDHCPServer creates a dhcpd.Server on the access point interface,
// limited to the access point's max connections.
func (p *Platform) NewDHCPServer(captivePortalURL string) (wifi.DHCPServer, error) {
	cfg := p.dhcpConfig
	cfg.Interface = p.cfg.AccessPointInterface
	cfg.CaptivePortalURL = captivePortalURL
	if cfg.Logger == nil {
		cfg.Logger = p.logger
	}
	if ap, err := p.AccessPointConfig(0); err == nil {
		cfg.MaxLeases = int(ap.Settings().MaxConnections)
	}
	return dhcpd.New(cfg), nil
}

// lastScanFunc reads the LastScan property of dev, which the bindings
// don't expose.
func (p *Platform) lastScanFunc(dev gonetworkmanager.DeviceWireless) func() (int64, error) {
	return func() (int64, error) {
		if p.Conn == nil {
			return 0, wifi.ErrNotAvailable
		}
		obj := p.Conn.Object("org.freedesktop.NetworkManager", dev.GetPath())
		v, err := obj.GetProperty("org.freedesktop.NetworkManager.Device.Wireless.LastScan")
		if err != nil {
			return 0, err
		}
		last, ok := v.Value().(int64)
		if !ok {
			return 0, fmt.Errorf("unexpected LastScan type %T", v.Value())
		}
		return last, nil
	}
}

// netInterface is a wifi.Interface backed by a NetworkManager device.
type netInterface struct {
	name     string
	kind     wifi.InterfaceKind
	platform *Platform
}

func (i *netInterface) Name() string             { return i.name }
func (i *netInterface) Kind() wifi.InterfaceKind { return i.kind }
func (i *netInterface) ConfigIndex() int         { return 0 }

func (i *netInterface) IPv4Address() string {
	return i.platform.ipv4(i.name)
}

// EnableStaticIPv4 stores the address in the access point profile.
func (i *netInterface) EnableStaticIPv4(ip, mask, gateway string) error {
	if i.kind != wifi.KindAccessPoint {
		return fmt.Errorf("static address on %s: %w", i.name, wifi.ErrNotSupported)
	}
	cfg, err := i.platform.AccessPointConfig(i.ConfigIndex())
	if err != nil {
		return err
	}
	return cfg.(*radioConfig).setStaticIPv4(ip, mask, gateway)
}

func netlinkIPv4(name string) string {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return ""
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0].IP.String()
}

// applyUpdateWorkaround modifies the settings map to workaround D-Bus type errors.
//
// NetworkManager's D-Bus API can return ipv6.addresses and ipv6.routes as an
// array of array of variants ('aav'), but expects them as an array of structs
// on update ('a(ayuay)' for addresses and 'a(ayuayu)' for routes). This causes
// a type mismatch error when calling the Update method with settings that
// were previously fetched from the API. The same applies to the deprecated
// ipv4.addresses and ipv4.routes.
//
// See: https://github.com/Wifx/gonetworkmanager/issues/13 and https://github.com/godbus/dbus/issues/400
func applyUpdateWorkaround(settings gonetworkmanager.ConnectionSettings) {
	for _, family := range []string{"ipv4", "ipv6"} {
		if s, ok := settings[family]; ok {
			delete(s, "addresses")
			delete(s, "routes")
		}
	}
}

var _ wifi.Platform = (*Platform)(nil)
