// Package manager controls the station and access point radios of a device.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shazow/wifiap/config"
	"github.com/shazow/wifiap/wifi"
)

// DefaultScanTimeout is how long AvailableNetworks waits for scan results.
const DefaultScanTimeout = 60 * time.Second

// DHCPStartAttempts is the number of times StartDHCP tries to start the
// server before giving up.
const DHCPStartAttempts = 3

// InterfaceManager is the surface the rest of the device uses to control its
// radios.
type InterfaceManager interface {
	IsWiFiEnabled() bool
	IsAPEnabled() bool
	WiFiIPAddress() string
	APIPAddress() string
	HasPendingChanges() bool

	EnableWiFi() error
	DisableWiFi() error
	EnableAP() error
	DisableAP() error
	DisconnectWiFi() error

	AvailableNetworks(ctx context.Context) ([]wifi.NetworkInfo, error)

	StartDHCP() error
	StopDHCP() error
	IsDHCPRunning() bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithScanTimeout overrides DefaultScanTimeout.
func WithScanTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.scanTimeout = d
	}
}

// Manager implements InterfaceManager on top of a wifi.Platform.
//
// Manager is not safe for concurrent use; callers serialize access.
type Manager struct {
	platform    wifi.Platform
	logger      *slog.Logger
	settings    config.APSettings
	scanTimeout time.Duration

	station       wifi.Interface
	accessPoint   wifi.Interface
	stationConfig wifi.RadioConfig
	apConfig      wifi.RadioConfig

	pendingChanges bool
	dhcp           wifi.DHCPServer
	dhcpRunning    bool
}

// New resolves the station and access point interfaces of platform and reads
// the access point settings from provider. Both happen exactly once; later
// changes to either require a new Manager.
func New(platform wifi.Platform, provider config.Provider, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		platform:    platform,
		logger:      logger,
		scanTimeout: DefaultScanTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}

	ifaces, err := platform.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		switch iface.Kind() {
		case wifi.KindStation:
			if m.station == nil {
				m.station = iface
			}
		case wifi.KindAccessPoint:
			if m.accessPoint == nil {
				m.accessPoint = iface
			}
		}
	}
	if m.station == nil {
		return nil, fmt.Errorf("%w: no %s interface", wifi.ErrInterfaceNotFound, wifi.KindStation)
	}
	if m.accessPoint == nil {
		return nil, fmt.Errorf("%w: no %s interface", wifi.ErrInterfaceNotFound, wifi.KindAccessPoint)
	}

	m.stationConfig, err = platform.StationConfig(m.station.ConfigIndex())
	if err != nil {
		return nil, fmt.Errorf("station configuration for %s: %w", m.station.Name(), err)
	}
	m.apConfig, err = platform.AccessPointConfig(m.accessPoint.ConfigIndex())
	if err != nil {
		return nil, fmt.Errorf("access point configuration for %s: %w", m.accessPoint.Name(), err)
	}

	m.settings, err = config.ReadAPSettings(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s settings: %w", config.APSectionName, err)
	}
	if err := m.settings.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("interfaces resolved", "station", m.station.Name(), "accessPoint", m.accessPoint.Name())
	return m, nil
}

// Settings returns the access point settings read at construction.
func (m *Manager) Settings() config.APSettings {
	return m.settings
}

func (m *Manager) IsWiFiEnabled() bool {
	return m.stationConfig.Settings().Options.Has(wifi.OptionEnable)
}

func (m *Manager) IsAPEnabled() bool {
	return m.apConfig.Settings().Options.Has(wifi.OptionEnable)
}

func (m *Manager) WiFiIPAddress() string {
	return m.station.IPv4Address()
}

func (m *Manager) APIPAddress() string {
	return m.accessPoint.IPv4Address()
}

// HasPendingChanges reports whether a radio configuration was saved since
// the process started. The changes take effect after a reboot.
func (m *Manager) HasPendingChanges() bool {
	return m.pendingChanges
}

func (m *Manager) EnableWiFi() error {
	if err := m.setOptions(m.stationConfig, wifi.OptionEnable); err != nil {
		return err
	}
	m.logger.Info("WiFi enabled", "interface", m.station.Name())
	return nil
}

func (m *Manager) DisableWiFi() error {
	if err := m.setOptions(m.stationConfig, wifi.OptionDisable); err != nil {
		return err
	}
	m.logger.Info("WiFi disabled", "interface", m.station.Name())
	return nil
}

// EnableAP applies the access point settings and enables the radio on boot.
// The static address is applied first so the interface comes up addressed.
func (m *Manager) EnableAP() error {
	s := m.settings
	if err := m.accessPoint.EnableStaticIPv4(s.IPAddress, s.SubnetMask, s.IPAddress); err != nil {
		return err
	}

	radio := m.apConfig.Settings()
	prev := *radio
	radio.SSID = s.SSID
	if s.Password == "" {
		radio.Security = wifi.SecurityOpen
		radio.Password = ""
	} else {
		radio.Security = wifi.SecurityWPA2
		radio.Password = s.Password
	}
	radio.MaxConnections = s.MaxConnections

	if err := m.setOptions(m.apConfig, wifi.OptionEnable|wifi.OptionAutoStart); err != nil {
		*radio = prev
		return err
	}
	m.logger.Info("AP enabled",
		"interface", m.accessPoint.Name(),
		"ssid", s.SSID,
		"security", radio.Security,
		"address", s.IPAddress,
		"maxConnections", s.MaxConnections,
	)
	return nil
}

func (m *Manager) DisableAP() error {
	if err := m.setOptions(m.apConfig, wifi.OptionDisable); err != nil {
		return err
	}
	m.logger.Info("AP disabled", "interface", m.accessPoint.Name())
	return nil
}

// setOptions saves cfg with options. The in-memory options are restored if
// the save fails, so the accessors keep reporting the saved state.
func (m *Manager) setOptions(cfg wifi.RadioConfig, options wifi.Options) error {
	settings := cfg.Settings()
	prev := settings.Options
	settings.Options = options
	if err := cfg.Save(); err != nil {
		settings.Options = prev
		m.logger.Error("failed to save radio configuration", "err", err)
		return err
	}
	m.pendingChanges = true
	return nil
}

func (m *Manager) scanAdapter() (wifi.ScanAdapter, error) {
	adapters, err := m.platform.ScanAdapters()
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, wifi.ErrNoScanAdapter
	}
	return adapters[0], nil
}

// AvailableNetworks scans for networks and blocks until the first non-empty
// report arrives or the scan timeout elapses. A timeout is not an error: it
// returns an empty list. If several reports arrive before the caller
// resumes, the latest one is returned.
func (m *Manager) AvailableNetworks(ctx context.Context) ([]wifi.NetworkInfo, error) {
	adapter, err := m.scanAdapter()
	if err != nil {
		return nil, err
	}

	results := make(chan []wifi.NetworkInfo, 1)
	unsubscribe := adapter.Subscribe(func(report []wifi.AvailableNetwork) {
		if len(report) == 0 {
			return
		}
		networks := make([]wifi.NetworkInfo, len(report))
		for i, n := range report {
			networks[i] = wifi.NewNetworkInfo(n)
		}
		// Replace any batch the caller hasn't picked up yet.
		select {
		case <-results:
		default:
		}
		select {
		case results <- networks:
		default:
		}
	})
	defer unsubscribe()

	m.logger.Debug("scanning for networks", "timeout", m.scanTimeout)
	if err := adapter.ScanAsync(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(m.scanTimeout)
	defer timer.Stop()

	select {
	case networks := <-results:
		m.logger.Debug("scan finished", "networks", len(networks))
		return networks, nil
	case <-timer.C:
		m.logger.Debug("scan timed out")
		return []wifi.NetworkInfo{}, nil
	case <-ctx.Done():
		return []wifi.NetworkInfo{}, ctx.Err()
	}
}

// DisconnectWiFi disconnects the station without waiting for confirmation.
func (m *Manager) DisconnectWiFi() error {
	adapter, err := m.scanAdapter()
	if err != nil {
		return err
	}
	m.logger.Debug("disconnecting WiFi")
	if err := adapter.Disconnect(); err != nil {
		return err
	}
	m.logger.Info("WiFi disconnected")
	return nil
}

// StartDHCP starts the DHCP server on the access point address. The server
// is created on first use and reused afterwards. Starting a running server
// does nothing.
func (m *Manager) StartDHCP() error {
	if m.dhcpRunning {
		m.logger.Debug("DHCP already running")
		return nil
	}
	if m.dhcp == nil {
		srv, err := m.platform.NewDHCPServer(m.settings.CaptivePortalURL())
		if err != nil {
			return err
		}
		m.dhcp = srv
	}

	ip, mask := m.settings.IP(), m.settings.Mask()
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := m.dhcp.Start(ip, mask)
		if err != nil {
			m.logger.Warn("DHCP start attempt failed", "attempt", attempt, "err", err)
		}
		return err
	}, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, DHCPStartAttempts-1))
	if err != nil {
		m.logger.Error("DHCP failed to start", "attempts", attempt, "err", err)
		return fmt.Errorf("%w: %w", wifi.ErrDHCPStart, err)
	}

	m.dhcpRunning = true
	m.logger.Info("DHCP started", "address", m.settings.IPAddress, "portal", m.settings.CaptivePortalURL())
	return nil
}

// StopDHCP stops the DHCP server. It does nothing if the server was never
// started.
func (m *Manager) StopDHCP() error {
	if m.dhcp == nil {
		return nil
	}
	if err := m.dhcp.Stop(); err != nil {
		return err
	}
	m.dhcpRunning = false
	m.logger.Info("DHCP stopped")
	return nil
}

// IsDHCPRunning reports whether the last StartDHCP succeeded and StopDHCP
// wasn't called since.
func (m *Manager) IsDHCPRunning() bool {
	return m.dhcpRunning
}

var _ InterfaceManager = (*Manager)(nil)
