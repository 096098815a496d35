package mock

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shazow/wifiap/wifi"
)

// DefaultActionSleep is the delay before each scan report, to better emulate
// a real radio for the frontend. Set to 0 during testing.
var DefaultActionSleep = 500 * time.Millisecond

// Platform is an in-memory implementation of wifi.Platform.
type Platform struct {
	Ifaces         []wifi.Interface
	StationConfigs []*RadioConfig
	APConfigs      []*RadioConfig
	Adapters       []*ScanAdapter
	// DHCP is handed out by NewDHCPServer. A new server is created if nil.
	DHCP *DHCPServer

	InterfacesError error
	ScanAdaptersErr error

	mu              sync.Mutex
	interfacesCalls int
	dhcpCreated     int
	journal         []string
}

// New creates a mock platform with a station interface, an access point
// interface and a scan adapter that reports a list of fun networks.
func New() *Platform {
	p := &Platform{}
	sta := p.AddInterface("wlan0", wifi.KindStation, 0)
	sta.Address = "10.0.0.23"
	p.AddInterface("ap0", wifi.KindAccessPoint, 0)
	p.StationConfigs = []*RadioConfig{p.NewRadioConfig("wlan0", wifi.RadioSettings{Options: wifi.OptionEnable})}
	p.APConfigs = []*RadioConfig{p.NewRadioConfig("ap0", wifi.RadioSettings{Options: wifi.OptionDisable})}

	adapter := NewScanAdapter(p)
	adapter.ReportDelay = DefaultActionSleep
	adapter.Reports = [][]wifi.AvailableNetwork{
		{},
		{
			{SSID: "HideYoKidsHideYoWiFi", BSSID: "00:11:22:33:44:01", RSSI: -48, Security: wifi.SecurityWPA2},
			{SSID: "GET off my LAN", BSSID: "00:11:22:33:44:02", RSSI: -71, Security: wifi.SecurityWPA2},
			{SSID: "NeverGonnaGiveYouIP", BSSID: "00:11:22:33:44:03", RSSI: -63, Security: wifi.SecurityWEP},
			{SSID: "Unencrypted_Honeypot", BSSID: "00:11:22:33:44:04", RSSI: -82, Security: wifi.SecurityOpen},
			{SSID: "TacoBoutAGoodSignal", BSSID: "00:11:22:33:44:05", Strength: 99, Security: wifi.SecurityWPA2},
			{SSID: "Multi-AP Network", BSSID: "AA:BB:CC:DD:EE:FF", RSSI: -58, Frequency: 5180, Security: wifi.SecurityWPA2},
			{SSID: "Multi-AP Network", BSSID: "11:22:33:44:55:66", RSSI: -77, Frequency: 2412, Security: wifi.SecurityWPA2},
		},
	}
	p.Adapters = []*ScanAdapter{adapter}
	return p
}

// AddInterface adds an interface handle to the platform.
func (p *Platform) AddInterface(name string, kind wifi.InterfaceKind, configIndex int) *Interface {
	iface := &Interface{name: name, kind: kind, index: configIndex, platform: p}
	p.Ifaces = append(p.Ifaces, iface)
	return iface
}

// NewRadioConfig creates a radio configuration that records into the
// platform's journal.
func (p *Platform) NewRadioConfig(name string, settings wifi.RadioSettings) *RadioConfig {
	return &RadioConfig{name: name, settings: settings, platform: p}
}

func (p *Platform) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.journal = append(p.journal, fmt.Sprintf(format, args...))
}

// Journal returns every mutation applied to interfaces and configurations,
// in order.
func (p *Platform) Journal() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	journal := make([]string, len(p.journal))
	copy(journal, p.journal)
	return journal
}

// InterfacesCalls returns how many times Interfaces was called.
func (p *Platform) InterfacesCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interfacesCalls
}

// DHCPServersCreated returns how many times NewDHCPServer was called.
func (p *Platform) DHCPServersCreated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dhcpCreated
}

func (p *Platform) Interfaces() ([]wifi.Interface, error) {
	p.mu.Lock()
	p.interfacesCalls++
	p.mu.Unlock()

	if p.InterfacesError != nil {
		return nil, p.InterfacesError
	}
	return p.Ifaces, nil
}

func (p *Platform) StationConfig(index int) (wifi.RadioConfig, error) {
	if index < 0 || index >= len(p.StationConfigs) {
		return nil, fmt.Errorf("station configuration %d: %w", index, wifi.ErrNotFound)
	}
	return p.StationConfigs[index], nil
}

func (p *Platform) AccessPointConfig(index int) (wifi.RadioConfig, error) {
	if index < 0 || index >= len(p.APConfigs) {
		return nil, fmt.Errorf("access point configuration %d: %w", index, wifi.ErrNotFound)
	}
	return p.APConfigs[index], nil
}

func (p *Platform) ScanAdapters() ([]wifi.ScanAdapter, error) {
	if p.ScanAdaptersErr != nil {
		return nil, p.ScanAdaptersErr
	}
	adapters := make([]wifi.ScanAdapter, len(p.Adapters))
	for i, a := range p.Adapters {
		adapters[i] = a
	}
	return adapters, nil
}

func (p *Platform) NewDHCPServer(captivePortalURL string) (wifi.DHCPServer, error) {
	p.mu.Lock()
	p.dhcpCreated++
	p.mu.Unlock()

	if p.DHCP == nil {
		p.DHCP = &DHCPServer{}
	}
	p.DHCP.CaptivePortalURL = captivePortalURL
	return p.DHCP, nil
}

// Interface is an in-memory wifi.Interface.
type Interface struct {
	// Address is reported by IPv4Address.
	Address string
	// StaticIPv4 holds the last static configuration applied.
	StaticIPv4 *StaticIPv4
	Err        error

	name     string
	kind     wifi.InterfaceKind
	index    int
	platform *Platform
}

// StaticIPv4 is a static address assignment.
type StaticIPv4 struct {
	IP, Mask, Gateway string
}

func (i *Interface) Name() string             { return i.name }
func (i *Interface) Kind() wifi.InterfaceKind { return i.kind }
func (i *Interface) ConfigIndex() int         { return i.index }
func (i *Interface) IPv4Address() string      { return i.Address }

func (i *Interface) EnableStaticIPv4(ip, mask, gateway string) error {
	if i.Err != nil {
		return i.Err
	}
	i.StaticIPv4 = &StaticIPv4{IP: ip, Mask: mask, Gateway: gateway}
	i.platform.record("%s: static ipv4 %s/%s via %s", i.name, ip, mask, gateway)
	return nil
}

// RadioConfig is an in-memory wifi.RadioConfig.
type RadioConfig struct {
	// Saved holds a copy of the settings at every successful Save.
	Saved     []wifi.RadioSettings
	SaveError error

	name     string
	settings wifi.RadioSettings
	platform *Platform
}

func (c *RadioConfig) Settings() *wifi.RadioSettings { return &c.settings }

func (c *RadioConfig) Save() error {
	if c.SaveError != nil {
		return c.SaveError
	}
	c.Saved = append(c.Saved, c.settings)
	c.platform.record("%s: save options=%d", c.name, c.settings.Options)
	return nil
}

// LastSaved returns the settings of the most recent Save.
func (c *RadioConfig) LastSaved() (wifi.RadioSettings, bool) {
	if len(c.Saved) == 0 {
		return wifi.RadioSettings{}, false
	}
	return c.Saved[len(c.Saved)-1], true
}

// ErrAlreadyRunning is returned by DHCPServer.Start while the server runs.
var ErrAlreadyRunning = errors.New("dhcp server is already running")

// DHCPServer is an in-memory wifi.DHCPServer.
type DHCPServer struct {
	CaptivePortalURL string
	// StartErrors are returned by consecutive Start calls; a nil entry or an
	// exhausted list means success.
	StartErrors []error
	StopError   error

	mu         sync.Mutex
	startCalls int
	stopCalls  int
	running    bool
	ip         net.IP
	mask       net.IPMask
}

func (s *DHCPServer) Start(ip net.IP, mask net.IPMask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startCalls++
	if s.running {
		return ErrAlreadyRunning
	}
	if len(s.StartErrors) > 0 {
		err := s.StartErrors[0]
		s.StartErrors = s.StartErrors[1:]
		if err != nil {
			return err
		}
	}
	s.running = true
	s.ip = ip
	s.mask = mask
	return nil
}

func (s *DHCPServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCalls++
	if s.StopError != nil {
		return s.StopError
	}
	s.running = false
	return nil
}

// StartCalls returns how many times Start was called.
func (s *DHCPServer) StartCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startCalls
}

// StopCalls returns how many times Stop was called.
func (s *DHCPServer) StopCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCalls
}

// Running reports whether the server was started and not stopped since.
func (s *DHCPServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Bound returns the address the server was last started on.
func (s *DHCPServer) Bound() (net.IP, net.IPMask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ip, s.mask
}

var _ wifi.Platform = (*Platform)(nil)
