//go:build linux

package networkmanager

import (
	"sync"
	"testing"
	"time"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazow/wifiap/config"
	"github.com/shazow/wifiap/dhcpd"
	"github.com/shazow/wifiap/wifi"
)

type mockNM struct {
	gonetworkmanager.NetworkManager
	devices []gonetworkmanager.Device
	calls   int
}

func (m *mockNM) GetDevices() ([]gonetworkmanager.Device, error) {
	m.calls++
	return m.devices, nil
}

type mockWiredDevice struct {
	gonetworkmanager.Device
}

type mockDeviceWireless struct {
	gonetworkmanager.DeviceWireless
	name         string
	accessPoints []gonetworkmanager.AccessPoint

	mu          sync.Mutex
	scans       int
	disconnects int
}

func (d *mockDeviceWireless) GetPropertyInterface() (string, error) { return d.name, nil }
func (d *mockDeviceWireless) GetPath() dbus.ObjectPath {
	return dbus.ObjectPath("/org/freedesktop/NetworkManager/Devices/" + d.name)
}

func (d *mockDeviceWireless) GetAccessPoints() ([]gonetworkmanager.AccessPoint, error) {
	return d.accessPoints, nil
}

func (d *mockDeviceWireless) RequestScan() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scans++
	return nil
}

func (d *mockDeviceWireless) Disconnect() error {
	d.disconnects++
	return nil
}

type mockAccessPoint struct {
	gonetworkmanager.AccessPoint
	ssid      string
	bssid     string
	strength  uint8
	frequency uint32
	flags     uint32
	wpaFlags  uint32
	rsnFlags  uint32
}

func (ap *mockAccessPoint) GetPropertySSID() (string, error)      { return ap.ssid, nil }
func (ap *mockAccessPoint) GetPropertyHWAddress() (string, error) { return ap.bssid, nil }
func (ap *mockAccessPoint) GetPropertyStrength() (uint8, error)   { return ap.strength, nil }
func (ap *mockAccessPoint) GetPropertyFrequency() (uint32, error) { return ap.frequency, nil }
func (ap *mockAccessPoint) GetPropertyFlags() (uint32, error)     { return ap.flags, nil }
func (ap *mockAccessPoint) GetPropertyWPAFlags() (uint32, error)  { return ap.wpaFlags, nil }
func (ap *mockAccessPoint) GetPropertyRSNFlags() (uint32, error)  { return ap.rsnFlags, nil }

type mockSettings struct {
	gonetworkmanager.Settings
	connections []gonetworkmanager.Connection
	added       []gonetworkmanager.ConnectionSettings
}

func (s *mockSettings) ListConnections() ([]gonetworkmanager.Connection, error) {
	return s.connections, nil
}

func (s *mockSettings) AddConnection(settings gonetworkmanager.ConnectionSettings) (gonetworkmanager.Connection, error) {
	s.added = append(s.added, settings)
	conn := &mockConnection{settings: settings}
	s.connections = append(s.connections, conn)
	return conn, nil
}

type mockConnection struct {
	gonetworkmanager.Connection
	settings gonetworkmanager.ConnectionSettings
	updates  []gonetworkmanager.ConnectionSettings
}

func (c *mockConnection) GetSettings() (gonetworkmanager.ConnectionSettings, error) {
	return c.settings, nil
}

func (c *mockConnection) Update(settings gonetworkmanager.ConnectionSettings) error {
	c.updates = append(c.updates, settings)
	c.settings = settings
	return nil
}

func wifiProfile(id, mode, iface string, autoconnect *bool) *mockConnection {
	conn := gonetworkmanager.ConnectionSettings{
		"connection": {
			"id":   id,
			"type": "802-11-wireless",
		},
		"802-11-wireless": {
			"mode": mode,
			"ssid": []byte(id),
		},
		"ipv6": {
			"method":    "auto",
			"addresses": [][]interface{}{},
		},
	}
	if iface != "" {
		conn["connection"]["interface-name"] = iface
	}
	if autoconnect != nil {
		conn["connection"]["autoconnect"] = *autoconnect
	}
	return &mockConnection{settings: conn}
}

func newTestPlatform(settings *mockSettings, devices ...gonetworkmanager.Device) (*Platform, *mockNM) {
	nm := &mockNM{devices: devices}
	p := newPlatform(nm, settings, nil, config.DefaultPlatformSettings(), nil)
	p.ipv4 = func(name string) string {
		if name == "wlan0" {
			return "10.0.0.23"
		}
		return ""
	}
	return p, nm
}

func TestInterfaces(t *testing.T) {
	p, nm := newTestPlatform(&mockSettings{},
		&mockWiredDevice{},
		&mockDeviceWireless{name: "wlan0"},
		&mockDeviceWireless{name: "ap0"},
	)

	ifaces, err := p.Interfaces()
	require.NoError(t, err)
	require.Len(t, ifaces, 2)

	assert.Equal(t, "wlan0", ifaces[0].Name())
	assert.Equal(t, wifi.KindStation, ifaces[0].Kind())
	assert.Equal(t, "10.0.0.23", ifaces[0].IPv4Address())
	assert.Equal(t, "ap0", ifaces[1].Name())
	assert.Equal(t, wifi.KindAccessPoint, ifaces[1].Kind())
	assert.Equal(t, "", ifaces[1].IPv4Address())

	// Devices are looked up once.
	_, err = p.Interfaces()
	require.NoError(t, err)
	assert.Equal(t, 2, nm.calls)

	assert.ErrorIs(t, ifaces[0].EnableStaticIPv4("10.0.0.1", "255.0.0.0", "10.0.0.1"), wifi.ErrNotSupported)
}

func TestInterfaces_MissingDevice(t *testing.T) {
	p, _ := newTestPlatform(&mockSettings{}, &mockDeviceWireless{name: "wlan0"})

	ifaces, err := p.Interfaces()
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.Equal(t, wifi.KindStation, ifaces[0].Kind())
}

func TestStationConfig(t *testing.T) {
	off := false
	home := wifiProfile("home", "infrastructure", "", nil)
	work := wifiProfile("work", "infrastructure", "wlan0", &off)
	other := wifiProfile("other", "infrastructure", "wlan1", nil)
	ap := wifiProfile(DefaultProfileID, "ap", "ap0", nil)
	settings := &mockSettings{connections: []gonetworkmanager.Connection{home, work, other, ap}}
	p, _ := newTestPlatform(settings)

	cfg, err := p.StationConfig(0)
	require.NoError(t, err)
	assert.Equal(t, wifi.OptionEnable, cfg.Settings().Options)

	cfg.Settings().Options = wifi.OptionDisable
	require.NoError(t, cfg.Save())

	require.Len(t, home.updates, 1)
	assert.Equal(t, false, home.updates[0]["connection"]["autoconnect"])
	_, hasAddresses := home.updates[0]["ipv6"]["addresses"]
	assert.False(t, hasAddresses)
	assert.Empty(t, work.updates, "already disabled")
	assert.Empty(t, other.updates, "bound to another interface")
	assert.Empty(t, ap.updates)

	_, err = p.StationConfig(1)
	assert.ErrorIs(t, err, wifi.ErrNotFound)
}

func TestAccessPointConfig_Create(t *testing.T) {
	settings := &mockSettings{}
	p, _ := newTestPlatform(settings, &mockDeviceWireless{name: "wlan0"}, &mockDeviceWireless{name: "ap0"})

	cfg, err := p.AccessPointConfig(0)
	require.NoError(t, err)
	assert.Equal(t, wifi.OptionDisable, cfg.Settings().Options)

	// Saving a disabled access point without a profile does nothing.
	require.NoError(t, cfg.Save())
	assert.Empty(t, settings.added)

	ifaces, err := p.Interfaces()
	require.NoError(t, err)
	require.NoError(t, ifaces[1].EnableStaticIPv4("192.168.4.1", "255.255.255.0", "192.168.4.1"))

	s := cfg.Settings()
	s.SSID = "Guest"
	s.Security = wifi.SecurityWPA2
	s.Password = "hunter22"
	s.MaxConnections = 4
	s.Options = wifi.OptionEnable | wifi.OptionAutoStart
	require.NoError(t, cfg.Save())

	require.Len(t, settings.added, 1)
	profile := settings.added[0]
	assert.Equal(t, DefaultProfileID, profile["connection"]["id"])
	assert.Equal(t, "ap0", profile["connection"]["interface-name"])
	assert.Equal(t, true, profile["connection"]["autoconnect"])
	assert.NotEmpty(t, profile["connection"]["uuid"])
	assert.Equal(t, "ap", profile["802-11-wireless"]["mode"])
	assert.Equal(t, []byte("Guest"), profile["802-11-wireless"]["ssid"])
	assert.Equal(t, "hunter22", profile["802-11-wireless-security"]["psk"])
	assert.Equal(t, "manual", profile["ipv4"]["method"])
	assert.Equal(t, "192.168.4.1", profile["ipv4"]["gateway"])
	assert.Equal(t, []map[string]dbus.Variant{{
		"address": dbus.MakeVariant("192.168.4.1"),
		"prefix":  dbus.MakeVariant(uint32(24)),
	}}, profile["ipv4"]["address-data"])
	assert.Equal(t, map[string]string{maxConnectionsKey: "4"}, profile["user"]["data"])
}

func TestAccessPointConfig_Existing(t *testing.T) {
	on := true
	conn := wifiProfile(DefaultProfileID, "ap", "ap0", &on)
	conn.settings["connection"]["uuid"] = "5a1e6a6c-0000-4000-8000-000000000001"
	conn.settings["802-11-wireless-security"] = map[string]interface{}{"key-mgmt": "wpa-psk"}
	conn.settings["user"] = map[string]interface{}{"data": map[string]string{maxConnectionsKey: "3"}}
	settings := &mockSettings{connections: []gonetworkmanager.Connection{conn}}
	p, _ := newTestPlatform(settings, &mockDeviceWireless{name: "wlan0"}, &mockDeviceWireless{name: "ap0"})

	cfg, err := p.AccessPointConfig(0)
	require.NoError(t, err)
	assert.Equal(t, wifi.RadioSettings{
		Options:        wifi.OptionEnable | wifi.OptionAutoStart,
		SSID:           DefaultProfileID,
		Security:       wifi.SecurityWPA2,
		MaxConnections: 3,
	}, *cfg.Settings())

	ifaces, err := p.Interfaces()
	require.NoError(t, err)
	require.NoError(t, ifaces[1].EnableStaticIPv4("10.1.0.1", "255.255.0.0", "10.1.0.1"))
	require.Len(t, conn.updates, 1)
	assert.Equal(t, "manual", conn.updates[0]["ipv4"]["method"])

	cfg.Settings().Security = wifi.SecurityOpen
	require.NoError(t, cfg.Save())
	require.Len(t, conn.updates, 2)
	assert.Equal(t, "5a1e6a6c-0000-4000-8000-000000000001", conn.updates[1]["connection"]["uuid"])
	_, secured := conn.updates[1]["802-11-wireless-security"]
	assert.False(t, secured)

	cfg.Settings().Options = wifi.OptionDisable
	require.NoError(t, cfg.Save())
	require.Len(t, conn.updates, 3)
	assert.Equal(t, false, conn.updates[2]["connection"]["autoconnect"])
	assert.Empty(t, settings.added)
}

func TestScanAdapter(t *testing.T) {
	dev := &mockDeviceWireless{
		name: "wlan0",
		accessPoints: []gonetworkmanager.AccessPoint{
			&mockAccessPoint{ssid: "Secure", bssid: "00:11:22:33:44:55", strength: 90, frequency: 5180, rsnFlags: 0x188},
			&mockAccessPoint{ssid: "Legacy", bssid: "00:11:22:33:44:56", strength: 40, wpaFlags: 0x108},
			&mockAccessPoint{ssid: "Old", strength: 20, flags: uint32(gonetworkmanager.Nm80211APFlagsPrivacy)},
			&mockAccessPoint{ssid: "Cafe", strength: 60},
			&mockAccessPoint{ssid: "", strength: 99},
		},
	}

	var mu sync.Mutex
	var last int64
	a := newScanAdapter(dev, func() (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		last++
		return last, nil
	}, nil)
	a.pollInterval = time.Millisecond

	results := make(chan []wifi.AvailableNetwork, 1)
	unsubscribe := a.Subscribe(func(networks []wifi.AvailableNetwork) {
		results <- networks
	})
	defer unsubscribe()

	require.NoError(t, a.ScanAsync())

	var networks []wifi.AvailableNetwork
	select {
	case networks = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("no scan report")
	}

	require.Len(t, networks, 4)
	assert.Equal(t, wifi.AvailableNetwork{
		SSID:      "Secure",
		BSSID:     "00:11:22:33:44:55",
		RSSI:      -55,
		Strength:  90,
		Frequency: 5180,
		Security:  wifi.SecurityWPA2,
	}, networks[0])
	assert.Equal(t, wifi.SecurityWPA, networks[1].Security)
	assert.Equal(t, wifi.SecurityWEP, networks[2].Security)
	assert.Equal(t, wifi.SecurityOpen, networks[3].Security)
	assert.Equal(t, 1, dev.scans)

	require.NoError(t, a.Disconnect())
	assert.Equal(t, 1, dev.disconnects)
}

func TestNewDHCPServer(t *testing.T) {
	p, _ := newTestPlatform(&mockSettings{})

	srv, err := p.NewDHCPServer("http://192.168.4.1")
	require.NoError(t, err)
	assert.IsType(t, &dhcpd.Server{}, srv)
}
