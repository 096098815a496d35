//go:build linux

package networkmanager

import (
	"fmt"
	"net"
	"strconv"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/shazow/wifiap/wifi"
)

const (
	wirelessType = "802-11-wireless"
	securityType = "802-11-wireless-security"

	// maxConnectionsKey is stored in the user data of the access point
	// profile, since NetworkManager has no client limit of its own.
	maxConnectionsKey = "wifiap.max-connections"
)

// staticIPv4 is a pending static address of the access point profile.
type staticIPv4 struct {
	ip, mask, gateway string
}

// radioConfig maps wifi.RadioSettings onto NetworkManager profiles.
//
// For the station, the enable bit is the autoconnect flag of every
// infrastructure profile usable on the interface. For the access point it
// is the autoconnect flag of a single mode=ap profile.
type radioConfig struct {
	platform *Platform
	kind     wifi.InterfaceKind
	iface    string
	settings wifi.RadioSettings
	static   *staticIPv4
}

func (c *radioConfig) Settings() *wifi.RadioSettings { return &c.settings }

func (c *radioConfig) load() error {
	if c.kind == wifi.KindStation {
		return c.loadStation()
	}
	return c.loadAccessPoint()
}

func (c *radioConfig) Save() error {
	if c.kind == wifi.KindStation {
		return c.saveStation()
	}
	return c.saveAccessPoint()
}

func settingString(s gonetworkmanager.ConnectionSettings, section, key string) string {
	if v, ok := s[section][key].(string); ok {
		return v
	}
	return ""
}

// autoconnect defaults to true when unset, as in NetworkManager.
func autoconnect(s gonetworkmanager.ConnectionSettings) bool {
	if ac, ok := s["connection"]["autoconnect"].(bool); ok {
		return ac
	}
	return true
}

// stationProfiles returns the infrastructure Wi-Fi profiles usable on the
// station interface.
func (c *radioConfig) stationProfiles() ([]gonetworkmanager.Connection, []gonetworkmanager.ConnectionSettings, error) {
	known, err := c.platform.Settings.ListConnections()
	if err != nil {
		return nil, nil, err
	}

	var conns []gonetworkmanager.Connection
	var settings []gonetworkmanager.ConnectionSettings
	for _, conn := range known {
		s, err := conn.GetSettings()
		if err != nil {
			continue
		}
		if settingString(s, "connection", "type") != wirelessType {
			continue
		}
		if settingString(s, wirelessType, "mode") == "ap" {
			continue
		}
		if name := settingString(s, "connection", "interface-name"); name != "" && name != c.iface {
			continue
		}
		conns = append(conns, conn)
		settings = append(settings, s)
	}
	return conns, settings, nil
}

func (c *radioConfig) loadStation() error {
	_, profiles, err := c.stationProfiles()
	if err != nil {
		return err
	}

	c.settings.Options = wifi.OptionDisable
	for _, s := range profiles {
		if autoconnect(s) {
			c.settings.Options = wifi.OptionEnable
			break
		}
	}
	if len(profiles) == 0 {
		// Nothing to connect to, but nothing stops it either.
		c.settings.Options = wifi.OptionEnable
	}
	return nil
}

func (c *radioConfig) saveStation() error {
	conns, profiles, err := c.stationProfiles()
	if err != nil {
		return err
	}

	enable := c.settings.Options.Has(wifi.OptionEnable)
	for i, conn := range conns {
		s := profiles[i]
		if autoconnect(s) == enable {
			continue
		}
		s["connection"]["autoconnect"] = enable

		applyUpdateWorkaround(s)
		if err := conn.Update(s); err != nil {
			return fmt.Errorf("failed to update %s: %w", settingString(s, "connection", "id"), err)
		}
	}
	c.platform.logger.Debug("station profiles saved", "profiles", len(conns), "autoconnect", enable)
	return nil
}

// profile returns the access point profile, or nil if it doesn't exist.
func (c *radioConfig) profile() (gonetworkmanager.Connection, gonetworkmanager.ConnectionSettings, error) {
	known, err := c.platform.Settings.ListConnections()
	if err != nil {
		return nil, nil, err
	}
	for _, conn := range known {
		s, err := conn.GetSettings()
		if err != nil {
			continue
		}
		if settingString(s, "connection", "id") == c.platform.profileID {
			return conn, s, nil
		}
	}
	return nil, nil, nil
}

func (c *radioConfig) loadAccessPoint() error {
	_, s, err := c.profile()
	if err != nil {
		return err
	}
	if s == nil {
		c.settings.Options = wifi.OptionDisable
		return nil
	}

	if autoconnect(s) {
		c.settings.Options = wifi.OptionEnable | wifi.OptionAutoStart
	} else {
		c.settings.Options = wifi.OptionDisable
	}
	if ssid, ok := s[wirelessType]["ssid"].([]byte); ok {
		c.settings.SSID = string(ssid)
	}
	c.settings.Security = wifi.SecurityOpen
	if _, ok := s[securityType]; ok {
		c.settings.Security = wifi.SecurityWPA2
	}
	if data, ok := s["user"]["data"].(map[string]string); ok {
		if n, err := strconv.ParseUint(data[maxConnectionsKey], 10, 8); err == nil {
			c.settings.MaxConnections = uint8(n)
		}
	}
	return nil
}

func (c *radioConfig) saveAccessPoint() error {
	conn, s, err := c.profile()
	if err != nil {
		return err
	}

	if !c.settings.Options.Has(wifi.OptionEnable) {
		if conn == nil {
			return nil
		}
		s["connection"]["autoconnect"] = false
		applyUpdateWorkaround(s)
		return conn.Update(s)
	}

	id := uuid.New().String()
	if conn != nil {
		if existing := settingString(s, "connection", "uuid"); existing != "" {
			id = existing
		}
	}
	profile := c.accessPointProfile(id)
	if conn == nil {
		_, err := c.platform.Settings.AddConnection(profile)
		if err != nil {
			return fmt.Errorf("failed to add access point profile: %w", err)
		}
		return nil
	}
	applyUpdateWorkaround(profile)
	return conn.Update(profile)
}

func (c *radioConfig) accessPointProfile(id string) gonetworkmanager.ConnectionSettings {
	profile := gonetworkmanager.ConnectionSettings{
		"connection": {
			"id":             c.platform.profileID,
			"uuid":           id,
			"type":           wirelessType,
			"interface-name": c.iface,
			"autoconnect":    c.settings.Options.Has(wifi.OptionAutoStart),
		},
		wirelessType: {
			"mode": "ap",
			"ssid": []byte(c.settings.SSID),
		},
		"ipv6": {"method": "ignore"},
		"user": {
			"data": map[string]string{
				maxConnectionsKey: strconv.Itoa(int(c.settings.MaxConnections)),
			},
		},
	}
	if c.static != nil {
		profile["ipv4"] = ipv4Settings(c.static)
	} else {
		profile["ipv4"] = map[string]interface{}{"method": "shared"}
	}

	if c.settings.Security == wifi.SecurityWPA2 {
		profile[wirelessType]["security"] = securityType
		profile[securityType] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"proto":    []string{"rsn"},
			"psk":      c.settings.Password,
		}
	}
	return profile
}

// setStaticIPv4 stages the address for the next Save and applies it to an
// existing profile right away.
func (c *radioConfig) setStaticIPv4(ip, mask, gateway string) error {
	if net.ParseIP(ip).To4() == nil {
		return fmt.Errorf("invalid address %q", ip)
	}
	if net.ParseIP(mask).To4() == nil {
		return fmt.Errorf("invalid mask %q", mask)
	}
	c.static = &staticIPv4{ip: ip, mask: mask, gateway: gateway}

	conn, s, err := c.profile()
	if err != nil || conn == nil {
		return err
	}
	s["ipv4"] = ipv4Settings(c.static)
	applyUpdateWorkaround(s)
	return conn.Update(s)
}

func ipv4Settings(static *staticIPv4) map[string]interface{} {
	prefix, _ := net.IPMask(net.ParseIP(static.mask).To4()).Size()
	return map[string]interface{}{
		"method": "manual",
		"address-data": []map[string]dbus.Variant{{
			"address": dbus.MakeVariant(static.ip),
			"prefix":  dbus.MakeVariant(uint32(prefix)),
		}},
		"gateway": static.gateway,
	}
}
