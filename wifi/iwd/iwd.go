//go:build linux

// Package iwd scans for networks through iwd instead of NetworkManager.
package iwd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifiap/wifi"
)

const scanTimeout = 30 * time.Second

// IWD constants
const (
	iwdDest              = "net.connman.iwd"
	iwdPath              = "/"
	iwdDeviceIface       = "net.connman.iwd.Device"
	iwdNetworkIface      = "net.connman.iwd.Network"
	iwdStationIface      = "net.connman.iwd.Station"
	iwdBSSIface          = "net.connman.iwd.BasicServiceSet"
	objectManagerIface   = "org.freedesktop.DBus.ObjectManager"
	propertiesIface      = "org.freedesktop.DBus.Properties"
	propertiesChangedSig = propertiesIface + ".PropertiesChanged"
)

// ScanAdapter implements wifi.ScanAdapter using an iwd station.
type ScanAdapter struct {
	wifi.Subscribers

	conn    *dbus.Conn
	station dbus.ObjectPath
	logger  *slog.Logger
}

// New finds the iwd station of the interface called name.
func New(conn *dbus.Conn, name string, logger *slog.Logger) (*ScanAdapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if conn == nil {
		var err error
		conn, err = dbus.SystemBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to system bus: %w", wifi.ErrNotAvailable)
		}
	}

	station, err := findStation(conn, name)
	if err != nil {
		return nil, err
	}
	return &ScanAdapter{conn: conn, station: station, logger: logger}, nil
}

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func findStation(conn *dbus.Conn, name string) (dbus.ObjectPath, error) {
	var objects managedObjects
	err := conn.Object(iwdDest, iwdPath).Call(objectManagerIface+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return "", fmt.Errorf("iwd is not available: %w", wifi.ErrNotAvailable)
	}
	return stationPath(objects, name)
}

// stationPath returns the station object of the device called name.
func stationPath(objects managedObjects, name string) (dbus.ObjectPath, error) {
	for path, ifaces := range objects {
		if _, ok := ifaces[iwdStationIface]; !ok {
			continue
		}
		device, ok := ifaces[iwdDeviceIface]
		if !ok {
			continue
		}
		if n, ok := device["Name"].Value().(string); ok && n == name {
			return path, nil
		}
	}
	return "", fmt.Errorf("no iwd station for %s: %w", name, wifi.ErrNotFound)
}

// ScanAsync starts a scan and reports the ordered networks once the station
// stops scanning.
func (a *ScanAdapter) ScanAsync() error {
	signals := make(chan *dbus.Signal, 10)
	matchPath := dbus.WithMatchObjectPath(a.station)
	matchInterface := dbus.WithMatchInterface(propertiesIface)
	a.conn.Signal(signals)
	if err := a.conn.AddMatchSignal(matchInterface, matchPath); err != nil {
		a.conn.RemoveSignal(signals)
		return err
	}

	err := a.conn.Object(iwdDest, a.station).Call(iwdStationIface+".Scan", 0).Err
	if err != nil {
		a.conn.RemoveMatchSignal(matchInterface, matchPath)
		a.conn.RemoveSignal(signals)
		return err
	}

	go func() {
		defer a.conn.RemoveSignal(signals)
		defer a.conn.RemoveMatchSignal(matchInterface, matchPath)

		a.waitScan(signals, time.After(scanTimeout))

		networks, err := a.orderedNetworks()
		if err != nil {
			a.logger.Warn("failed to read iwd networks", "err", err)
			return
		}
		a.Notify(networks)
	}()
	return nil
}

// waitScan blocks until the scan finishes, the timeout fires or signals is
// closed with the bus connection.
func (a *ScanAdapter) waitScan(signals <-chan *dbus.Signal, timeout <-chan time.Time) {
	for {
		select {
		case signal, ok := <-signals:
			if !ok {
				a.logger.Debug("iwd signal channel closed")
				return
			}
			if scanFinished(signal) {
				return
			}
		case <-timeout:
			a.logger.Debug("iwd scan timed out")
			return
		}
	}
}

// scanFinished reports whether signal is the station's Scanning property
// turning false.
func scanFinished(signal *dbus.Signal) bool {
	if signal == nil || signal.Name != propertiesChangedSig || len(signal.Body) < 2 {
		return false
	}
	iface, ok := signal.Body[0].(string)
	if !ok || iface != iwdStationIface {
		return false
	}
	props, ok := signal.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false
	}
	scanning, ok := props["Scanning"]
	if !ok {
		return false
	}
	v, ok := scanning.Value().(bool)
	return ok && !v
}

// orderedNetwork is an entry of Station.GetOrderedNetworks. Signal is in
// 100 * dBm.
type orderedNetwork struct {
	Path   dbus.ObjectPath
	Signal int16
}

func (a *ScanAdapter) orderedNetworks() ([]wifi.AvailableNetwork, error) {
	var ordered []orderedNetwork
	err := a.conn.Object(iwdDest, a.station).Call(iwdStationIface+".GetOrderedNetworks", 0).Store(&ordered)
	if err != nil {
		return nil, err
	}

	networks := make([]wifi.AvailableNetwork, 0, len(ordered))
	for _, o := range ordered {
		obj := a.conn.Object(iwdDest, o.Path)
		nameVar, err := obj.GetProperty(iwdNetworkIface + ".Name")
		if err != nil {
			continue
		}
		ssid, _ := nameVar.Value().(string)
		typeVar, _ := obj.GetProperty(iwdNetworkIface + ".Type")
		typ, _ := typeVar.Value().(string)

		networks = append(networks, wifi.AvailableNetwork{
			SSID:     ssid,
			BSSID:    a.bssid(obj),
			RSSI:     signalToRSSI(o.Signal),
			Strength: wifi.RSSIToStrength(signalToRSSI(o.Signal)),
			Security: securityFromType(typ),
		})
	}
	return networks, nil
}

// bssid returns the address of the first BSS of a network, if iwd exposes
// it.
func (a *ScanAdapter) bssid(network dbus.BusObject) string {
	v, err := network.GetProperty(iwdNetworkIface + ".ExtendedServiceSet")
	if err != nil {
		return ""
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok || len(paths) == 0 {
		return ""
	}
	addr, err := a.conn.Object(iwdDest, paths[0]).GetProperty(iwdBSSIface + ".Address")
	if err != nil {
		return ""
	}
	s, _ := addr.Value().(string)
	return s
}

// Disconnect disconnects the station.
func (a *ScanAdapter) Disconnect() error {
	return a.conn.Object(iwdDest, a.station).Call(iwdStationIface+".Disconnect", 0).Err
}

func signalToRSSI(signal int16) float64 {
	return float64(signal) / 100
}

func securityFromType(typ string) wifi.SecurityType {
	switch typ {
	case "psk", "8021x":
		return wifi.SecurityWPA2
	case "wep":
		return wifi.SecurityWEP
	case "open":
		return wifi.SecurityOpen
	}
	return wifi.SecurityUnknown
}

var _ wifi.ScanAdapter = (*ScanAdapter)(nil)
