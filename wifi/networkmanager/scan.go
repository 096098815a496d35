//go:build linux

package networkmanager

import (
	"log/slog"
	"time"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"

	"github.com/shazow/wifiap/wifi"
)

const (
	scanPollInterval  = 500 * time.Millisecond
	scanFallbackDelay = 5 * time.Second
	// scanWatchTimeout bounds how long a requested scan is watched. Results
	// are reported at the end even if LastScan never changed.
	scanWatchTimeout = 30 * time.Second
)

// scanAdapter requests scans through NetworkManager and reports the
// device's access points once LastScan moves.
type scanAdapter struct {
	dev      gonetworkmanager.DeviceWireless
	lastScan func() (int64, error)
	logger   *slog.Logger

	pollInterval time.Duration
	watchTimeout time.Duration

	wifi.Subscribers
}

func newScanAdapter(dev gonetworkmanager.DeviceWireless, lastScan func() (int64, error), logger *slog.Logger) *scanAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &scanAdapter{
		dev:          dev,
		lastScan:     lastScan,
		logger:       logger,
		pollInterval: scanPollInterval,
		watchTimeout: scanWatchTimeout,
	}
}

func (a *scanAdapter) ScanAsync() error {
	before, err := a.lastScan()
	watchTimeout := a.watchTimeout
	if err != nil {
		// Without LastScan, report whatever is visible after a while.
		a.logger.Debug("LastScan unavailable", "err", err)
		watchTimeout = scanFallbackDelay
	}
	if err := a.dev.RequestScan(); err != nil {
		return err
	}
	go a.watch(before, watchTimeout)
	return nil
}

func (a *scanAdapter) watch(before int64, timeout time.Duration) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	deadline := time.After(timeout)

wait:
	for {
		select {
		case <-ticker.C:
			if last, err := a.lastScan(); err == nil && last != before {
				break wait
			}
		case <-deadline:
			break wait
		}
	}

	networks, err := a.report()
	if err != nil {
		a.logger.Warn("failed to read access points", "err", err)
		return
	}
	a.Notify(networks)
}

// report reads the access points currently visible to the device.
func (a *scanAdapter) report() ([]wifi.AvailableNetwork, error) {
	accessPoints, err := a.dev.GetAccessPoints()
	if err != nil {
		return nil, err
	}

	networks := make([]wifi.AvailableNetwork, 0, len(accessPoints))
	for _, ap := range accessPoints {
		ssid, err := ap.GetPropertySSID()
		if err != nil || ssid == "" {
			continue
		}
		bssid, _ := ap.GetPropertyHWAddress()
		strength, _ := ap.GetPropertyStrength()
		frequency, _ := ap.GetPropertyFrequency()
		flags, _ := ap.GetPropertyFlags()
		wpaFlags, _ := ap.GetPropertyWPAFlags()
		rsnFlags, _ := ap.GetPropertyRSNFlags()

		var security wifi.SecurityType
		switch {
		case rsnFlags > 0:
			security = wifi.SecurityWPA2
		case wpaFlags > 0:
			security = wifi.SecurityWPA
		case uint32(flags)&uint32(gonetworkmanager.Nm80211APFlagsPrivacy) != 0:
			security = wifi.SecurityWEP
		default:
			security = wifi.SecurityOpen
		}

		networks = append(networks, wifi.AvailableNetwork{
			SSID:      ssid,
			BSSID:     bssid,
			RSSI:      wifi.StrengthToRSSI(strength),
			Strength:  strength,
			Frequency: uint(frequency),
			Security:  security,
		})
	}
	return networks, nil
}

func (a *scanAdapter) Disconnect() error {
	return a.dev.Disconnect()
}
