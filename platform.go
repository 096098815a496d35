package main

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/shazow/wifiap/config"
	"github.com/shazow/wifiap/dhcpd"
	"github.com/shazow/wifiap/wifi"
	"github.com/shazow/wifiap/wifi/mock"
)

// platformSettings is everything needed to build a wifi.Platform.
type platformSettings struct {
	Platform config.PlatformSettings
	Daemon   config.DaemonSettings
}

// newPlatform builds the platform named by the Backend setting. The returned
// close func releases whatever the platform opened.
func newPlatform(s platformSettings, logger *slog.Logger) (wifi.Platform, func() error, error) {
	switch s.Platform.Backend {
	case "mock":
		return mock.New(), func() error { return nil }, nil
	case "networkmanager":
		return newNetworkManager(s, logger)
	}
	return nil, nil, fmt.Errorf("unknown backend %q: %w", s.Platform.Backend, wifi.ErrNotSupported)
}

// dhcpConfig builds the DHCP server configuration from the daemon settings.
func dhcpConfig(s config.DaemonSettings, logger *slog.Logger) (dhcpd.Config, func() error, error) {
	cfg := dhcpd.Config{Logger: logger}
	closer := func() error { return nil }

	if s.LeaseDB != "" {
		store, err := dhcpd.OpenSQLiteStore(s.LeaseDB)
		if err != nil {
			return cfg, nil, err
		}
		cfg.Store = store
		closer = store.Close
	}

	if s.CaptiveRedirect {
		cfg.Redirect = dhcpd.IPTablesRedirect{PortalPort: listenPort(s.Listen)}
	}
	return cfg, closer, nil
}

// listenPort returns the port of a listen address, or 0 if it has none.
func listenPort(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return n
}
