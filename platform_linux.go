//go:build linux

package main

import (
	"errors"
	"log/slog"

	"github.com/shazow/wifiap/wifi"
	"github.com/shazow/wifiap/wifi/iwd"
	"github.com/shazow/wifiap/wifi/networkmanager"
)

func newNetworkManager(s platformSettings, logger *slog.Logger) (wifi.Platform, func() error, error) {
	dhcp, closeStore, err := dhcpConfig(s.Daemon, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := []networkmanager.Option{networkmanager.WithDHCPConfig(dhcp)}

	if s.Platform.Scanner == "iwd" {
		adapter, err := iwd.New(nil, s.Platform.StationInterface, logger)
		if err != nil {
			logger.Warn("failed to initialize iwd scanner, falling back to networkmanager", "err", err)
		} else {
			opts = append(opts, networkmanager.WithScanAdapter(adapter))
		}
	}

	p, err := networkmanager.New(s.Platform, logger, opts...)
	if err != nil {
		return nil, nil, errors.Join(err, closeStore())
	}
	return p, closeStore, nil
}
