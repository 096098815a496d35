//go:build !linux

package main

import (
	"fmt"
	"log/slog"

	"github.com/shazow/wifiap/wifi"
)

// newNetworkManager returns an error for unsupported operating systems.
func newNetworkManager(s platformSettings, logger *slog.Logger) (wifi.Platform, func() error, error) {
	return nil, nil, fmt.Errorf("networkmanager backend requires linux: %w", wifi.ErrNotSupported)
}
