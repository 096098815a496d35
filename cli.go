package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shazow/wifiap/config"
	"github.com/shazow/wifiap/internal/api"
	"github.com/shazow/wifiap/wifi"
	"github.com/shazow/wifiap/wifi/manager"
)

const shutdownTimeout = 5 * time.Second

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func runStatus(w io.Writer, asJSON bool, m manager.InterfaceManager) error {
	st := manager.Snapshot(m)
	if asJSON {
		return json.NewEncoder(w).Encode(st)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "WiFi:\t%s\t%s\n", onOff(st.WiFiEnabled), st.WiFiIPAddress)
	fmt.Fprintf(tw, "Access point:\t%s\t%s\n", onOff(st.APEnabled), st.APIPAddress)
	fmt.Fprintf(tw, "DHCP:\t%s\t\n", onOff(st.DHCPRunning))
	if st.PendingChanges {
		fmt.Fprintf(tw, "Pending:\treboot to apply changes\t\n")
	}
	return tw.Flush()
}

func runScan(ctx context.Context, w io.Writer, asJSON bool, m manager.InterfaceManager) error {
	networks, err := m.AvailableNetworks(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}
	wifi.SortNetworks(networks)

	if asJSON {
		return json.NewEncoder(w).Encode(networks)
	}
	for _, n := range networks {
		fmt.Fprintf(w, "%s\t%s\t%.0f dBm\t%s\n", n.SSID, n.BSSID, n.RSSI, strings.Repeat("▂", int(n.SignalBars)))
	}
	return nil
}

// parseToggle reads "on" or "off" from args.
func parseToggle(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("expected on or off")
	}
	switch args[0] {
	case "on", "enable":
		return true, nil
	case "off", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", args[0])
}

func runToggle(w io.Writer, name string, on bool, enable, disable func() error, m manager.InterfaceManager) error {
	fn := disable
	if on {
		fn = enable
	}
	if err := fn(); err != nil {
		return fmt.Errorf("failed to turn %s %s: %w", name, onOff(on), err)
	}
	fmt.Fprintf(w, "%s turned %s.", name, onOff(on))
	if m.HasPendingChanges() {
		fmt.Fprint(w, " Reboot to apply.")
	}
	fmt.Fprintln(w)
	return nil
}

func runDisconnect(w io.Writer, m manager.InterfaceManager) error {
	if err := m.DisconnectWiFi(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	fmt.Fprintln(w, "WiFi disconnected.")
	return nil
}

func runQRCode(w io.Writer, pngPath string, s config.APSettings) error {
	security := wifi.SecurityWPA2
	if s.Password == "" {
		security = wifi.SecurityOpen
	}
	if pngPath != "" {
		return WriteWifiQRCodePNG(pngPath, s.SSID, s.Password, security, false)
	}
	qr, err := GenerateWifiQRCode(s.SSID, s.Password, security, false)
	if err != nil {
		return err
	}
	fmt.Fprint(w, qr)
	return nil
}

func runConfigSchema(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(config.Metadata())
}

// runDaemon starts DHCP if the access point wants it, serves the HTTP API
// and blocks until ctx is done.
func runDaemon(ctx context.Context, m *manager.Manager, d config.DaemonSettings, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ap := m.Settings()
	if m.IsAPEnabled() && ap.EnableDHCP {
		if err := m.StartDHCP(); err != nil {
			return err
		}
	}
	defer func() {
		if err := m.StopDHCP(); err != nil {
			logger.Error("failed to stop DHCP", "err", err)
		}
	}()

	if d.Listen == "" {
		logger.Info("HTTP API disabled")
		<-ctx.Done()
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.NewHandler(m, ap.SSID, logger).RegisterRoutes(router)

	srv := &http.Server{Addr: d.Listen, Handler: router}
	errc := make(chan error, 1)
	go func() {
		logger.Info("serving HTTP API", "addr", d.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("HTTP API stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
