package manager

// Status is a point-in-time view of an InterfaceManager.
type Status struct {
	WiFiEnabled    bool   `json:"wifiEnabled"`
	APEnabled      bool   `json:"apEnabled"`
	WiFiIPAddress  string `json:"wifiIpAddress"`
	APIPAddress    string `json:"apIpAddress"`
	PendingChanges bool   `json:"pendingChanges"`
	DHCPRunning    bool   `json:"dhcpRunning"`
}

// Snapshot reads the current Status of m.
func Snapshot(m InterfaceManager) Status {
	return Status{
		WiFiEnabled:    m.IsWiFiEnabled(),
		APEnabled:      m.IsAPEnabled(),
		WiFiIPAddress:  m.WiFiIPAddress(),
		APIPAddress:    m.APIPAddress(),
		PendingChanges: m.HasPendingChanges(),
		DHCPRunning:    m.IsDHCPRunning(),
	}
}
