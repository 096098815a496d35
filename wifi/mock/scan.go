package mock

import (
	"sync"
	"time"

	"github.com/shazow/wifiap/wifi"
)

// ScanAdapter is an in-memory wifi.ScanAdapter.
type ScanAdapter struct {
	// Reports are delivered in order on a separate goroutine for every
	// ScanAsync call, each one after ReportDelay.
	Reports     [][]wifi.AvailableNetwork
	ReportDelay time.Duration
	// OnScan replaces the default delivery of Reports when set.
	OnScan func(a *ScanAdapter)

	ScanError       error
	DisconnectError error

	wifi.Subscribers

	mu          sync.Mutex
	platform    *Platform
	scans       int
	disconnects int
}

// NewScanAdapter creates an adapter without any reports.
func NewScanAdapter(p *Platform) *ScanAdapter {
	return &ScanAdapter{platform: p}
}

// Deliver sends report to every current subscriber.
func (a *ScanAdapter) Deliver(report []wifi.AvailableNetwork) {
	a.Notify(report)
}

func (a *ScanAdapter) ScanAsync() error {
	a.mu.Lock()
	a.scans++
	err := a.ScanError
	onScan := a.OnScan
	reports := a.Reports
	delay := a.ReportDelay
	a.mu.Unlock()

	if err != nil {
		return err
	}
	if onScan != nil {
		onScan(a)
		return nil
	}

	go func() {
		for _, report := range reports {
			time.Sleep(delay)
			a.Deliver(report)
		}
	}()
	return nil
}

func (a *ScanAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.DisconnectError != nil {
		return a.DisconnectError
	}
	a.disconnects++
	if a.platform != nil {
		for _, iface := range a.platform.Ifaces {
			if sta, ok := iface.(*Interface); ok && sta.kind == wifi.KindStation {
				sta.Address = ""
			}
		}
	}
	return nil
}

// Scans returns how many scans were requested.
func (a *ScanAdapter) Scans() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scans
}

// Disconnects returns how many disconnects succeeded.
func (a *ScanAdapter) Disconnects() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disconnects
}
