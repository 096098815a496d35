package dhcpd

import (
	"fmt"
	"net"
	"strconv"

	"github.com/coreos/go-iptables/iptables"
)

// Redirector sends HTTP traffic of access point clients to the captive
// portal.
type Redirector interface {
	Add(iface string, ip net.IP) error
	Remove(iface string, ip net.IP) error
}

// IPTablesRedirect installs a DNAT rule for TCP/80 arriving on the access
// point interface.
type IPTablesRedirect struct {
	// PortalPort is the port the portal listens on at the server address.
	PortalPort int
}

// Rule returns the PREROUTING rule spec for iface.
//
//	iptables -t nat -A PREROUTING -i {iface} -p tcp --dport 80 -j DNAT --to-destination {ip}:{port}
func (r IPTablesRedirect) Rule(iface string, ip net.IP) []string {
	port := r.PortalPort
	if port == 0 {
		port = 80
	}
	return []string{
		"-i", iface,
		"-p", "tcp",
		"--dport", "80",
		"-j", "DNAT",
		"--to-destination", net.JoinHostPort(ip.String(), strconv.Itoa(port)),
	}
}

func (r IPTablesRedirect) Add(iface string, ip net.IP) error {
	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("failed to initialize iptables: %w", err)
	}
	if err := ipt.AppendUnique("nat", "PREROUTING", r.Rule(iface, ip)...); err != nil {
		return fmt.Errorf("failed to add captive portal redirect: %w", err)
	}
	return nil
}

func (r IPTablesRedirect) Remove(iface string, ip net.IP) error {
	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("failed to initialize iptables: %w", err)
	}
	return ipt.DeleteIfExists("nat", "PREROUTING", r.Rule(iface, ip)...)
}
