package dhcpd

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPTablesRedirectRule(t *testing.T) {
	ip := net.IPv4(192, 168, 4, 1)

	assert.Equal(t,
		[]string{"-i", "ap0", "-p", "tcp", "--dport", "80", "-j", "DNAT", "--to-destination", "192.168.4.1:80"},
		IPTablesRedirect{}.Rule("ap0", ip),
	)
	assert.Equal(t,
		"192.168.4.1:8080",
		IPTablesRedirect{PortalPort: 8080}.Rule("ap0", ip)[9],
	)
}
