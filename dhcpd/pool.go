package dhcpd

import (
	"fmt"
	"net"
	"sync"
)

// Pool hands out the addresses of a subnet to clients, keyed by hardware
// address. The network, broadcast and server addresses are never handed
// out.
type Pool struct {
	mu     sync.Mutex
	start  uint32
	end    uint32
	server uint32
	max    int
	owners map[uint32]string // IP -> MAC
	byMAC  map[string]uint32
}

// NewPool creates a pool for the subnet of serverIP/mask. A maxLeases of 0
// means no limit other than the subnet size.
func NewPool(serverIP net.IP, mask net.IPMask, maxLeases int) (*Pool, error) {
	ip := serverIP.To4()
	if ip == nil {
		return nil, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidSubnet, serverIP)
	}
	ones, bits := mask.Size()
	if bits != 32 || ones == 0 || ones > 30 {
		return nil, fmt.Errorf("%w: mask %s", ErrInvalidSubnet, mask)
	}

	network := ipToUint32(ip.Mask(mask))
	broadcast := network | ^ipToUint32(net.IP(mask))

	return &Pool{
		start:  network + 1,
		end:    broadcast - 1,
		server: ipToUint32(ip),
		max:    maxLeases,
		owners: make(map[uint32]string),
		byMAC:  make(map[string]uint32),
	}, nil
}

// Contains reports whether ip can be handed out by the pool.
func (p *Pool) Contains(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	n := ipToUint32(ip4)
	return n >= p.start && n <= p.end && n != p.server
}

// Allocate returns the address bound to mac, or binds the lowest free one.
func (p *Pool) Allocate(mac string) (net.IP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.byMAC[mac]; ok {
		return uint32ToIP(n), nil
	}
	if p.full() {
		return nil, ErrPoolExhausted
	}
	for n := p.start; n <= p.end; n++ {
		if n == p.server {
			continue
		}
		if _, taken := p.owners[n]; taken {
			continue
		}
		p.bind(n, mac)
		return uint32ToIP(n), nil
	}
	return nil, ErrPoolExhausted
}

// Reserve binds ip to mac. A previous binding of mac to another address is
// released.
func (p *Pool) Reserve(ip net.IP, mac string) error {
	if !p.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, ip)
	}
	n := ipToUint32(ip.To4())

	p.mu.Lock()
	defer p.mu.Unlock()

	if owner, taken := p.owners[n]; taken {
		if owner == mac {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrAddressInUse, ip)
	}
	if prev, ok := p.byMAC[mac]; ok {
		delete(p.owners, prev)
		delete(p.byMAC, mac)
	}
	if p.full() {
		return ErrPoolExhausted
	}
	p.bind(n, mac)
	return nil
}

// Release returns ip to the pool. It fails if ip is bound to another
// client.
func (p *Pool) Release(ip net.IP, mac string) error {
	ip4 := ip.To4()
	if ip4 == nil {
		return ErrNotAllocated
	}
	n := ipToUint32(ip4)

	p.mu.Lock()
	defer p.mu.Unlock()

	owner, taken := p.owners[n]
	if !taken {
		return ErrNotAllocated
	}
	if owner != mac {
		return fmt.Errorf("%s is bound to %s, not %s", ip, owner, mac)
	}
	delete(p.owners, n)
	delete(p.byMAC, mac)
	return nil
}

// Lookup returns the address bound to mac.
func (p *Pool) Lookup(mac string) (net.IP, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.byMAC[mac]
	if !ok {
		return nil, false
	}
	return uint32ToIP(n), true
}

// Len returns the number of bound addresses.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.owners)
}

func (p *Pool) full() bool {
	return p.max > 0 && len(p.owners) >= p.max
}

func (p *Pool) bind(n uint32, mac string) {
	p.owners[n] = mac
	p.byMAC[mac] = n
}

func ipToUint32(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIP(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).To4()
}
