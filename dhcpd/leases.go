package dhcpd

import (
	"net"
	"sort"
	"sync"
	"time"
)

// Lease is an address bound to a client until ExpireAt.
type Lease struct {
	IP       net.IP
	MAC      net.HardwareAddr
	Hostname string
	ExpireAt time.Time
}

// Expired reports whether the lease ran out at now.
func (l *Lease) Expired(now time.Time) bool {
	return !l.ExpireAt.After(now)
}

// LeaseStore persists leases. A client holds at most one lease: saving a
// lease replaces any other lease with the same IP or MAC.
type LeaseStore interface {
	SaveLease(lease *Lease) error
	GetLeaseByMAC(mac net.HardwareAddr) (*Lease, error)
	GetLeaseByIP(ip net.IP) (*Lease, error)
	DeleteLease(ip net.IP) error
	ListLeases() ([]*Lease, error)
	Close() error
}

// MemoryStore keeps leases in memory.
type MemoryStore struct {
	mu    sync.Mutex
	byIP  map[string]*Lease
	byMAC map[string]string // MAC -> IP
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byIP:  make(map[string]*Lease),
		byMAC: make(map[string]string),
	}
}

func (s *MemoryStore) SaveLease(lease *Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ip := lease.IP.String()
	mac := lease.MAC.String()
	if prev, ok := s.byIP[ip]; ok {
		delete(s.byMAC, prev.MAC.String())
	}
	if prevIP, ok := s.byMAC[mac]; ok {
		delete(s.byIP, prevIP)
	}

	l := *lease
	s.byIP[ip] = &l
	s.byMAC[mac] = ip
	return nil
}

func (s *MemoryStore) GetLeaseByMAC(mac net.HardwareAddr) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ip, ok := s.byMAC[mac.String()]
	if !ok {
		return nil, ErrLeaseNotFound
	}
	l := *s.byIP[ip]
	return &l, nil
}

func (s *MemoryStore) GetLeaseByIP(ip net.IP) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lease, ok := s.byIP[ip.String()]
	if !ok {
		return nil, ErrLeaseNotFound
	}
	l := *lease
	return &l, nil
}

func (s *MemoryStore) DeleteLease(ip net.IP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lease, ok := s.byIP[ip.String()]
	if !ok {
		return ErrLeaseNotFound
	}
	delete(s.byMAC, lease.MAC.String())
	delete(s.byIP, ip.String())
	return nil
}

// ListLeases returns all leases ordered by address.
func (s *MemoryStore) ListLeases() ([]*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	leases := make([]*Lease, 0, len(s.byIP))
	for _, lease := range s.byIP {
		l := *lease
		leases = append(leases, &l)
	}
	sortLeases(leases)
	return leases, nil
}

func sortLeases(leases []*Lease) {
	sort.Slice(leases, func(i, j int) bool {
		return ipToUint32(leases[i].IP) < ipToUint32(leases[j].IP)
	})
}

func (s *MemoryStore) Close() error { return nil }
