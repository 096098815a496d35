// Package dhcpd is a small DHCPv4 server for access point clients that
// points them at a captive portal.
package dhcpd

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/server4"
)

// DefaultLeaseTime is used when Config.LeaseTime is zero.
const DefaultLeaseTime = time.Hour

// OptionCaptivePortal is the DHCP option carrying the captive portal URL
// (RFC 8910).
var OptionCaptivePortal = dhcpv4.GenericOptionCode(114)

// Config configures a Server.
type Config struct {
	// Interface the server binds to.
	Interface        string
	CaptivePortalURL string
	LeaseTime        time.Duration
	// MaxLeases limits concurrent clients. 0 means the whole subnet.
	MaxLeases int
	// Store defaults to a MemoryStore.
	Store LeaseStore
	// Redirect is optional.
	Redirect Redirector
	Logger   *slog.Logger
}

// Server serves leases from the subnet it was started on. It can be started
// again after Stop.
type Server struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	srv   *server4.Server
	state *state
}

type state struct {
	ip   net.IP
	mask net.IPMask
	pool *Pool
}

func New(cfg Config) *Server {
	if cfg.LeaseTime == 0 {
		cfg.LeaseTime = DefaultLeaseTime
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cfg:    cfg,
		logger: logger.With("component", "dhcpd", "interface", cfg.Interface),
		now:    time.Now,
	}
}

// Start serves leases for the subnet of ip/mask, with ip as router and DNS
// server.
func (s *Server) Start(ip net.IP, mask net.IPMask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return ErrAlreadyRunning
	}
	st, err := s.prepare(ip, mask)
	if err != nil {
		return err
	}

	laddr := &net.UDPAddr{IP: net.IPv4zero, Port: dhcpv4.ServerPort}
	srv, err := server4.NewServer(s.cfg.Interface, laddr, s.handle)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Interface, err)
	}
	if s.cfg.Redirect != nil {
		if err := s.cfg.Redirect.Add(s.cfg.Interface, st.ip); err != nil {
			srv.Close()
			return err
		}
	}

	s.srv = srv
	s.state = st
	go func() {
		if err := srv.Serve(); err != nil {
			s.logger.Debug("dhcp server exited", "err", err)
		}
	}()

	s.logger.Info("dhcp server listening", "address", st.ip.String(), "leases", st.pool.Len())
	return nil
}

// prepare builds the lease pool for ip/mask and restores unexpired leases
// from the store.
func (s *Server) prepare(ip net.IP, mask net.IPMask) (*state, error) {
	ip4 := ip.To4()
	pool, err := NewPool(ip4, mask, s.cfg.MaxLeases)
	if err != nil {
		return nil, err
	}

	leases, err := s.cfg.Store.ListLeases()
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, lease := range leases {
		if lease.Expired(now) || !pool.Contains(lease.IP) {
			_ = s.cfg.Store.DeleteLease(lease.IP)
			continue
		}
		if err := pool.Reserve(lease.IP, lease.MAC.String()); err != nil {
			s.logger.Warn("dropping stored lease", "ip", lease.IP.String(), "err", err)
			_ = s.cfg.Store.DeleteLease(lease.IP)
		}
	}
	return &state{ip: ip4, mask: mask, pool: pool}, nil
}

// Stop stops serving. It does nothing if the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	err := s.srv.Close()
	if s.cfg.Redirect != nil {
		err = errors.Join(err, s.cfg.Redirect.Remove(s.cfg.Interface, s.state.ip))
	}
	s.srv = nil
	s.state = nil
	s.logger.Info("dhcp server stopped")
	return err
}

// Leases returns the leases currently stored.
func (s *Server) Leases() ([]*Lease, error) {
	return s.cfg.Store.ListLeases()
}

func (s *Server) current() *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) handle(conn net.PacketConn, peer net.Addr, req *dhcpv4.DHCPv4) {
	reply, err := s.Reply(req)
	if err != nil {
		s.logger.Warn("failed to handle request", "type", req.MessageType().String(), "mac", req.ClientHWAddr.String(), "err", err)
		return
	}
	if reply == nil {
		return
	}

	dst := peer
	if gw := req.GatewayIPAddr; gw != nil && !gw.IsUnspecified() {
		dst = &net.UDPAddr{IP: gw, Port: dhcpv4.ServerPort}
	} else if udp, ok := peer.(*net.UDPAddr); !ok || udp.IP.IsUnspecified() || req.IsBroadcast() {
		dst = &net.UDPAddr{IP: net.IPv4bcast, Port: dhcpv4.ClientPort}
	}
	if _, err := conn.WriteTo(reply.ToBytes(), dst); err != nil {
		s.logger.Warn("failed to send reply", "dst", dst.String(), "err", err)
	}
}

// Reply computes the response to req. A nil reply means nothing is sent.
func (s *Server) Reply(req *dhcpv4.DHCPv4) (*dhcpv4.DHCPv4, error) {
	st := s.current()
	if st == nil {
		return nil, ErrNotRunning
	}
	mac := req.ClientHWAddr.String()

	switch req.MessageType() {
	case dhcpv4.MessageTypeDiscover:
		ip, err := s.offer(st, req)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("offer", "mac", mac, "ip", ip.String())
		return s.reply(st, req, dhcpv4.MessageTypeOffer, ip)

	case dhcpv4.MessageTypeRequest:
		if sid := req.ServerIdentifier(); sid != nil && !sid.Equal(st.ip) {
			// The client picked another server.
			if ip, ok := st.pool.Lookup(mac); ok {
				_ = st.pool.Release(ip, mac)
			}
			return nil, nil
		}
		ip := req.RequestedIPAddress()
		if ip == nil || ip.IsUnspecified() {
			ip = req.ClientIPAddr
		}
		if err := s.bind(st, ip, mac); err != nil {
			s.logger.Debug("nak", "mac", mac, "ip", ip.String(), "err", err)
			return dhcpv4.NewReplyFromRequest(req,
				dhcpv4.WithMessageType(dhcpv4.MessageTypeNak),
				dhcpv4.WithServerIP(st.ip),
				dhcpv4.WithOption(dhcpv4.OptServerIdentifier(st.ip)),
			)
		}
		if err := s.cfg.Store.SaveLease(&Lease{
			IP:       ip.To4(),
			MAC:      req.ClientHWAddr,
			Hostname: req.HostName(),
			ExpireAt: s.now().Add(s.cfg.LeaseTime),
		}); err != nil {
			return nil, err
		}
		s.logger.Info("lease", "mac", mac, "ip", ip.String(), "hostname", req.HostName())
		return s.reply(st, req, dhcpv4.MessageTypeAck, ip)

	case dhcpv4.MessageTypeRelease:
		s.release(st, req.ClientIPAddr, mac)
		return nil, nil

	case dhcpv4.MessageTypeDecline:
		s.release(st, req.RequestedIPAddress(), mac)
		return nil, nil
	}
	return nil, nil
}

// offer prefers the address the client asked for.
func (s *Server) offer(st *state, req *dhcpv4.DHCPv4) (net.IP, error) {
	mac := req.ClientHWAddr.String()
	if ip := req.RequestedIPAddress(); ip != nil && st.pool.Contains(ip) {
		if err := st.pool.Reserve(ip, mac); err == nil {
			return ip.To4(), nil
		}
	}
	ip, err := st.pool.Allocate(mac)
	if errors.Is(err, ErrPoolExhausted) && s.reclaim(st) > 0 {
		ip, err = st.pool.Allocate(mac)
	}
	return ip, err
}

func (s *Server) bind(st *state, ip net.IP, mac string) error {
	err := st.pool.Reserve(ip, mac)
	if errors.Is(err, ErrPoolExhausted) && s.reclaim(st) > 0 {
		err = st.pool.Reserve(ip, mac)
	}
	return err
}

// reclaim returns expired leases to the pool.
func (s *Server) reclaim(st *state) int {
	leases, err := s.cfg.Store.ListLeases()
	if err != nil {
		s.logger.Warn("failed to list leases", "err", err)
		return 0
	}
	now := s.now()
	n := 0
	for _, lease := range leases {
		if !lease.Expired(now) {
			continue
		}
		_ = st.pool.Release(lease.IP, lease.MAC.String())
		_ = s.cfg.Store.DeleteLease(lease.IP)
		n++
	}
	return n
}

func (s *Server) release(st *state, ip net.IP, mac string) {
	if ip == nil {
		return
	}
	if err := st.pool.Release(ip, mac); err != nil {
		s.logger.Debug("ignoring release", "mac", mac, "ip", ip.String(), "err", err)
		return
	}
	_ = s.cfg.Store.DeleteLease(ip)
	s.logger.Info("released", "mac", mac, "ip", ip.String())
}

func (s *Server) reply(st *state, req *dhcpv4.DHCPv4, typ dhcpv4.MessageType, ip net.IP) (*dhcpv4.DHCPv4, error) {
	mods := []dhcpv4.Modifier{
		dhcpv4.WithMessageType(typ),
		dhcpv4.WithServerIP(st.ip),
		dhcpv4.WithYourIP(ip),
		dhcpv4.WithNetmask(st.mask),
		dhcpv4.WithRouter(st.ip),
		dhcpv4.WithDNS(st.ip),
		dhcpv4.WithLeaseTime(uint32(s.cfg.LeaseTime.Seconds())),
		dhcpv4.WithOption(dhcpv4.OptServerIdentifier(st.ip)),
	}
	if s.cfg.CaptivePortalURL != "" {
		mods = append(mods, dhcpv4.WithGeneric(OptionCaptivePortal, []byte(s.cfg.CaptivePortalURL)))
	}
	return dhcpv4.NewReplyFromRequest(req, mods...)
}
