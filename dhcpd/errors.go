package dhcpd

import "errors"

var (
	// Pool errors
	ErrPoolExhausted  = errors.New("no available addresses in pool")
	ErrNotAllocated   = errors.New("address is not allocated")
	ErrAddressInUse   = errors.New("address is already in use")
	ErrOutOfRange     = errors.New("address is outside of the pool")
	ErrInvalidSubnet  = errors.New("invalid subnet")
	ErrLeaseNotFound  = errors.New("lease not found")
	ErrAlreadyRunning = errors.New("dhcp server is already running")
	ErrNotRunning     = errors.New("dhcp server is not running")
)
