package wifi

import "errors"

var (
	ErrNotSupported      = errors.New("not supported")
	ErrNotFound          = errors.New("not found")
	ErrNotAvailable      = errors.New("not available")
	ErrOperationFailed   = errors.New("operation failed")
	ErrInterfaceNotFound = errors.New("interface not found")
	ErrNoScanAdapter     = errors.New("no scan adapter")
	ErrDHCPStart         = errors.New("dhcp server failed to start")
)
