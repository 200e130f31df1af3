//go:build !unix

package socket

import "syscall"

// controlReuseAddr is a no-op on platforms without SO_REUSEADDR semantics.
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
