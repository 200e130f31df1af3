// Package socket provides the listening socket and per-connection tuning used
// by the server.
//
// Platform-specific options live in control_unix.go and control_other.go.
package socket

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Config represents socket tuning configuration.
type Config struct {
	// SO_REUSEADDR on the listening socket, so a restarted server can bind
	// while old connections sit in TIME_WAIT.
	// Default: true
	ReuseAddr bool

	// TCP_NODELAY on accepted connections.
	// Default: true (responses are written as head + body, Nagle would
	// delay the second segment)
	NoDelay bool
}

// DefaultConfig returns the configuration used by the server.
func DefaultConfig() Config {
	return Config{
		ReuseAddr: true,
		NoDelay:   true,
	}
}

// Listen opens a TCP listener on addr with the listener options from cfg.
func Listen(ctx context.Context, addr string, cfg Config) (net.Listener, error) {
	lc := net.ListenConfig{}
	if cfg.ReuseAddr {
		lc.Control = controlReuseAddr
	}
	return lc.Listen(ctx, "tcp", addr)
}

// Tune applies per-connection options to an accepted connection.
// Non-TCP connections (pipes, in-memory listeners) are left untouched.
func Tune(conn net.Conn, cfg Config) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if cfg.NoDelay {
		return tcpConn.SetNoDelay(true)
	}
	return nil
}

// IsInterrupted reports whether err is an interrupted system call.
// Callers retry the operation instead of treating it as a failure.
func IsInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
