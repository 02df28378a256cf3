package transport

import (
	"context"
	"net"
)

// Server is the lifecycle contract the application runner manages.
type Server interface {
	// Run starts the server and blocks until it stops.
	Run() error

	// Shutdown gracefully stops the server.
	Shutdown(ctx context.Context) error
}

// ValidateAddress reports whether addr is a usable host:port.
func ValidateAddress(addr string) bool {
	if addr == "" {
		return false
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	return port != ""
}
