package transport

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// Sentinel errors for transport operations.
var (
	// ErrUnknownTransport indicates a URL scheme with no registered dialer.
	ErrUnknownTransport = errors.New("transport: unknown transport")

	// ErrInvalidURL indicates a URL whose target cannot be used.
	ErrInvalidURL = errors.New("transport: invalid url")

	// ErrBrokenConnection marks a write failure that a reconnect may cure.
	ErrBrokenConnection = errors.New("transport: broken connection")

	// ErrConnectionRefused marks a connect failure worth retrying later.
	ErrConnectionRefused = errors.New("transport: connection refused")
)

// IsBrokenConnection reports whether err means the peer went away mid-stream.
func IsBrokenConnection(err error) bool {
	return errors.Is(err, ErrBrokenConnection) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}

// IsConnectionRefused reports whether err means the remote end is not
// accepting connections yet.
func IsConnectionRefused(err error) bool {
	return errors.Is(err, ErrConnectionRefused) || errors.Is(err, syscall.ECONNREFUSED)
}
