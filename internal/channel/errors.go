package channel

import "errors"

// Sentinel errors for channel operations.
var (
	// ErrUnknownChannel indicates a lookup for a name with no channel in
	// either the requested or the default domain.
	ErrUnknownChannel = errors.New("channel: unknown channel")

	// ErrURLConflict indicates an attempt to reuse a (name, domain) key
	// with a different URL.
	ErrURLConflict = errors.New("channel: url conflict")

	// ErrChannelClosed is returned by Send once the channel no longer
	// accepts lines, either after Close or after its sender stopped.
	ErrChannelClosed = errors.New("channel: closed")

	// ErrReconnectFailed indicates the sink could not be reopened for a
	// reason other than a refused connection.
	ErrReconnectFailed = errors.New("channel: reconnect failed")
)
