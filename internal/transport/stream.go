package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
)

// filePermissions is the mode for newly created measurement files.
const filePermissions = 0644

// streamSink buffers writes to an io.Writer. closer is nil for streams the
// sink does not own, such as standard output.
type streamSink struct {
	buf    *bufio.Writer
	closer io.Closer
}

func newStreamSink(w io.Writer, closer io.Closer) *streamSink {
	return &streamSink{buf: bufio.NewWriter(w), closer: closer}
}

func (s *streamSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

func (s *streamSink) Flush() error {
	return s.buf.Flush()
}

// Close flushes buffered data and closes the underlying stream if owned.
func (s *streamSink) Close() error {
	flushErr := s.buf.Flush()
	if s.closer == nil {
		return flushErr
	}
	if err := s.closer.Close(); err != nil {
		return err
	}
	return flushErr
}

// dialFile opens target for writing, truncating it. "-" is standard output.
func (c *Connector) dialFile(_ context.Context, target string) (Sink, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: file url without path", ErrInvalidURL)
	}
	if target == "-" {
		return newStreamSink(c.stdout, nil), nil
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", target, err)
	}
	return newStreamSink(f, f), nil
}

// dialTCP connects to host[:port].
func (c *Connector) dialTCP(ctx context.Context, target string) (Sink, error) {
	address, err := tcpAddress(target)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %w", ErrConnectionRefused, err)
		}
		return nil, fmt.Errorf("connecting to %s: %w", address, err)
	}
	return newStreamSink(conn, conn), nil
}

// tcpAddress turns "host", "host:port" or "//host:port" into a dialable address.
func tcpAddress(target string) (string, error) {
	target = strings.TrimPrefix(target, "//")
	if target == "" {
		return "", fmt.Errorf("%w: tcp url without host", ErrInvalidURL)
	}

	host, port, err := net.SplitHostPort(target)
	if err != nil {
		// No port given.
		return net.JoinHostPort(strings.Trim(target, "[]"), DefaultPort), nil
	}
	if host == "" {
		return "", fmt.Errorf("%w: tcp url without host", ErrInvalidURL)
	}
	if port == "" {
		port = DefaultPort
	}
	return net.JoinHostPort(host, port), nil
}
