package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// wsSink sends each flushed batch as one text message.
type wsSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	buf          bytes.Buffer
}

// WebSocketDialer returns a dialer for "ws://host[:port][/path]" URLs.
// scheme is the registered scheme name; timeout bounds the handshake and
// every write.
func WebSocketDialer(scheme string, timeout time.Duration) Dialer {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return func(ctx context.Context, target string) (Sink, error) {
		if !strings.HasPrefix(target, "//") || len(target) == len("//") {
			return nil, fmt.Errorf("%w: %s url needs //host[:port][/path]", ErrInvalidURL, scheme)
		}

		dialer := websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		}
		conn, resp, err := dialer.DialContext(ctx, scheme+":"+target, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close() //nolint:errcheck // Handshake response body is unused
		}
		if err != nil {
			if errors.Is(err, syscall.ECONNREFUSED) {
				return nil, fmt.Errorf("%w: %w", ErrConnectionRefused, err)
			}
			return nil, fmt.Errorf("connecting to %s: %w", target, err)
		}
		return &wsSink{conn: conn, writeTimeout: timeout}, nil
	}
}

func (s *wsSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush sends the buffered text. Any write failure leaves the connection
// unusable and is reported as broken.
func (s *wsSink) Flush() error {
	if s.buf.Len() == 0 {
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)) //nolint:errcheck // Only fails on a closed conn, caught by the write
	if err := s.conn.WriteMessage(websocket.TextMessage, s.buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", ErrBrokenConnection, err)
	}
	s.buf.Reset()
	return nil
}

// Close sends anything still buffered, then a close frame.
func (s *wsSink) Close() error {
	flushErr := s.Flush()
	if flushErr == nil {
		deadline := time.Now().Add(s.writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, deadline) //nolint:errcheck // Peer may already be gone
	}
	if err := s.conn.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}
