package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/georgevio/oml4go/internal/infrastructure/config"
)

// natsConn is the part of *nats.Conn a natsSink uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	MaxPayload() int64
	Close()
}

// natsSink publishes buffered protocol text to one NATS subject on Flush.
type natsSink struct {
	conn    natsConn
	subject string
	timeout time.Duration
	buf     bytes.Buffer

	// failed is set while the last Flush reported an error.
	failed bool
}

// NATSDialer returns a dialer for "nats:<stream>" URLs. Every flushed batch
// is published to <subject_prefix>.<stream>, with "/" in the stream name
// turned into subject separators.
func NATSDialer(cfg config.NATSConfig) Dialer {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	return func(_ context.Context, target string) (Sink, error) {
		subject, err := natsSubject(cfg.SubjectPrefix, target)
		if err != nil {
			return nil, err
		}

		conn, err := nats.Connect(cfg.URL, natsOptions(cfg, timeout)...)
		if err != nil {
			if errors.Is(err, nats.ErrNoServers) {
				return nil, fmt.Errorf("%w: %w", ErrConnectionRefused, err)
			}
			return nil, fmt.Errorf("connecting to %s: %w", cfg.URL, err)
		}

		return &natsSink{conn: conn, subject: subject, timeout: timeout}, nil
	}
}

func natsOptions(cfg config.NATSConfig, timeout time.Duration) []nats.Option {
	opts := []nats.Option{
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	if cfg.ClientName != "" {
		opts = append(opts, nats.Name(cfg.ClientName))
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}

// natsSubject maps a stream name to a subject. Wildcards are not allowed in
// published subjects.
func natsSubject(prefix, target string) (string, error) {
	stream := strings.Trim(strings.TrimPrefix(target, "//"), "/")
	if stream == "" {
		return "", fmt.Errorf("%w: nats url without stream name", ErrInvalidURL)
	}
	if strings.ContainsAny(stream, "*> \t.") {
		return "", fmt.Errorf("%w: nats stream %q contains reserved characters", ErrInvalidURL, stream)
	}

	subject := strings.ReplaceAll(stream, "/", ".")
	if prefix != "" {
		subject = prefix + "." + subject
	}
	return subject, nil
}

func (s *natsSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush publishes the buffered text and waits for the server to take it.
// Chunks are dropped from the buffer as they are published, so a failed
// Flush keeps only what never left. A timeout while waiting drops
// everything: the client already holds it.
func (s *natsSink) Flush() error {
	if s.buf.Len() == 0 {
		return nil
	}
	publish := func(chunk []byte) error {
		return s.conn.Publish(s.subject, chunk)
	}
	if err := publishChunks(&s.buf, int(s.conn.MaxPayload()), publish); err != nil {
		s.failed = true
		return natsError(err)
	}
	if err := s.conn.FlushTimeout(s.timeout); err != nil {
		s.failed = true
		return natsError(err)
	}
	s.failed = false
	return nil
}

func natsError(err error) error {
	if errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionReconnecting) ||
		errors.Is(err, nats.ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrBrokenConnection, err)
	}
	return err
}

// Close publishes anything still buffered and closes the connection. After
// a failed Flush the remainder is dropped; the caller resends it elsewhere.
func (s *natsSink) Close() error {
	var err error
	if !s.failed {
		err = s.Flush()
	}
	s.conn.Close()
	return err
}
