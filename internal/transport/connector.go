package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Default settings for the built-in transports.
const (
	// DefaultPort is used for tcp URLs without a port.
	DefaultPort = "3003"

	defaultDialTimeout = 10 * time.Second
)

// Sink is an open destination for protocol text.
//
// Writes may be buffered until Flush. A Sink is owned by a single channel
// sender and is not safe for concurrent use.
type Sink interface {
	io.Writer
	Flush() error
	Close() error
}

// Dialer opens a sink for the target part of a URL (everything after the
// scheme and colon).
type Dialer func(ctx context.Context, target string) (Sink, error)

// Connector maps URL schemes to dialers.
//
// Thread Safety: All methods are safe for concurrent use.
type Connector struct {
	mu          sync.RWMutex
	dialers     map[string]Dialer
	stdout      io.Writer
	dialTimeout time.Duration
}

// Option configures a Connector.
type Option func(*Connector)

// WithStdout replaces the stream used for "file:-".
func WithStdout(w io.Writer) Option {
	return func(c *Connector) {
		c.stdout = w
	}
}

// WithDialTimeout bounds tcp connection attempts. Zero keeps the default.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithDialer registers an additional scheme.
func WithDialer(scheme string, d Dialer) Option {
	return func(c *Connector) {
		c.dialers[scheme] = d
	}
}

// NewConnector creates a connector with the file and tcp schemes registered.
func NewConnector(opts ...Option) *Connector {
	c := &Connector{
		dialers:     make(map[string]Dialer),
		stdout:      os.Stdout,
		dialTimeout: defaultDialTimeout,
	}
	c.dialers["file"] = c.dialFile
	c.dialers["tcp"] = c.dialTCP

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds or replaces the dialer for scheme.
func (c *Connector) Register(scheme string, d Dialer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialers[scheme] = d
}

// Schemes returns the registered scheme names, sorted.
func (c *Connector) Schemes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	schemes := make([]string, 0, len(c.dialers))
	for s := range c.dialers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Connect opens the sink addressed by url.
func (c *Connector) Connect(ctx context.Context, url string) (Sink, error) {
	scheme, target, ok := strings.Cut(url, ":")
	if !ok {
		return nil, fmt.Errorf("%w in server url %q", ErrUnknownTransport, url)
	}

	c.mu.RLock()
	dial := c.dialers[scheme]
	c.mu.RUnlock()

	if dial == nil {
		return nil, fmt.Errorf("%w in server url %q", ErrUnknownTransport, url)
	}
	return dial(ctx, target)
}
