package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/georgevio/oml4go/internal/protocol"
	"github.com/georgevio/oml4go/internal/transport"
)

// DefaultReconnectInterval is the pause before each reconnect attempt.
const DefaultReconnectInterval = 5 * time.Second

// Connector opens sinks by URL. *transport.Connector satisfies it.
type Connector interface {
	Connect(ctx context.Context, url string) (transport.Sink, error)
}

// Logger is the diagnostic interface used by channels.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// tracer is implemented by loggers with a level below debug.
type tracer interface {
	Trace(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures channels created by a Directory.
type Option func(*Channel)

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReconnectInterval overrides DefaultReconnectInterval.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d >= 0 {
			c.interval = d
		}
	}
}

// Channel is one named, domain-bound connection to a sink.
//
// Thread Safety:
//   - Send, SendHeader and RegisterSchema are safe for concurrent use.
//   - The sink and the header-sent flag belong to the sender goroutine.
type Channel struct {
	name   string
	url    string
	domain string

	connector Connector
	logger    Logger
	interval  time.Duration
	sleep     func(time.Duration)

	queue *queue

	// headerMu guards the header block and the schema index counter.
	headerMu  sync.Mutex
	header    []string
	schemas   []string
	lastIndex int
	announced bool

	// Owned by the sender goroutine. headerSchemas is the number of schema
	// lines carried by the header on the current connection.
	sink          transport.Sink
	headerSent    bool
	headerSchemas int

	done      chan struct{}
	closeOnce sync.Once

	errMu    sync.Mutex
	err      error
	dropped  atomic.Uint64
	warnOnce sync.Once
}

// open dials url and starts the sender goroutine. Any dial error is fatal,
// a refused connection included; only reconnect retries while refused.
func open(ctx context.Context, name, url, domain string, connector Connector, opts ...Option) (*Channel, error) {
	c := &Channel{
		name:      name,
		url:       url,
		domain:    domain,
		connector: connector,
		logger:    noopLogger{},
		interval:  DefaultReconnectInterval,
		sleep:     time.Sleep,
		queue:     newQueue(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	sink, err := connector.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c.sink = sink

	go c.run()
	return c, nil
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// URL returns the sink URL.
func (c *Channel) URL() string { return c.url }

// Domain returns the domain the channel was created for.
func (c *Channel) Domain() string { return c.domain }

// SendHeader sets the header block announced on every connection. Schema
// lines registered with RegisterSchema follow it.
func (c *Channel) SendHeader(h protocol.Header) {
	c.headerMu.Lock()
	c.header = h.Lines()
	c.headerMu.Unlock()
}

// RegisterSchema assigns the next schema index on this channel to a
// measurement point and adds its schema line to the header. Indices start
// at 1. If the header already went out, the schema line is also queued so
// the current connection learns about it before any sample that uses it.
func (c *Channel) RegisterSchema(name string, fields []protocol.Field) int {
	c.headerMu.Lock()
	defer c.headerMu.Unlock()

	c.lastIndex++
	line := protocol.SchemaLine(c.lastIndex, name, fields)
	c.schemas = append(c.schemas, line)
	if c.announced {
		c.push(line)
	}
	return c.lastIndex
}

// Send queues one protocol line for delivery. It never blocks. Once the
// channel is closed or its sender has stopped the line is dropped, counted
// and ErrChannelClosed is returned.
func (c *Channel) Send(line string) error {
	if c.push(line) {
		return nil
	}
	return ErrChannelClosed
}

func (c *Channel) push(line string) bool {
	if c.queue.push(line) {
		return true
	}
	c.dropped.Add(1)
	c.warnOnce.Do(func() {
		c.logger.Warn("channel not accepting data, dropping samples", "url", c.url, "error", c.Err())
	})
	return false
}

// Close stops accepting lines, waits for everything queued to be written
// and closes the sink. It returns the error that stopped the sender, if any.
// There is no way to abort an in-progress write or reconnect wait.
func (c *Channel) Close() error {
	c.closeOnce.Do(c.queue.close)
	<-c.done
	return c.Err()
}

// Err returns the error that stopped the sender, or nil.
func (c *Channel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Dropped returns the number of lines refused since the channel stopped
// accepting data.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// run is the sender loop: drain everything available, write it once.
func (c *Channel) run() {
	defer close(c.done)

	for {
		batch, ok := c.queue.drain()
		if !ok {
			break
		}
		if err := c.write(batch); err != nil {
			c.fail(err)
			return
		}
	}

	if c.sink != nil && !c.headerSent {
		// Announce the schemas even if no sample was ever sent.
		err := c.writeHeader()
		if err == nil {
			err = c.sink.Flush()
		}
		if err != nil {
			c.logger.Warn("writing header at close failed", "url", c.url, "error", err)
		}
	}
	c.closeSink()
	c.logger.Info(fmt.Sprintf("channel %s closed", c.url), "name", c.name, "domain", c.domain)
}

// fail records err, stops accepting data and releases the sink.
func (c *Channel) fail(err error) {
	lost := c.queue.discard()
	c.dropped.Add(uint64(lost))

	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()

	c.closeSink()
	c.logger.Error("channel sender stopped", "url", c.url, "error", err, "dropped", lost)
}

// write sends batch on the current connection, reconnecting and retrying
// while the connection is broken.
func (c *Channel) write(batch []string) error {
	for {
		err := c.writeOnce(batch)
		if err == nil {
			return nil
		}
		if !transport.IsBrokenConnection(err) {
			return err
		}
		c.logger.Warn("channel connection broken, reconnecting", "url", c.url, "error", err)
		if err := c.reconnect(); err != nil {
			return err
		}
	}
}

func (c *Channel) writeOnce(batch []string) error {
	if !c.headerSent {
		if err := c.writeHeader(); err != nil {
			return err
		}
	}
	if payload := c.payload(batch); payload != "" {
		if _, err := c.sink.Write([]byte(payload)); err != nil {
			return err
		}
	}
	return c.sink.Flush()
}

// payload joins batch, leaving out queued schema lines that the header on
// the current connection already carried.
func (c *Channel) payload(batch []string) string {
	var b strings.Builder
	for _, line := range batch {
		if idx, ok := protocol.SchemaIndex(line); ok && idx <= c.headerSchemas {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// writeHeader writes the header block and its terminating blank line.
func (c *Channel) writeHeader() error {
	c.headerMu.Lock()
	lines := make([]string, 0, len(c.header)+len(c.schemas))
	lines = append(lines, c.header...)
	lines = append(lines, c.schemas...)
	schemas := len(c.schemas)
	c.announced = true
	c.headerMu.Unlock()

	if len(lines) == 0 {
		c.headerSent = true
		c.headerSchemas = 0
		return nil
	}

	block := strings.Join(lines, "\n") + "\n\n"
	if t, ok := c.logger.(tracer); ok {
		t.Trace("channel header block", "url", c.url, "header", block)
	}
	if _, err := c.sink.Write([]byte(block)); err != nil {
		return err
	}
	c.headerSent = true
	c.headerSchemas = schemas
	return nil
}

// reconnect replaces the sink, retrying while the remote end refuses.
func (c *Channel) reconnect() error {
	c.closeSink()

	for attempt := 1; ; attempt++ {
		c.sleep(c.interval)

		sink, err := c.connector.Connect(context.Background(), c.url)
		if err == nil {
			c.sink = sink
			c.headerSent = false
			c.logger.Info("channel reconnected", "url", c.url, "attempts", attempt)
			return nil
		}
		if !transport.IsConnectionRefused(err) {
			return fmt.Errorf("%w: %w", ErrReconnectFailed, err)
		}
		c.logger.Debug("channel reconnect refused", "url", c.url, "attempt", attempt, "error", err)
	}
}

func (c *Channel) closeSink() {
	if c.sink == nil {
		return
	}
	if err := c.sink.Close(); err != nil && !errors.Is(err, transport.ErrBrokenConnection) {
		c.logger.Debug("closing channel sink", "url", c.url, "error", err)
	}
	c.sink = nil
	c.headerSent = false
	c.headerSchemas = 0
}
