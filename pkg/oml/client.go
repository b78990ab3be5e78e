package oml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/georgevio/oml4go/internal/channel"
	"github.com/georgevio/oml4go/internal/infrastructure/config"
	"github.com/georgevio/oml4go/internal/infrastructure/influxdb"
	"github.com/georgevio/oml4go/internal/infrastructure/logging"
	"github.com/georgevio/oml4go/internal/measurement"
	"github.com/georgevio/oml4go/internal/status"
	"github.com/georgevio/oml4go/internal/transport"
)

// Version is reported in diagnostics. Overridden at build time.
var Version = "dev"

// Client owns the registry, channels and optional mirror of one application.
//
// Thread Safety: All methods are safe for concurrent use. Inject on a
// MeasurementPoint may be called from any goroutine.
type Client struct {
	cfg       *config.Config
	logger    *logging.Logger
	now       func() time.Time
	registry  *measurement.Registry
	connector *transport.Connector
	dir       *channel.Directory

	mu      sync.Mutex
	started bool
	pending []config.ChannelConfig
	mirror  *influxdb.Client
	status  *status.Server
}

type options struct {
	logger *logging.Logger
	now    func() time.Time
	stdout io.Writer
}

// Option configures a Client.
type Option func(*options)

// WithLogger replaces the logger built from the logging configuration.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock replaces time.Now for start time, sample times and default
// file names.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithStdout redirects "file:-" channels.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// New creates a client for appName from cfg. A nil cfg uses defaults.
func New(appName string, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if appName != "" {
		cfg.Collection.AppName = appName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.New(cfg.Logging, Version)
	}
	for _, w := range cfg.Warnings {
		o.logger.Warn(w)
	}

	connOpts := []transport.Option{transport.WithDialTimeout(cfg.GetDialTimeout())}
	if o.stdout != nil {
		connOpts = append(connOpts, transport.WithStdout(o.stdout))
	}
	connector := transport.NewConnector(connOpts...)
	connector.Register("mqtt", transport.MQTTDialer(cfg.MQTT, o.logger))
	connector.Register("sqlite", transport.SpoolDialer(cfg.Spool))
	connector.Register("nats", transport.NATSDialer(cfg.NATS))
	connector.Register("ws", transport.WebSocketDialer("ws", cfg.GetDialTimeout()))

	return &Client{
		cfg:       cfg,
		logger:    o.logger,
		now:       o.now,
		registry:  measurement.New(measurement.WithLogger(o.logger), measurement.WithClock(o.now)),
		connector: connector,
		dir: channel.NewDirectory(connector,
			channel.WithLogger(o.logger),
			channel.WithReconnectInterval(cfg.GetReconnectInterval()),
		),
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// AddChannel declares an additional named channel. It must be called
// before Start.
func (c *Client) AddChannel(name, url, domain string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("%w: cannot add channel %s", ErrStarted, name)
	}
	c.pending = append(c.pending, config.ChannelConfig{Name: name, URL: url, Domain: domain})
	return nil
}

// Start opens the channels and freezes the measurement points. With
// collection disabled (noop) it only marks the client started and every
// injection is ignored.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	coll := c.cfg.Collection
	if coll.Noop {
		c.logger.Info("measurement collection disabled")
		c.started = true
		return nil
	}
	if err := coll.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMissingIdentity, err)
	}

	collect := coll.CollectURI(c.now())
	if _, err := c.dir.Create(ctx, channel.DefaultName, collect, channel.DefaultDomain); err != nil {
		return c.abort(err)
	}
	channels := append(append([]config.ChannelConfig(nil), c.cfg.Channels...), c.pending...)
	for _, ch := range channels {
		if _, err := c.dir.Create(ctx, ch.Name, ch.URL, ch.Domain); err != nil {
			return c.abort(err)
		}
	}

	if c.cfg.InfluxDB.Enabled {
		c.startMirror(ctx)
	}
	if c.cfg.Status.Enabled {
		if err := c.startStatus(ctx); err != nil {
			return c.abort(err)
		}
	}

	err := c.registry.Freeze(ctx, c.dir, measurement.FreezeParams{
		Domain:   coll.Domain,
		SenderID: coll.NodeID,
		AppName:  coll.AppName,
	})
	if err != nil {
		return c.abort(err)
	}

	c.started = true
	c.logger.Info("measurement collection started",
		"domain", coll.Domain, "node_id", coll.NodeID, "app", coll.AppName, "collect", collect)
	return nil
}

// startMirror connects the InfluxDB mirror. A failure is logged and
// collection continues without it.
func (c *Client) startMirror(ctx context.Context) {
	mirror, err := influxdb.Connect(ctx, c.cfg.InfluxDB)
	if err != nil {
		c.logger.Warn("influxdb mirror unavailable", "url", c.cfg.InfluxDB.URL, "error", err)
		return
	}
	coll := c.cfg.Collection
	mirror.SetIdentity(coll.Domain, coll.NodeID, coll.AppName)
	mirror.SetOnError(func(err error) {
		c.logger.Warn("influxdb mirror write failed", "error", err)
	})
	c.mirror = mirror
	c.registry.SetMirror(mirror)
}

func (c *Client) startStatus(ctx context.Context) error {
	srv, err := status.New(status.Deps{
		Config:   c.cfg.Status,
		Logger:   c.logger,
		Channels: c.dir,
		State:    c.registry,
		Identity: c.cfg.Collection,
		Version:  Version,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	c.status = srv
	return nil
}

// StatusAddr returns the address of the status endpoint, or "" when it is
// not running.
func (c *Client) StatusAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == nil {
		return ""
	}
	return c.status.Addr()
}

// abort releases whatever Start opened before failing with err.
func (c *Client) abort(err error) error {
	closeErr := errors.Join(c.stopStatus(), c.dir.CloseAll())
	c.stopMirror()
	return errors.Join(err, closeErr)
}

func (c *Client) stopStatus() error {
	if c.status == nil {
		return nil
	}
	err := c.status.Close()
	c.status = nil
	return err
}

func (c *Client) stopMirror() {
	if c.mirror == nil {
		return
	}
	c.registry.SetMirror(nil)
	c.mirror.Close() //nolint:errcheck // Close never fails
	c.mirror = nil
}

// Close drains every channel, closes the sinks and returns the client to
// the state before Start. Measurement point names and fields are kept;
// channel bindings must be declared again before the next Start.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	err := errors.Join(c.stopStatus(), c.dir.CloseAll())
	c.registry.Unfreeze()
	c.stopMirror()
	c.started = false
	c.pending = nil
	if err != nil {
		c.logger.Error("closing channels", "error", err)
	}
	return err
}
