package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedURL is returned when the retired OML_URL variable is set.
var ErrUnsupportedURL = errors.New("config: OML_URL is not supported, use OML_COLLECT")

// collectTimestampLayout matches the timestamp used in default collection file names.
const collectTimestampLayout = "2006-01-02t15.04.05-0700"

// Config is the root configuration structure for an OML client.
// All configuration is loaded from YAML and can be overridden by environment
// variables and command-line flags.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Channels   []ChannelConfig  `yaml:"channels"`
	Transport  TransportConfig  `yaml:"transport"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	NATS       NATSConfig       `yaml:"nats"`
	Spool      SpoolConfig      `yaml:"spool"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Status     StatusConfig     `yaml:"status"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Warnings collects deprecation notices found while loading, so they can
	// be logged once a logger exists.
	Warnings []string `yaml:"-"`
}

// CollectionConfig identifies this sender and where its measurements go.
type CollectionConfig struct {
	Domain  string `yaml:"domain"`
	NodeID  string `yaml:"node_id"`
	AppName string `yaml:"app_name"`
	Collect string `yaml:"collect"`
	Noop    bool   `yaml:"noop"`
}

// ChannelConfig declares an additional named channel.
type ChannelConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Domain string `yaml:"domain"`
}

// TransportConfig contains sink connection settings.
type TransportConfig struct {
	// ReconnectInterval is the pause between reconnect attempts (seconds).
	ReconnectInterval int `yaml:"reconnect_interval"`

	// DialTimeout bounds a single tcp connection attempt (seconds).
	DialTimeout int `yaml:"dial_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for mqtt: channels.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// NATSConfig contains NATS server settings for nats: channels.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	ClientName    string `yaml:"client_name"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Token         string `yaml:"token"`

	// Timeout bounds connecting and flushing (seconds).
	Timeout int `yaml:"timeout"`
}

// SpoolConfig contains SQLite settings for sqlite: channels.
type SpoolConfig struct {
	WALMode     bool `yaml:"wal_mode"`
	BusyTimeout int  `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the sample mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// StatusConfig contains settings for the read-only HTTP status endpoint.
type StatusConfig struct {
	Enabled  bool                `yaml:"enabled"`
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts StatusTimeoutConfig `yaml:"timeouts"`
}

// StatusTimeoutConfig contains HTTP server timeouts (seconds).
type StatusTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains diagnostic logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`

	// Verbosity raises the level: 0 keeps Level, >0 is debug, >3 is trace.
	Verbosity int `yaml:"verbosity"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (skipped when path is empty)
//  3. Environment variables (OML_DOMAIN, OML_NAME, OML_COLLECT, ...)
//
// Command-line flags are applied afterwards by the caller (see AddFlags).
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without file or environment input.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			ReconnectInterval: 5,
			DialTimeout:       10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "oml4go",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "oml",
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "oml",
			ClientName:    "oml4go",
			Timeout:       5,
		},
		Spool: SpoolConfig{
			WALMode:     true,
			BusyTimeout: 5,
		},
		Status: StatusConfig{
			Host: "127.0.0.1",
			Port: 3004,
			Timeouts: StatusTimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies the OML_* environment variables to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if os.Getenv("OML_URL") != "" {
		return ErrUnsupportedURL
	}

	// Domain
	if v := os.Getenv("OML_EXP_ID"); v != "" {
		cfg.Warnings = append(cfg.Warnings, "OML_EXP_ID is deprecated; use OML_DOMAIN instead")
		if cfg.Collection.Domain == "" {
			cfg.Collection.Domain = v
		}
	}
	if v := os.Getenv("OML_DOMAIN"); v != "" {
		cfg.Collection.Domain = v
	}

	// Node ID
	if v := os.Getenv("OML_NAME"); v != "" {
		cfg.Collection.NodeID = v
	} else if v := os.Getenv("OML_ID"); v != "" && cfg.Collection.NodeID == "" {
		cfg.Collection.NodeID = v
	}

	// Collection URI
	if v := os.Getenv("OML_COLLECT"); v != "" {
		cfg.Collection.Collect = v
	} else if v := os.Getenv("OML_SERVER"); v != "" {
		cfg.Warnings = append(cfg.Warnings, "OML_SERVER is deprecated; use OML_COLLECT instead")
		cfg.Collection.Collect = v
	}

	// InfluxDB
	if v := os.Getenv("OML_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// MQTT
	if v := os.Getenv("OML_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("OML_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// NATS
	if v := os.Getenv("OML_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("OML_NATS_TOKEN"); v != "" {
		cfg.NATS.Token = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Identity fields (domain, node id, app name) are not checked here because
// flags may still supply them; see CollectionConfig.Validate.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}
	if c.Logging.Verbosity < 0 {
		errs = append(errs, "logging.verbosity must not be negative")
	}

	if c.Transport.ReconnectInterval < 0 {
		errs = append(errs, "transport.reconnect_interval must not be negative")
	}
	if c.Transport.DialTimeout < 0 {
		errs = append(errs, "transport.dial_timeout must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	seen := make(map[string]bool)
	for i, ch := range c.Channels {
		if ch.Name == "" {
			errs = append(errs, fmt.Sprintf("channels[%d].name is required", i))
		}
		if ch.URL == "" {
			errs = append(errs, fmt.Sprintf("channels[%d].url is required", i))
		}
		key := ch.Name + ":" + ch.Domain
		if seen[key] {
			errs = append(errs, fmt.Sprintf("channels[%d] duplicates channel %q", i, ch.Name))
		}
		seen[key] = true
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if c.NATS.Timeout < 0 {
		errs = append(errs, "nats.timeout must not be negative")
	}

	if c.Status.Enabled && (c.Status.Port < 0 || c.Status.Port > 65535) {
		errs = append(errs, "status.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Validate checks that the identity needed for a protocol header is present.
func (c CollectionConfig) Validate() error {
	var missing []string
	if c.Domain == "" {
		missing = append(missing, "domain (--oml-domain)")
	}
	if c.NodeID == "" {
		missing = append(missing, "node id (--oml-id)")
	}
	if c.AppName == "" {
		missing = append(missing, "app name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing collection values: %s", strings.Join(missing, ", "))
	}
	return nil
}

// CollectURI returns the configured collection URI, or a timestamped local
// file named after the app, node and domain when none is set.
func (c CollectionConfig) CollectURI(now time.Time) string {
	if c.Collect != "" {
		return c.Collect
	}
	return fmt.Sprintf("file:%s_%s_%s_%s", c.AppName, c.NodeID, c.Domain, now.Format(collectTimestampLayout))
}

// GetReconnectInterval returns the pause between reconnect attempts.
func (c *Config) GetReconnectInterval() time.Duration {
	return time.Duration(c.Transport.ReconnectInterval) * time.Second
}

// GetDialTimeout returns the tcp dial timeout.
func (c *Config) GetDialTimeout() time.Duration {
	return time.Duration(c.Transport.DialTimeout) * time.Second
}
