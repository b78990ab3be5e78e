package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/georgevio/oml4go/internal/infrastructure/config"
	"github.com/georgevio/oml4go/internal/infrastructure/mqtt"
)

// mqttSink publishes buffered protocol text to one MQTT topic on Flush.
type mqttSink struct {
	client *mqtt.Client
	topic  string
	buf    bytes.Buffer
}

// MQTTDialer returns a dialer for "mqtt:<stream>" URLs. Each connection gets
// its own broker session whose client ID carries the stream name and a
// random session tag, and every flushed batch is published to
// <prefix>/measurements/<stream>.
func MQTTDialer(cfg config.MQTTConfig, logger mqtt.Logger) Dialer {
	return func(_ context.Context, target string) (Sink, error) {
		stream := strings.Trim(strings.TrimPrefix(target, "//"), "/")
		if stream == "" {
			return nil, fmt.Errorf("%w: mqtt url without stream name", ErrInvalidURL)
		}

		sessionCfg := cfg
		sessionCfg.Broker.ClientID = clientIDFor(cfg.Broker.ClientID, stream, sessionTag())

		client, err := mqtt.Connect(sessionCfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectionRefused, err)
		}
		if logger != nil {
			client.SetLogger(logger)
		}

		return &mqttSink{
			client: client,
			topic:  client.Topics().Measurements(stream),
		}, nil
	}
}

// clientIDFor builds a broker client ID. Brokers drop the older session
// when two clients share an ID, so every connection is tagged.
func clientIDFor(base, stream, tag string) string {
	if base == "" {
		base = "oml4go"
	}
	return base + "-" + strings.ReplaceAll(stream, "/", "-") + "-" + tag
}

func sessionTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *mqttSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush publishes the buffered text. Payloads larger than the broker limit
// are split on line boundaries.
func (s *mqttSink) Flush() error {
	if s.buf.Len() == 0 {
		return nil
	}
	publish := func(chunk []byte) error {
		return s.client.PublishDefault(s.topic, chunk)
	}
	if err := publishChunks(&s.buf, mqtt.MaxPayloadSize, publish); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			return fmt.Errorf("%w: %w", ErrBrokenConnection, err)
		}
		return err
	}
	return nil
}

// Close publishes anything still buffered and ends the broker session.
func (s *mqttSink) Close() error {
	flushErr := s.Flush()
	if err := s.client.Close(); err != nil {
		return err
	}
	return flushErr
}

// publishChunks publishes buf in chunks of at most limit bytes, dropping
// each chunk from buf once it is out.
func publishChunks(buf *bytes.Buffer, limit int, publish func([]byte) error) error {
	for _, chunk := range splitPayload(buf.Bytes(), limit) {
		if err := publish(chunk); err != nil {
			return err
		}
		buf.Next(len(chunk))
	}
	return nil
}

// splitPayload cuts p into chunks of at most limit bytes, breaking after a
// newline whenever possible. A single line longer than limit is returned
// as its own chunk.
func splitPayload(p []byte, limit int) [][]byte {
	var chunks [][]byte
	for len(p) > limit {
		cut := bytes.LastIndexByte(p[:limit], '\n') + 1
		if cut == 0 {
			next := bytes.IndexByte(p[limit:], '\n')
			if next < 0 {
				break
			}
			cut = limit + next + 1
		}
		chunks = append(chunks, p[:cut])
		p = p[cut:]
	}
	if len(p) > 0 {
		chunks = append(chunks, p)
	}
	return chunks
}
