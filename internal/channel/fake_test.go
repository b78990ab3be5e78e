package channel

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/georgevio/oml4go/internal/transport"
)

// fakeConnector hands out fakeSinks whose flushed bytes all land in one
// shared wire buffer.
type fakeConnector struct {
	mu sync.Mutex

	// connectErrs are returned, in order, before dials start succeeding.
	connectErrs []error
	// configure is applied to each new sink; n counts successful dials from 1.
	configure func(n int, s *fakeSink)

	dials   int
	wire    bytes.Buffer
	flushes []string
}

func (f *fakeConnector) Connect(_ context.Context, _ string) (transport.Sink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return nil, err
	}
	f.dials++
	s := &fakeSink{conn: f}
	if f.configure != nil {
		f.configure(f.dials, s)
	}
	return s, nil
}

func (f *fakeConnector) output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wire.String()
}

func (f *fakeConnector) flushed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.flushes...)
}

func (f *fakeConnector) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// fakeSink commits buffered bytes to the connector's wire on a successful
// Flush; a failed Flush loses them, as a dead socket would.
type fakeSink struct {
	conn    *fakeConnector
	pending bytes.Buffer
	closed  bool

	flushErr error // returned once by the next Flush
	writeErr error // returned by every Write

	// flushErrAfter successful flushes pass before flushErr fires.
	flushErrAfter int

	// entered is closed and gate awaited on the first Flush, if set.
	entered chan struct{}
	gate    chan struct{}
}

func (s *fakeSink) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.pending.Write(p)
}

func (s *fakeSink) Flush() error {
	if s.entered != nil {
		close(s.entered)
		s.entered = nil
		<-s.gate
	}
	if err := s.flushErr; err != nil && s.flushErrAfter > 0 {
		s.flushErrAfter--
	} else if err != nil {
		s.flushErr = nil
		s.pending.Reset()
		return err
	}
	if s.pending.Len() == 0 {
		return nil
	}

	s.conn.mu.Lock()
	s.conn.wire.Write(s.pending.Bytes())
	s.conn.flushes = append(s.conn.flushes, s.pending.String())
	s.conn.mu.Unlock()
	s.pending.Reset()
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

// recordingLogger keeps messages for assertions.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, level+" "+msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("DEBUG", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("INFO", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("WARN", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("ERROR", msg) }

func (l *recordingLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

// sleepRecorder replaces time.Sleep in reconnect tests.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	r.mu.Unlock()
}

func (r *sleepRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func withSleep(fn func(time.Duration)) Option {
	return func(c *Channel) {
		c.sleep = fn
	}
}
