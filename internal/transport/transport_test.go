package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/georgevio/oml4go/internal/infrastructure/config"
)

func testSpoolConfig() config.SpoolConfig {
	return config.SpoolConfig{WALMode: true, BusyTimeout: 5}
}

// =============================================================================
// Connector Tests
// =============================================================================

func TestConnectUnknownScheme(t *testing.T) {
	c := NewConnector()

	for _, url := range []string{"udp:host:1", "nocolon", ":x"} {
		if _, err := c.Connect(context.Background(), url); !errors.Is(err, ErrUnknownTransport) {
			t.Errorf("Connect(%q) error = %v, want ErrUnknownTransport", url, err)
		}
	}
}

func TestRegisterAndSchemes(t *testing.T) {
	var got string
	c := NewConnector(WithDialer("mem", func(_ context.Context, target string) (Sink, error) {
		got = target
		return newStreamSink(io.Discard, nil), nil
	}))

	if _, err := c.Connect(context.Background(), "mem:abc"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got != "abc" {
		t.Errorf("dialer target = %q, want %q", got, "abc")
	}

	c.Register("other", c.dialFile)
	want := []string{"file", "mem", "other", "tcp"}
	if s := c.Schemes(); strings.Join(s, ",") != strings.Join(want, ",") {
		t.Errorf("Schemes() = %v, want %v", s, want)
	}
}

// =============================================================================
// File Sink Tests
// =============================================================================

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.oml")
	if err := os.WriteFile(path, []byte("stale content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink, err := NewConnector().Connect(context.Background(), "file:"+path)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	fmt.Fprint(sink, "line\n")
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line\n" {
		t.Errorf("file = %q, want truncated %q", data, "line\n")
	}
}

func TestFileSinkStdout(t *testing.T) {
	var out bytes.Buffer
	c := NewConnector(WithStdout(&out))

	for i := 0; i < 2; i++ {
		sink, err := c.Connect(context.Background(), "file:-")
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		fmt.Fprintf(sink, "n=%d\n", i)
		if err := sink.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	// Closing a stdout sink must leave the stream usable.
	if out.String() != "n=0\nn=1\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestFileSinkErrors(t *testing.T) {
	c := NewConnector()
	if _, err := c.Connect(context.Background(), "file:"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("empty path error = %v, want ErrInvalidURL", err)
	}
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "f")
	if _, err := c.Connect(context.Background(), "file:"+missing); err == nil {
		t.Error("Connect() into missing directory should fail")
	}
}

// =============================================================================
// TCP Sink Tests
// =============================================================================

func TestTCPAddress(t *testing.T) {
	tests := []struct {
		target  string
		want    string
		wantErr bool
	}{
		{"collector", "collector:3003", false},
		{"collector:4000", "collector:4000", false},
		{"//collector:4000", "collector:4000", false},
		{"collector:", "collector:3003", false},
		{"[::1]:5000", "[::1]:5000", false},
		{"::1", "[::1]:3003", false},
		{"", "", true},
		{":4000", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := tcpAddress(tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("tcpAddress(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("tcpAddress(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestTCPSink(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n') //nolint:errcheck // Checked via channel
		received <- line
	}()

	sink, err := NewConnector().Connect(context.Background(), "tcp:"+ln.Addr().String())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer sink.Close()

	fmt.Fprint(sink, "protocol: 3\n")
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "protocol: 3\n" {
			t.Errorf("server received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for server")
	}
}

func TestTCPSinkRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewConnector(WithDialTimeout(time.Second)).Connect(context.Background(), "tcp:"+addr)
	if !IsConnectionRefused(err) {
		t.Errorf("Connect() to closed port error = %v, want connection refused", err)
	}
}

// =============================================================================
// Error Classification Tests
// =============================================================================

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		broken  bool
		refused bool
	}{
		{"epipe", &net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)}, true, false},
		{"reset", fmt.Errorf("wrap: %w", syscall.ECONNRESET), true, false},
		{"closed", net.ErrClosed, true, false},
		{"sentinel broken", fmt.Errorf("%w: gone", ErrBrokenConnection), true, false},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, false, true},
		{"sentinel refused", fmt.Errorf("%w: later", ErrConnectionRefused), false, true},
		{"other", errors.New("disk full"), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBrokenConnection(tt.err); got != tt.broken {
				t.Errorf("IsBrokenConnection() = %v, want %v", got, tt.broken)
			}
			if got := IsConnectionRefused(tt.err); got != tt.refused {
				t.Errorf("IsConnectionRefused() = %v, want %v", got, tt.refused)
			}
		})
	}
}

// =============================================================================
// MQTT Sink Tests
// =============================================================================

func TestSplitPayload(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{"fits", "a\nb\n", 10, []string{"a\nb\n"}},
		{"split on newline", "aaa\nbbb\nccc\n", 8, []string{"aaa\nbbb\n", "ccc\n"}},
		{"long line alone", "aaaaaaaaaa\nb\n", 4, []string{"aaaaaaaaaa\n", "b\n"}},
		{"no trailing newline", "aaaaaaaaaa", 4, []string{"aaaaaaaaaa"}},
		{"empty", "", 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range splitPayload([]byte(tt.in), tt.limit) {
				got = append(got, string(c))
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("splitPayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublishChunksKeepsUnsent(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("aaa\nbbb\nccc\n")

	var sent []string
	down := errors.New("down")
	publish := func(chunk []byte) error {
		if len(sent) == 1 {
			return down
		}
		sent = append(sent, string(chunk))
		return nil
	}
	if err := publishChunks(&buf, 4, publish); !errors.Is(err, down) {
		t.Fatalf("publishChunks() error = %v, want down", err)
	}
	if got := buf.String(); got != "bbb\nccc\n" {
		t.Errorf("buffer after failure = %q, want the unsent chunks", got)
	}

	sent = nil
	retry := func(chunk []byte) error {
		sent = append(sent, string(chunk))
		return nil
	}
	if err := publishChunks(&buf, 4, retry); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if strings.Join(sent, "|") != "bbb\n|ccc\n" || buf.Len() != 0 {
		t.Errorf("retry sent %q, buffer %q", sent, buf.String())
	}
}

func TestClientIDFor(t *testing.T) {
	if got := clientIDFor("probe", "exp/cpu", "a1"); got != "probe-exp-cpu-a1" {
		t.Errorf("clientIDFor() = %q", got)
	}
	if got := clientIDFor("", "cpu", "a1"); got != "oml4go-cpu-a1" {
		t.Errorf("clientIDFor() = %q", got)
	}

	a, b := sessionTag(), sessionTag()
	if len(a) != 12 || a == b {
		t.Errorf("sessionTag() = %q, %q; want distinct 12-character tags", a, b)
	}
}

func TestMQTTDialerRefused(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 19999, ClientID: "oml4go-test"},
		QoS:    1,
	}
	dial := MQTTDialer(cfg, nil)

	if _, err := dial(context.Background(), ""); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("empty stream error = %v, want ErrInvalidURL", err)
	}
	if _, err := dial(context.Background(), "cpu"); !IsConnectionRefused(err) {
		t.Errorf("unreachable broker error = %v, want connection refused", err)
	}
}

// =============================================================================
// Spool Sink Tests
// =============================================================================

func TestSpoolSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spool.db")
	c := NewConnector(WithDialer("sqlite", SpoolDialer(testSpoolConfig())))

	first, err := c.Connect(ctx, "sqlite:"+path)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	fmt.Fprint(first, "protocol: 3\n\n0.1\t1\t1\tpart")
	if err := first.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	fmt.Fprint(first, "ial\n")
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := c.Connect(ctx, "sqlite:"+path)
	if err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	fmt.Fprint(second, "protocol: 3\n\n")
	if err := second.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	spool, err := OpenSpool(ctx, testSpoolConfig(), path)
	if err != nil {
		t.Fatalf("OpenSpool() error = %v", err)
	}
	defer spool.Close()

	sessions, err := spool.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Sessions() = %d, want 2", len(sessions))
	}
	if sessions[0].Lines != 3 || sessions[1].Lines != 2 {
		t.Errorf("session lines = %d,%d, want 3,2", sessions[0].Lines, sessions[1].Lines)
	}

	var out bytes.Buffer
	if err := spool.Dump(ctx, sessions[0].ID, &out); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if want := "protocol: 3\n\n0.1\t1\t1\tpartial\n"; out.String() != want {
		t.Errorf("Dump() = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := spool.Dump(ctx, 0, &out); err != nil {
		t.Fatalf("Dump(all) error = %v", err)
	}
	if strings.Count(out.String(), "protocol: 3") != 2 {
		t.Errorf("Dump(all) = %q", out.String())
	}

	if err := spool.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := spool.Sessions(ctx); err == nil {
		t.Error("Sessions() after Reset should fail")
	}
}

func TestSpoolDialerEmptyPath(t *testing.T) {
	if _, err := SpoolDialer(testSpoolConfig())(context.Background(), ""); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("error = %v, want ErrInvalidURL", err)
	}
}
