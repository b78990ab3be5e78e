package channel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/georgevio/oml4go/internal/transport"
)

func TestDirectory_CreateReusesSameURL(t *testing.T) {
	dir := NewDirectory(&fakeConnector{})
	defer dir.CloseAll() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	a, err := dir.Create(ctx, "foo", "file:-", "lab1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b, err := dir.Create(ctx, "foo", "file:-", "lab1")
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if a != b {
		t.Error("Create() with the same key and URL returned a new channel")
	}

	if _, err := dir.Create(ctx, "foo", "tcp:elsewhere", "lab1"); !errors.Is(err, ErrURLConflict) {
		t.Errorf("Create() with another URL error = %v, want ErrURLConflict", err)
	}
}

func TestDirectory_DefaultsForEmptyKey(t *testing.T) {
	dir := NewDirectory(&fakeConnector{})
	defer dir.CloseAll() //nolint:errcheck // Test cleanup

	ch, err := dir.Create(context.Background(), "", "file:-", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ch.Name() != DefaultName || ch.Domain() != DefaultDomain {
		t.Errorf("channel key = %s/%s, want default/default", ch.Name(), ch.Domain())
	}

	got, err := dir.Lookup(context.Background(), DefaultName, DefaultDomain)
	if err != nil || got != ch {
		t.Errorf("Lookup(default, default) = %v, %v", got, err)
	}
}

func TestDirectory_LookupClonesFromDefaultDomain(t *testing.T) {
	conn := &fakeConnector{}
	dir := NewDirectory(conn)
	defer dir.CloseAll() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	base, err := dir.Create(ctx, "foo", "tcp:collector:3003", DefaultDomain)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	clone, err := dir.Lookup(ctx, "foo", "lab2")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if clone == base {
		t.Fatal("Lookup() returned the default-domain channel instead of a clone")
	}
	if clone.URL() != base.URL() || clone.Domain() != "lab2" || clone.Name() != "foo" {
		t.Errorf("clone = %s/%s -> %s", clone.Name(), clone.Domain(), clone.URL())
	}
	if conn.dialCount() != 2 {
		t.Errorf("dials = %d, want a second sink for the clone", conn.dialCount())
	}

	again, err := dir.Lookup(ctx, "foo", "lab2")
	if err != nil || again != clone {
		t.Errorf("second Lookup() = %v, %v, want the same clone", again, err)
	}
}

func TestDirectory_CreateRefused(t *testing.T) {
	refused := fmt.Errorf("%w: nobody home", transport.ErrConnectionRefused)
	dir := NewDirectory(&fakeConnector{connectErrs: []error{refused}})

	if _, err := dir.Create(context.Background(), "", "tcp:localhost:1", ""); !errors.Is(err, transport.ErrConnectionRefused) {
		t.Fatalf("Create() error = %v, want ErrConnectionRefused", err)
	}
	if n := len(dir.Channels()); n != 0 {
		t.Errorf("channels = %d, want 0", n)
	}
	if err := dir.CloseAll(); err != nil {
		t.Errorf("CloseAll() error = %v", err)
	}
}

func TestDirectory_Resolvable(t *testing.T) {
	dir := NewDirectory(&fakeConnector{})
	defer dir.CloseAll() //nolint:errcheck // Test cleanup
	if _, err := dir.Create(context.Background(), "foo", "file:-", ""); err != nil {
		t.Fatal(err)
	}

	if !dir.Resolvable("foo", "") || !dir.Resolvable("foo", "lab2") {
		t.Error("Resolvable() = false for an existing name")
	}
	if dir.Resolvable("bar", "") {
		t.Error("Resolvable() = true for an unknown name")
	}
	if len(dir.Channels()) != 1 {
		t.Errorf("Resolvable() created channels: %d", len(dir.Channels()))
	}
}

func TestDirectory_LookupUnknown(t *testing.T) {
	dir := NewDirectory(&fakeConnector{})
	if _, err := dir.Lookup(context.Background(), "missing", "lab1"); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Lookup() error = %v, want ErrUnknownChannel", err)
	}
}

func TestDirectory_CloseAll(t *testing.T) {
	conn := &fakeConnector{}
	dir := NewDirectory(conn)
	ctx := context.Background()

	names := []string{"a", "b", "c"}
	for _, n := range names {
		if _, err := dir.Create(ctx, n, "file:"+n, "lab1"); err != nil {
			t.Fatalf("Create(%s) error = %v", n, err)
		}
	}

	channels := dir.Channels()
	if len(channels) != len(names) {
		t.Fatalf("Channels() = %d, want %d", len(channels), len(names))
	}
	for i, ch := range channels {
		if ch.Name() != names[i] {
			t.Errorf("Channels()[%d] = %s, want creation order", i, ch.Name())
		}
		if err := ch.Send("line"); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	if err := dir.CloseAll(); err != nil {
		t.Fatalf("CloseAll() error = %v", err)
	}
	if len(dir.Channels()) != 0 {
		t.Error("Channels() not empty after CloseAll()")
	}
	if got := conn.output(); len(got) != len("line\n")*3 {
		t.Errorf("wire = %q, want every queued line flushed", got)
	}
	for _, ch := range channels {
		if err := ch.Send("late"); !errors.Is(err, ErrChannelClosed) {
			t.Errorf("Send() after CloseAll error = %v", err)
		}
	}
}

func TestDirectory_CloseAllReportsFailure(t *testing.T) {
	broken := errors.New("device gone")
	conn := &fakeConnector{
		configure: func(_ int, s *fakeSink) {
			s.flushErr = broken
		},
	}
	dir := NewDirectory(conn)

	ch, err := dir.Create(context.Background(), "x", "file:x", "lab1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_ = ch.Send("line") //nolint:errcheck // Failure surfaces at close

	if err := dir.CloseAll(); !errors.Is(err, broken) {
		t.Errorf("CloseAll() error = %v, want device gone", err)
	}
}
