package measurement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/georgevio/oml4go/internal/channel"
	"github.com/georgevio/oml4go/internal/protocol"
)

// Logger is the diagnostic interface used by the registry.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Mirror receives every injected sample in addition to the channels.
// Values are normalised: string, int64 or float64 per field type.
type Mirror interface {
	MirrorSample(point string, fields []protocol.Field, seq uint64, values []any, at time.Time)
}

// Directory resolves channel names at Freeze. *channel.Directory satisfies it.
type Directory interface {
	Resolvable(name, domain string) bool
	Lookup(ctx context.Context, name, domain string) (*channel.Channel, error)
	Channels() []*channel.Channel
}

// FreezeParams identify the sender in every header block.
type FreezeParams struct {
	// Domain replaces the "default" domain in headers.
	Domain   string
	SenderID string
	AppName  string
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now for start and sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

type binding struct {
	name   string
	domain string
}

type target struct {
	ch    *channel.Channel
	index int
}

// point is one declared measurement point.
type point struct {
	key      string
	name     string
	wireName string
	fields   []protocol.Field
	bindings []binding

	// mu orders sequence numbers and sends so every channel sees the
	// samples of this point in sequence order.
	mu      sync.Mutex
	seq     uint64
	targets []target
}

// Registry holds measurement point schemas and their channel bindings.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Inject may run from any number of goroutines.
type Registry struct {
	mu     sync.RWMutex
	points map[string]*point
	order  []*point
	frozen bool
	active bool
	start  time.Time
	mirror Mirror

	now    func() time.Time
	logger Logger
}

// New creates an empty, unfrozen registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		points: make(map[string]*point),
		now:    time.Now,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// pointLocked returns the point for key, creating it on first use.
func (r *Registry) pointLocked(key string) *point {
	p, ok := r.points[key]
	if !ok {
		p = &point{key: key}
		r.points[key] = p
		r.order = append(r.order, p)
	}
	return p
}

// Define declares the point key named after itself. A point that already
// exists is left as it is, frozen or not.
func (r *Registry) Define(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.points[key]; ok {
		return nil
	}
	if r.frozen {
		return fmt.Errorf("%w: cannot define %s", ErrFrozen, key)
	}
	r.pointLocked(key).name = key
	return nil
}

// DeclareName sets the name of the point identified by key.
func (r *Registry) DeclareName(key, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot name %s", ErrFrozen, key)
	}
	r.pointLocked(key).name = name
	return nil
}

// DeclareField appends a field. typeName is one of string, int32 or double;
// empty means string and the legacy names long and boolean map to int32.
func (r *Registry) DeclareField(key, name, typeName string) error {
	ft, deprecated, err := protocol.ParseFieldType(typeName)
	if err != nil {
		return fmt.Errorf("field %s of %s: %w", name, key, err)
	}
	if deprecated {
		r.logger.Warn("field type is deprecated, using int32", "point", key, "field", name, "type", typeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot add field %s to %s", ErrFrozen, name, key)
	}
	p := r.pointLocked(key)
	p.fields = append(p.fields, protocol.Field{Name: name, Type: ft})
	return nil
}

// DeclareChannel binds the point to the channel (name, domain). A point with
// no bindings reports to the default channel in the default domain.
func (r *Registry) DeclareChannel(key, name, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot bind %s", ErrFrozen, key)
	}
	if name == "" {
		name = channel.DefaultName
	}
	if domain == "" {
		domain = channel.DefaultDomain
	}
	p := r.pointLocked(key)
	p.bindings = append(p.bindings, binding{name: name, domain: domain})
	return nil
}

// SetMirror installs m to receive every injected sample. nil removes it.
func (r *Registry) SetMirror(m Mirror) {
	r.mu.Lock()
	r.mirror = m
	r.mu.Unlock()
}

// Frozen reports whether Freeze has completed.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Active reports whether Inject currently delivers samples.
func (r *Registry) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// StartTime returns the time recorded by Freeze. Sample timestamps are
// relative to it.
func (r *Registry) StartTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.start
}
