package measurement

import (
	"fmt"

	"github.com/georgevio/oml4go/internal/protocol"
)

// Inject records one sample of the point identified by key.
//
// It does nothing unless the registry is active. Otherwise the values must
// match the schema in count and type; the sample gets the next sequence
// number and a data line goes to every bound channel. A channel that has
// stopped drops the line without failing the injection.
func (r *Registry) Inject(key string, values ...any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.active {
		return nil
	}
	p, ok := r.points[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPoint, key)
	}
	if len(values) != len(p.fields) {
		return fmt.Errorf("%w: %s has %d fields, got %d values", ErrSizeMismatch, p.wireName, len(p.fields), len(values))
	}

	texts := make([]string, len(values))
	for i, v := range values {
		text, err := protocol.FormatValue(p.fields[i].Type, v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", p.wireName, p.fields[i].Name, err)
		}
		texts[i] = text
	}

	var normalised []any
	if r.mirror != nil {
		normalised = make([]any, len(values))
		for i, v := range values {
			// FormatValue accepted v, so Normalize cannot fail here.
			normalised[i], _ = protocol.Normalize(p.fields[i].Type, v) //nolint:errcheck // Validated above
		}
	}

	p.mu.Lock()
	now := r.now()
	p.seq++
	seq := p.seq
	elapsed := now.Sub(r.start)
	for _, t := range p.targets {
		_ = t.ch.Send(protocol.DataLine(elapsed, t.index, seq, texts)) //nolint:errcheck // Counted by the channel
	}
	p.mu.Unlock()

	if r.mirror != nil {
		r.mirror.MirrorSample(p.wireName, p.fields, seq, normalised, now)
	}
	return nil
}
