package measurement

import (
	"context"
	"fmt"
	"time"

	"github.com/georgevio/oml4go/internal/channel"
	"github.com/georgevio/oml4go/internal/protocol"
)

// Freeze locks all schemas and announces them.
//
// It performs the following steps:
//  1. Checks every point has a name, every binding names a known channel
//     and a domain is given wherever "default" must be replaced
//  2. Resolves each point's bindings to channels through dir
//  3. Records the start time
//  4. Sets the header block of every channel in dir
//  5. Registers each point's schema on its channels, in declaration order
//
// Calling Freeze on a frozen registry does nothing. On error the registry
// stays unfrozen. A failure in step 1 leaves dir untouched; a clone that
// fails to dial in step 2 may leave earlier clones in dir, which the caller
// releases with CloseAll.
func (r *Registry) Freeze(ctx context.Context, dir Directory, params FreezeParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil
	}

	if err := r.checkLocked(dir, params); err != nil {
		return err
	}

	resolved := make(map[*point][]*channel.Channel, len(r.order))
	for _, p := range r.order {
		bindings := p.bindingsOrDefault()
		seen := make(map[*channel.Channel]bool, len(bindings))
		for _, b := range bindings {
			ch, err := dir.Lookup(ctx, b.name, b.domain)
			if err != nil {
				return fmt.Errorf("binding %s to %s/%s: %w", p.key, b.name, b.domain, err)
			}
			if !seen[ch] {
				seen[ch] = true
				resolved[p] = append(resolved[p], ch)
			}
		}
	}

	start := r.now()
	for _, ch := range dir.Channels() {
		domain := ch.Domain()
		if domain == channel.DefaultDomain {
			domain = params.Domain
		}
		ch.SendHeader(protocol.Header{
			Domain:    domain,
			StartTime: start,
			SenderID:  params.SenderID,
			AppName:   params.AppName,
		})
	}

	for _, p := range r.order {
		p.wireName = wireName(params.AppName, p.name)
		p.targets = p.targets[:0]
		for _, ch := range resolved[p] {
			idx := ch.RegisterSchema(p.wireName, p.fields)
			p.targets = append(p.targets, target{ch: ch, index: idx})
			r.logger.Debug("schema registered", "point", p.wireName, "channel", ch.Name(), "domain", ch.Domain(), "index", idx)
		}
	}

	r.start = start
	r.frozen = true
	r.active = true
	return nil
}

// checkLocked validates everything Freeze needs before it touches dir.
// Clones get the binding's explicit domain, so only channels already in the
// default domain need params.Domain.
func (r *Registry) checkLocked(dir Directory, params FreezeParams) error {
	for _, p := range r.order {
		if p.name == "" {
			return fmt.Errorf("%w: %s", ErrMissingName, p.key)
		}
		for _, b := range p.bindingsOrDefault() {
			if !dir.Resolvable(b.name, b.domain) {
				return fmt.Errorf("binding %s to %s/%s: %w", p.key, b.name, b.domain, channel.ErrUnknownChannel)
			}
		}
	}

	if params.Domain != "" {
		return nil
	}
	for _, ch := range dir.Channels() {
		if ch.Domain() == channel.DefaultDomain {
			return fmt.Errorf("%w: %s (%s)", ErrMissingDomain, ch.Name(), ch.URL())
		}
	}
	return nil
}

func (p *point) bindingsOrDefault() []binding {
	if len(p.bindings) == 0 {
		return []binding{{name: channel.DefaultName, domain: channel.DefaultDomain}}
	}
	return p.bindings
}

// wireName prefixes the point name with the application name.
func wireName(appName, name string) string {
	if appName == "" {
		return name
	}
	return appName + "_" + name
}

// Unfreeze returns the registry to the declaration state. Names and fields
// are kept; channel bindings, resolved channels and sequence counters are
// cleared.
func (r *Registry) Unfreeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.order {
		p.mu.Lock()
		p.seq = 0
		p.targets = nil
		p.mu.Unlock()
		p.bindings = nil
	}
	r.frozen = false
	r.active = false
	r.start = time.Time{}
}
