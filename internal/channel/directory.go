package channel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Default key parts used when a name or domain is not given.
const (
	DefaultName   = "default"
	DefaultDomain = "default"
)

type key struct {
	name   string
	domain string
}

// Directory holds the channels of one client, keyed by (name, domain).
//
// Thread Safety: All methods are safe for concurrent use.
type Directory struct {
	mu        sync.Mutex
	connector Connector
	opts      []Option
	channels  map[key]*Channel
	order     []*Channel
}

// NewDirectory creates an empty directory whose channels dial through
// connector and are configured with opts.
func NewDirectory(connector Connector, opts ...Option) *Directory {
	return &Directory{
		connector: connector,
		opts:      opts,
		channels:  make(map[key]*Channel),
	}
}

func normalise(name, domain string) key {
	if name == "" {
		name = DefaultName
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return key{name: name, domain: domain}
}

// Create opens a channel for (name, domain) sending to url. Asking again for
// an existing key with the same URL returns the existing channel; a
// different URL is ErrURLConflict.
func (d *Directory) Create(ctx context.Context, name, url, domain string) (*Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createLocked(ctx, normalise(name, domain), url)
}

func (d *Directory) createLocked(ctx context.Context, k key, url string) (*Channel, error) {
	if existing, ok := d.channels[k]; ok {
		if existing.URL() != url {
			return nil, fmt.Errorf("%w: channel %s/%s already sends to %s, not %s",
				ErrURLConflict, k.name, k.domain, existing.URL(), url)
		}
		return existing, nil
	}

	ch, err := open(ctx, k.name, url, k.domain, d.connector, d.opts...)
	if err != nil {
		return nil, fmt.Errorf("creating channel %s/%s: %w", k.name, k.domain, err)
	}
	d.channels[k] = ch
	d.order = append(d.order, ch)
	return ch, nil
}

// Lookup returns the channel for (name, domain). If only the default domain
// has a channel of that name, a new channel to the same URL is created for
// domain.
func (d *Directory) Lookup(ctx context.Context, name, domain string) (*Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := normalise(name, domain)
	if ch, ok := d.channels[k]; ok {
		return ch, nil
	}
	base, ok := d.channels[key{name: k.name, domain: DefaultDomain}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownChannel, k.name, k.domain)
	}
	return d.createLocked(ctx, k, base.URL())
}

// Resolvable reports whether Lookup would find or clone a channel for
// (name, domain). It never dials.
func (d *Directory) Resolvable(name, domain string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := normalise(name, domain)
	if _, ok := d.channels[k]; ok {
		return true
	}
	_, ok := d.channels[key{name: k.name, domain: DefaultDomain}]
	return ok
}

// Channels returns every channel in creation order.
func (d *Directory) Channels() []*Channel {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*Channel, len(d.order))
	copy(out, d.order)
	return out
}

// CloseAll closes every channel concurrently, waits for all of them to
// drain and empties the directory. It returns the first sender failure.
func (d *Directory) CloseAll() error {
	d.mu.Lock()
	channels := d.order
	d.order = nil
	d.channels = make(map[key]*Channel)
	d.mu.Unlock()

	var g errgroup.Group
	for _, ch := range channels {
		g.Go(func() error {
			if err := ch.Close(); err != nil {
				return fmt.Errorf("channel %s/%s (%s): %w", ch.Name(), ch.Domain(), ch.URL(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
