// Package cache is a TTL response cache with pluggable backends. Entries
// are kept past their TTL so a failed refresh can fall back to stale data,
// and concurrent misses for one key share a single load.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached payload and the time it was computed.
type Entry[T any] struct {
	Payload   T         `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Backend stores entries. Get reports ok=false for a missing key.
type Backend[T any] interface {
	Get(ctx context.Context, key string) (Entry[T], bool, error)
	Set(ctx context.Context, key string, e Entry[T], ttl time.Duration) error
}

// Observer receives one call per lookup with its result: hit, miss, stale,
// bypass or error.
type Observer interface {
	ObserveCache(name, result string)
}

type options struct {
	ttl      time.Duration
	now      func() time.Time
	observer Observer
}

// Option configures a Cache.
type Option func(*options)

// WithTTL sets how long an entry is served without recomputation.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver reports lookups to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Cache fronts an expensive load with a TTL.
type Cache[T any] struct {
	name    string
	backend Backend[T]
	opts    options
	group   singleflight.Group
}

// New creates a named cache over backend. The default TTL is one week.
func New[T any](name string, backend Backend[T], opts ...Option) *Cache[T] {
	o := options{ttl: 7 * 24 * time.Hour, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return &Cache[T]{name: name, backend: backend, opts: o}
}

// TTL returns the configured freshness window.
func (c *Cache[T]) TTL() time.Duration { return c.opts.ttl }

// GetOrLoad returns the fresh entry for key, or runs load and stores its
// result. bypass skips the lookup. A failed load leaves the entry as it was.
// Concurrent loads of one key are coalesced; the load runs detached from
// the caller's cancellation so waiters are not failed by one caller leaving.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key string, bypass bool, load func(ctx context.Context) (T, error)) (T, error) {
	if bypass {
		c.observe("bypass")
	} else if e, ok := c.lookup(ctx, key); ok {
		if c.fresh(e) {
			c.observe("hit")
			return e.Payload, nil
		}
		c.observe("stale")
	} else {
		c.observe("miss")
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		payload, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return payload, err
		}
		e := Entry[T]{Payload: payload, FetchedAt: c.opts.now()}
		if err := c.backend.Set(context.WithoutCancel(ctx), key, e, c.opts.ttl); err != nil {
			c.observe("error")
			zap.L().Warn("cache: store entry failed",
				zap.String("cache", c.name),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return payload, nil
	})
	if err != nil {
		var zero T
		return zero, eris.Wrapf(err, "cache: load %s/%s", c.name, key)
	}
	return v.(T), nil
}

// Peek returns the stored entry for key regardless of age.
func (c *Cache[T]) Peek(ctx context.Context, key string) (Entry[T], bool) {
	return c.lookup(ctx, key)
}

// Fresh reports whether e is within the TTL.
func (c *Cache[T]) Fresh(e Entry[T]) bool { return c.fresh(e) }

func (c *Cache[T]) fresh(e Entry[T]) bool {
	return c.opts.now().Sub(e.FetchedAt) < c.opts.ttl
}

func (c *Cache[T]) lookup(ctx context.Context, key string) (Entry[T], bool) {
	e, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.observe("error")
		zap.L().Warn("cache: read entry failed, treating as miss",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err),
		)
		return Entry[T]{}, false
	}
	return e, ok
}

func (c *Cache[T]) observe(result string) {
	if c.opts.observer != nil {
		c.opts.observer.ObserveCache(c.name, result)
	}
}
