package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sells-group/awards-cli/internal/cache"
)

// Cached keeps documents read from another store for a TTL. Lookups that
// fail, including not-found, are not cached.
type Cached struct {
	inner Store
	cache *cache.Cache[json.RawMessage]
}

// NewCached wraps inner with an in-process cache.
func NewCached(inner Store, ttl time.Duration, opts ...cache.Option) *Cached {
	opts = append([]cache.Option{cache.WithTTL(ttl)}, opts...)
	return &Cached{
		inner: inner,
		cache: cache.New[json.RawMessage]("documents", cache.NewMemoryBackend[json.RawMessage](), opts...),
	}
}

// Document returns the document, skipping the cache when bypass is set.
func (c *Cached) Document(ctx context.Context, collection, document string, bypass bool) (json.RawMessage, error) {
	return c.cache.GetOrLoad(ctx, collection+"/"+document, bypass, func(ctx context.Context) (json.RawMessage, error) {
		return c.inner.GetDocument(ctx, collection, document)
	})
}

// GetDocument implements Store.
func (c *Cached) GetDocument(ctx context.Context, collection, document string) (json.RawMessage, error) {
	return c.Document(ctx, collection, document, false)
}

// Close closes the wrapped store.
func (c *Cached) Close() error {
	return c.inner.Close()
}
