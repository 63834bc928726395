// Package query caches fetched collections by key, the way the notebook
// views share one cache of catalog reads.
//
// Entries go stale after a fixed time. Concurrent fetches of the same key
// are coalesced into one backend call. Mutations invalidate keys explicitly.
package query

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched value is served without refetching.
const DefaultStaleTime = time.Minute

// Client is a keyed cache of fetch results.
type Client struct {
	cache *cache.Cache
	group singleflight.Group
}

// NewClient creates a client whose entries go stale after staleTime.
func NewClient(staleTime time.Duration) *Client {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Client{
		cache: cache.New(staleTime, 2*staleTime),
	}
}

// Key joins parts into a cache key, e.g. Key("highlights", paperID).
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Fetch returns the cached value for key, calling fn when the entry is
// missing or stale. Errors are not cached.
func Fetch[T any](ctx context.Context, c *Client, key string, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	return Refetch(ctx, c, key, fn)
}

// Refetch bypasses the cache, calls fn and stores the result.
func Refetch[T any](ctx context.Context, c *Client, key string, fn func(context.Context) (T, error)) (T, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops the entry for key so the next Fetch goes to the backend.
func (c *Client) Invalidate(key string) {
	c.cache.Delete(key)
	c.group.Forget(key)
}

// Cached reports whether a fresh entry exists for key.
func (c *Client) Cached(key string) bool {
	_, ok := c.cache.Get(key)
	return ok
}
