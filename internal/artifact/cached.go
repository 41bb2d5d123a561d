package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
)

// Cached wraps a Store and keeps programs and keys in memory. Input
// documents always go to the underlying store since they are edited
// between runs.
type Cached struct {
	inner Store
	cache *bigcache.BigCache
}

// NewCached creates a cache of at most sizeMB megabytes in front of inner.
// Entries live for ttl, or ten minutes when ttl is not positive.
func NewCached(ctx context.Context, inner Store, sizeMB int, ttl time.Duration) (*Cached, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	cfg := bigcache.DefaultConfig(ttl)
	// Keys can be several megabytes; few shards keep each shard large
	// enough to hold one.
	cfg.Shards = 16
	cfg.HardMaxCacheSize = sizeMB
	cfg.MaxEntrySize = 4 << 20
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) FetchInput(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return c.inner.FetchInput(ctx, locs)
}

func (c *Cached) FetchProgram(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return c.through(ctx, KindProgram, locs.Program, func() ([]byte, error) { return c.inner.FetchProgram(ctx, locs) })
}

func (c *Cached) FetchProvingKey(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return c.through(ctx, KindProvingKey, locs.ProvingKey, func() ([]byte, error) { return c.inner.FetchProvingKey(ctx, locs) })
}

func (c *Cached) FetchVerificationKey(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return c.through(ctx, KindVerificationKey, locs.VerificationKey, func() ([]byte, error) { return c.inner.FetchVerificationKey(ctx, locs) })
}

func (c *Cached) through(ctx context.Context, kind Kind, location string, load func() ([]byte, error)) ([]byte, error) {
	key := string(kind) + ":" + location
	logger := ctxlog.FromContext(ctx)

	if data, err := c.cache.Get(key); err == nil {
		logger.Debug("Artifact cache hit.", "key", key)
		return data, nil
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger.Warn("Artifact cache read failed.", "key", key, "error", err)
	}

	data, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(key, data); err != nil {
		// Oversized entries are served uncached.
		logger.Debug("Artifact not cached.", "key", key, "size", len(data), "error", err)
	}
	return data, nil
}

// Len reports the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Close releases the cache.
func (c *Cached) Close() error {
	return c.cache.Close()
}
