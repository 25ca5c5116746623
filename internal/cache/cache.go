package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Producer computes a value on a cache miss.
type Producer[V any] func(ctx context.Context) (V, error)

// Tier is a shared second-level store consulted before the producer.
type Tier interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Options configures a Cache.
type Options struct {
	Name string
	// TTL is how long an entry is served as fresh.
	TTL time.Duration
	// Stale is how long past TTL an entry may still be served while it is
	// refreshed in the background. Zero disables stale serving.
	Stale time.Duration
	// RefreshTimeout bounds a load, which runs detached from the caller.
	RefreshTimeout time.Duration
	Tier           Tier
	Now            func() time.Time
	Logger         *zap.Logger
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is an in-process TTL cache that collapses concurrent loads of the
// same key into one producer call. Entries older than TTL+Stale are swept
// out as new values are stored.
type Cache[V any] struct {
	opts   Options
	logger *zap.Logger
	flight singleflight.Group

	mu         sync.Mutex
	entries    map[string]entry[V]
	refreshing map[string]struct{}
	// pending counts loads in progress per key; gens is bumped by an
	// invalidation of a key with a pending load.
	pending   map[string]int
	gens      map[string]uint64
	lastSweep time.Time
}

// New builds a Cache. TTL defaults to 30s.
func New[V any](opts Options) *Cache[V] {
	if opts.Name == "" {
		opts.Name = "default"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Stale < 0 {
		opts.Stale = 0
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[V]{
		opts:       opts,
		logger:     logger.With(zap.String("cache", opts.Name)),
		entries:    make(map[string]entry[V]),
		refreshing: make(map[string]struct{}),
		pending:    make(map[string]int),
		gens:       make(map[string]uint64),
		lastSweep:  opts.Now(),
	}
}

// Get returns the cached value for key, calling produce on a miss. Errors
// from produce are returned to every waiting caller and never cached.
// The load runs detached from ctx, bounded by RefreshTimeout, so a caller
// that gives up does not fail the others waiting on the same key.
func (c *Cache[V]) Get(ctx context.Context, key string, produce Producer[V]) (V, error) {
	var zero V

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		age := c.opts.Now().Sub(e.storedAt)
		if age < c.opts.TTL {
			lookupTotal.WithLabelValues(c.opts.Name, "hit").Inc()
			return e.value, nil
		}
		if age < c.opts.TTL+c.opts.Stale {
			lookupTotal.WithLabelValues(c.opts.Name, "stale").Inc()
			c.refresh(ctx, key, produce)
			return e.value, nil
		}
	}

	lookupTotal.WithLabelValues(c.opts.Name, "miss").Inc()
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(loadCtx, c.opts.RefreshTimeout)
		defer cancel()
		return c.load(ctx, key, produce)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Invalidate drops key from this cache and the shared tier.
func (c *Cache[V]) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	if c.pending[key] > 0 {
		c.gens[key]++
	}
	c.mu.Unlock()
	c.flight.Forget(key)

	if c.opts.Tier != nil {
		if err := c.opts.Tier.Delete(ctx, key); err != nil {
			c.logger.Warn("shared tier delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// InvalidatePrefix drops every key starting with prefix.
func (c *Cache[V]) InvalidatePrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	dropped := make(map[string]struct{})
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			dropped[key] = struct{}{}
		}
	}
	for key := range c.pending {
		if strings.HasPrefix(key, prefix) {
			c.gens[key]++
			dropped[key] = struct{}{}
		}
	}
	c.mu.Unlock()
	for key := range dropped {
		c.flight.Forget(key)
	}

	if c.opts.Tier != nil {
		if err := c.opts.Tier.DeletePrefix(ctx, prefix); err != nil {
			c.logger.Warn("shared tier prefix delete failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

// Len reports the number of entries held in process.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// refresh reloads key in the background, at most once at a time per key.
func (c *Cache[V]) refresh(ctx context.Context, key string, produce Producer[V]) {
	c.mu.Lock()
	if _, busy := c.refreshing[key]; busy {
		c.mu.Unlock()
		return
	}
	c.refreshing[key] = struct{}{}
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.refreshing, key)
			c.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(ctx, c.opts.RefreshTimeout)
		defer cancel()
		_, err, _ := c.flight.Do(key, func() (interface{}, error) {
			return c.produce(ctx, key, produce)
		})
		if err != nil {
			c.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

func (c *Cache[V]) load(ctx context.Context, key string, produce Producer[V]) (V, error) {
	if c.opts.Tier != nil {
		var shared V
		gen := c.begin(key)
		found, err := c.opts.Tier.Get(ctx, key, &shared)
		if err != nil {
			c.logger.Warn("shared tier get failed", zap.String("key", key), zap.Error(err))
		} else if found {
			lookupTotal.WithLabelValues(c.opts.Name, "shared").Inc()
			c.finish(key, gen, &shared)
			return shared, nil
		}
		c.finish(key, gen, nil)
	}
	return c.produce(ctx, key, produce)
}

func (c *Cache[V]) produce(ctx context.Context, key string, produce Producer[V]) (V, error) {
	gen := c.begin(key)
	v, err := produce(ctx)
	if err != nil {
		c.finish(key, gen, nil)
		producerTotal.WithLabelValues(c.opts.Name, "error").Inc()
		var zero V
		return zero, err
	}
	producerTotal.WithLabelValues(c.opts.Name, "ok").Inc()

	if c.finish(key, gen, &v) && c.opts.Tier != nil {
		if err := c.opts.Tier.Set(ctx, key, v, c.opts.TTL); err != nil {
			c.logger.Warn("shared tier set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

// begin registers a pending load of key and returns its generation.
func (c *Cache[V]) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key]++
	return c.gens[key]
}

// finish ends a pending load and stores v unless key was invalidated
// since the load began. It reports whether v was stored.
func (c *Cache[V]) finish(key string, gen uint64, v *V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := false
	if v != nil && c.gens[key] == gen {
		now := c.opts.Now()
		c.entries[key] = entry[V]{value: *v, storedAt: now}
		c.sweep(now)
		stored = true
	}
	if c.pending[key]--; c.pending[key] <= 0 {
		delete(c.pending, key)
		delete(c.gens, key)
	}
	return stored
}

// sweep drops entries past TTL+Stale, at most once per TTL. Callers hold mu.
func (c *Cache[V]) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < c.opts.TTL {
		return
	}
	c.lastSweep = now
	horizon := c.opts.TTL + c.opts.Stale
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= horizon {
			delete(c.entries, key)
		}
	}
}
