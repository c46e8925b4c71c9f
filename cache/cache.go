package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iamsinghrajat/async-cache/internal/singleflight"
	"github.com/iamsinghrajat/async-cache/policy/lru"
)

// useDefaultTTL marks a call that did not specify a per-key TTL; the
// store path substitutes Options.DefaultTTL. Not a valid TTL itself.
const useDefaultTTL = time.Duration(math.MinInt64)

// cache composes the store, the single-flight registry and the counters
// behind the Cache interface.
type cache[K comparable, V any] struct {
	store  *store[K, V]
	flight singleflight.Group[K, V]
	cnt    counters
	opt    Options[K, V]
	closed atomic.Bool
}

// New constructs a cache with the provided Options. It returns a
// ConfigError when an option is out of range.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	opt, err := opt.validate()
	if err != nil {
		return nil, err
	}

	pol := opt.Policy
	if pol == nil {
		pol = lru.New[K, V]()
	}
	capacity := opt.Capacity
	if capacity == Unlimited {
		capacity = 0 // store treats 0 as unlimited
	}

	c := &cache[K, V]{opt: opt}
	c.store = newStore(capacity, pol, opt, &c.cnt)
	return c, nil
}

// MustNew is New that panics on invalid Options. Intended for
// package-level wrappers and examples with constant configuration.
func MustNew[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	c, err := New(opt)
	if err != nil {
		panic(err)
	}
	return c
}

// ---- Cache[K,V] implementation ----

// Get returns the value for k and a presence flag.
// On hit, the entry is promoted to MRU.
func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.store.Get(k)
}

// GetOrLoad returns the value for k, loading it on miss with the
// cache's DefaultTTL. Concurrent loads for the same key are coalesced:
// the first miss runs the loader once and every waiter receives the
// same outcome.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K, loader Loader[K, V]) (V, error) {
	return c.GetOrLoadWithTTL(ctx, k, useDefaultTTL, loader)
}

// GetOrLoadWithTTL is GetOrLoad with a per-key TTL for the loaded
// entry. NoExpiry keeps it forever; a negative ttl (NoStore) returns
// the loaded value without retaining it.
func (c *cache[K, V]) GetOrLoadWithTTL(ctx context.Context, k K, ttl time.Duration, loader Loader[K, V]) (V, error) {
	if c.closed.Load() {
		var zero V
		return zero, ErrClosed
	}
	// fast path
	if v, ok := c.store.Get(k); ok {
		return v, nil
	}
	loader, err := c.resolveLoader(loader)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.load(ctx, k, ttl, loader, false)
}

// Refresh bypasses the hit path: it always runs the loader and stores
// the result with the cache's DefaultTTL. If a load for k is already in
// flight, Refresh joins it (the loader is running either way), so
// single-flight collapsing with concurrent cached callers is preserved.
// The bypassed lookup is counted as a miss.
func (c *cache[K, V]) Refresh(ctx context.Context, k K, loader Loader[K, V]) (V, error) {
	if c.closed.Load() {
		var zero V
		return zero, ErrClosed
	}
	loader, err := c.resolveLoader(loader)
	if err != nil {
		var zero V
		return zero, err
	}
	c.cnt.misses.Add(1)
	c.opt.Metrics.Miss()
	return c.load(ctx, k, useDefaultTTL, loader, true)
}

// load opens or joins the single-flight slot for k. The leader runs the
// loader on a context detached from ctx, inserts the result, and only
// then completes the slot, so a waiter waking on completion already
// observes the entry. Cancelling ctx abandons only this caller's wait.
func (c *cache[K, V]) load(ctx context.Context, k K, ttl time.Duration, loader Loader[K, V], bypass bool) (V, error) {
	call, leader := c.flight.Begin(k)
	if leader {
		go func() {
			dctx := context.WithoutCancel(ctx)
			if !bypass {
				// Double-check after winning the slot: a racing flight
				// may have completed between our miss and Begin.
				if v, ok := c.store.Peek(k); ok {
					c.flight.Complete(k, v, nil)
					return
				}
			}
			c.cnt.loads.Add(1)
			c.opt.Metrics.Load()
			v, err := loader(dctx, k)
			if err != nil {
				var zero V
				c.flight.Complete(k, zero, &LoadError{Key: k, Err: err})
				return
			}
			c.insertLoaded(k, v, ttl)
			c.flight.Complete(k, v, nil)
		}()
	}
	return call.Wait(ctx)
}

// insertLoaded stores a load result, resolving the TTL sentinels.
// A negative TTL stores nothing: the value is only handed to waiters.
func (c *cache[K, V]) insertLoaded(k K, v V, ttl time.Duration) {
	if ttl == useDefaultTTL {
		ttl = c.opt.DefaultTTL
	}
	if ttl < 0 {
		return
	}
	c.store.Set(k, v, c.deadline(ttl))
}

// resolveLoader falls back to Options.Loader for nil per-call loaders.
func (c *cache[K, V]) resolveLoader(loader Loader[K, V]) (Loader[K, V], error) {
	if loader != nil {
		return loader, nil
	}
	if c.opt.Loader != nil {
		return c.opt.Loader, nil
	}
	return nil, ErrNoLoader
}

// Set inserts or updates k→v with the cache's DefaultTTL and promotes
// the entry to MRU. May trigger eviction.
func (c *cache[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	c.store.Set(k, v, c.deadline(c.opt.DefaultTTL))
}

// SetWithTTL inserts or updates k→v with a per-key TTL.
// NoExpiry disables expiration for this entry; a negative ttl stores
// nothing.
func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() || ttl < 0 {
		return
	}
	c.store.Set(k, v, c.deadline(ttl))
}

// Add inserts k→v only if k is absent (an expired entry counts as
// absent). It uses the cache's DefaultTTL.
// Returns false if the key already exists (no update is performed).
func (c *cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	return c.store.Add(k, v, c.deadline(c.opt.DefaultTTL))
}

// Remove deletes k if present and returns true on success. It does not
// cancel an in-flight load for k; that load, on completion, still
// inserts its value and wakes its waiters.
func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.store.Remove(k)
}

// Clear drops all entries. In-flight loads and pending batches
// complete cleanly, and the metric counters keep their values.
func (c *cache[K, V]) Clear() {
	if c.closed.Load() {
		return
	}
	c.store.Clear()
}

// Len returns the number of resident entries.
func (c *cache[K, V]) Len() int { return c.store.Len() }

// Keys returns the resident keys in MRU to LRU order.
func (c *cache[K, V]) Keys() []K { return c.store.Keys() }

// Warmup loads every absent key from its loader, going through the
// flight registry so a concurrent GetOrLoad for the same key joins the
// warmup load. Loads run concurrently; a failing key never aborts its
// peers. The per-key errors are reported joined into one.
func (c *cache[K, V]) Warmup(ctx context.Context, loaders map[K]Loader[K, V]) error {
	if c.closed.Load() {
		return ErrClosed
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for k, ld := range loaders {
		g.Go(func() error {
			if _, ok := c.store.Peek(k); ok {
				return nil
			}
			if _, err := c.GetOrLoad(ctx, k, ld); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warmup key %v: %w", k, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // closures never return errors; failures are collected above
	return errors.Join(errs...)
}

// Stats returns a point-in-time snapshot of the cache counters.
func (c *cache[K, V]) Stats() Snapshot {
	return c.cnt.snapshot(c.store.Len())
}

// Close marks the cache as closed. Future operations are ignored.
// In-flight loads and armed batch timers drain on their own.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// ---- helpers ----

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A zero ttl returns 0 (no expiration).
func (c *cache[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	now := time.Now().UnixNano()
	if c.opt.Clock != nil {
		now = c.opt.Clock.NowUnixNano()
	}
	return now + int64(ttl)
}
