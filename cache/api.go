package cache

import (
	"context"
	"time"
)

// Cache is an in-process key/value cache for workloads dominated by
// concurrent, duplicated, expensive loads.
// All methods are safe for concurrent use by multiple goroutines.
//
// Typical complexity for operations is amortized O(1):
// a map lookup plus constant-time list adjustments under the store lock.
type Cache[K comparable, V any] interface {
	// Get returns the value for k and a boolean flag indicating presence.
	// On hit, the entry is promoted according to the eviction policy.
	Get(k K) (V, bool)

	// GetOrLoad returns the value for k, loading it via loader on miss
	// (falling back to Options.Loader when loader is nil).
	// Concurrent loads for the same key are coalesced: the loader runs
	// once and every concurrent caller observes the same outcome.
	// The loaded entry is stored with the cache's DefaultTTL.
	GetOrLoad(ctx context.Context, k K, loader Loader[K, V]) (V, error)

	// GetOrLoadWithTTL is GetOrLoad with a per-key TTL for the loaded
	// entry. NoExpiry disables expiration; a negative ttl returns the
	// loaded value without retaining it.
	GetOrLoadWithTTL(ctx context.Context, k K, ttl time.Duration, loader Loader[K, V]) (V, error)

	// Refresh bypasses the hit path: the loader always runs (or an
	// already running flight for k is joined) and its result replaces
	// the cached entry.
	Refresh(ctx context.Context, k K, loader Loader[K, V]) (V, error)

	// Set inserts or updates k→v with the cache's DefaultTTL and
	// promotes the entry to MRU. May trigger eviction.
	Set(k K, v V)

	// SetWithTTL inserts or updates k→v with a per-key TTL.
	SetWithTTL(k K, v V, ttl time.Duration)

	// Add inserts k→v only if k is not present.
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) bool

	// Remove deletes k if present and returns true on success. An
	// in-flight load for k is not cancelled; it still completes, stores
	// its value and wakes its waiters.
	Remove(k K) bool

	// Clear drops all entries without aborting in-flight loads or
	// batches and without resetting the metric counters.
	Clear()

	// Len returns the number of resident entries.
	Len() int

	// Keys returns the resident keys in MRU to LRU order.
	Keys() []K

	// Warmup loads every absent key via its loader, sharing flights with
	// concurrent getters. Per-key failures do not abort peers and are
	// reported joined into one error.
	Warmup(ctx context.Context, loaders map[K]Loader[K, V]) error

	// NewBatcher binds a batch loader returning a key→value mapping.
	// Concurrent misses for distinct keys within one batch window share
	// a single loader invocation.
	NewBatcher(fn BatchFunc[K, V]) *Batcher[K, V]

	// NewOrderedBatcher binds a batch loader returning values
	// positionally aligned with the requested keys.
	NewOrderedBatcher(fn OrderedBatchFunc[K, V]) *Batcher[K, V]

	// Stats returns a point-in-time snapshot of the cache counters.
	Stats() Snapshot

	// Close marks the cache closed. Current implementation is a soft
	// close and returns nil.
	Close() error
}
