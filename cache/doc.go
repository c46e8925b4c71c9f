// Package cache provides a generic in-process cache for concurrent,
// duplicated, expensive asynchronous loads: LRU ordering with
// capacity-bounded eviction, per-entry TTL, single-flight load
// coalescing, deadline-windowed batch coalescing (DataLoader pattern),
// and lightweight metrics hooks.
//
// Design
//
//   - Concurrency: one store serializes every index operation behind a
//     single mutex. Loads run outside the lock; per-key flight slots
//     and per-loader batch buckets have their own bookkeeping locks.
//
//   - Storage: a map[K]*node for lookups and an intrusive MRU↔LRU
//     doubly linked list for ordering. All operations are O(1) expected.
//
//   - Policies: eviction policy is pluggable via the policy package.
//     LRU is the default and the only one shipped; entries are promoted
//     on Get/Set and the LRU tail loses on eviction.
//
//   - TTL: entries carry absolute deadlines (UnixNano). Expiration is
//     lazy on read plus a bounded sweep from the LRU end on every
//     Set/Get, so no background reaper runs.
//
//   - GetOrLoad: concurrent misses for one key share a single loader
//     run (singleflight). A cancelled caller abandons only its wait;
//     the shared load completes for its peers. Loader errors propagate
//     to every waiter and are never cached.
//
//   - Batching: a Batcher groups concurrent misses for distinct keys
//     into one batch loader call per window (or per MaxBatchSize keys).
//     Results may be a key→value mapping or a positionally aligned
//     sequence.
//
//   - Metrics: monotonic counters (hits, misses, evictions, loads,
//     batch calls) are always on via Stats; Options.Metrics receives
//     per-event signals. Plug the metrics/prom adapter to export them.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every
//     eviction (reason is EvictCapacity or EvictTTL).
//
// Basic usage
//
//	c, _ := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// With a loader (singleflight)
//
//	v, err := c.GetOrLoad(ctx, "user:7", func(ctx context.Context, k string) ([]byte, error) {
//	    return fetchFromDB(ctx, k) // runs once per concurrent burst
//	})
//
// With TTL
//
//	c.SetWithTTL("tmp", v, 200*time.Millisecond)
//
// With a batch loader (DataLoader pattern)
//
//	users := c.NewBatcher(func(ctx context.Context, ids []string) (map[string][]byte, error) {
//	    return fetchManyFromDB(ctx, ids) // one query for the whole burst
//	})
//	v, err := users.Get(ctx, "user:7")
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Typical operation
// cost is O(1) expected time: one map access and a constant amount of
// pointer fixes. Eviction work is also O(1) per removed item.
//
// See cache/options.go for all available Options fields and package
// policy for the Policy/Hooks interfaces used to implement custom
// strategies.
package cache
