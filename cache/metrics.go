package cache

import "github.com/iamsinghrajat/async-cache/internal/util"

// MetricsHook exposes cache-level observability signals.
// A NoopMetrics implementation is provided and used by default.
// Plug a Prometheus adapter (metrics/prom) to export metrics.
type MetricsHook interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	// Load fires when a unary loader actually executes (joined waiters
	// share the leader's load and do not fire it).
	Load()
	// BatchCall fires once per batch loader invocation with the number
	// of keys in the flushed bucket.
	BatchCall(keys int)
	Size(entries int)
}

// NoopMetrics is a drop-in MetricsHook implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Load()             {}
func (NoopMetrics) BatchCall(int)     {}
func (NoopMetrics) Size(int)          {}

// Ensure NoopMetrics implements the MetricsHook interface at compile time.
var _ MetricsHook = NoopMetrics{}

// Snapshot is a point-in-time view of the cache counters. All counters
// are monotonic over the cache's lifetime; Clear does not reset them.
type Snapshot struct {
	Hits int64
	// Misses counts every lookup that found no fresh entry. A waiter
	// that joins an in-flight load still counts as a miss.
	Misses     int64
	Evictions  int64
	Loads      int64
	BatchCalls int64
	// Entries is the resident entry count at snapshot time.
	Entries int
}

// HitRate derives hits/(hits+misses); 0 when both counters are 0.
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// counters are the hot cache counters, padded to separate cache lines
// to avoid false sharing between concurrent updaters.
type counters struct {
	_          util.CacheLinePad
	hits       util.PaddedAtomicInt64
	misses     util.PaddedAtomicInt64
	evictions  util.PaddedAtomicInt64
	loads      util.PaddedAtomicInt64
	batchCalls util.PaddedAtomicInt64
}

func (c *counters) snapshot(entries int) Snapshot {
	return Snapshot{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Loads:      c.loads.Load(),
		BatchCalls: c.batchCalls.Load(),
		Entries:    entries,
	}
}
