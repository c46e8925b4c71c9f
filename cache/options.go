package cache

import (
	"context"
	"time"

	"github.com/iamsinghrajat/async-cache/policy"
)

// Defaults applied by New when the corresponding option is zero.
const (
	// DefaultCapacity bounds the entry count when Options.Capacity is 0.
	DefaultCapacity = 128
	// DefaultBatchWindow is the coalescing window when Options.BatchWindow is 0.
	DefaultBatchWindow = 5 * time.Millisecond
	// DefaultMaxBatchSize caps a single batch when Options.MaxBatchSize is 0.
	DefaultMaxBatchSize = 100
)

// Unlimited disables capacity-bounded eviction when used as Options.Capacity.
const Unlimited = -1

// TTL sentinels. Positive durations expire the entry that much after
// insertion.
const (
	// NoExpiry keeps the entry until it is evicted or removed.
	NoExpiry time.Duration = 0
	// NoStore runs the loader and returns its value without retaining it.
	// Any negative TTL behaves the same.
	NoStore time.Duration = -1
)

// FlushOnYield as Options.BatchWindow flushes a batch bucket on the next
// scheduler yield; calls enrolled before the timer fires still share one
// batch. Any negative window behaves the same.
const FlushOnYield time.Duration = -1

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity — removed to satisfy the entry-count limit.
	EvictCapacity EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access or sweep).
	EvictTTL
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Loader fetches the value for a single key on cache miss.
type Loader[K comparable, V any] func(ctx context.Context, k K) (V, error)

// BatchFunc loads values for a batch of distinct keys and returns them
// as a mapping. Keys missing from the result fail only their own
// waiters with KeyAbsentError; extra keys are ignored.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// OrderedBatchFunc loads values for a batch of distinct keys and
// returns them positionally aligned with keys. A result of any other
// length fails the whole batch with BatchError.
type OrderedBatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Options configures the cache behavior. Zero values are safe;
// defaults are applied in New:
//   - Capacity 0     => DefaultCapacity (Unlimited disables eviction)
//   - BatchWindow 0  => DefaultBatchWindow (negative => FlushOnYield)
//   - MaxBatchSize 0 => DefaultMaxBatchSize
//   - nil Policy     => LRU
//   - nil Metrics    => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit. Capacity is counted in entries,
	// never bytes.
	Capacity int

	// DefaultTTL applies when a per-key TTL is not provided
	// (NoExpiry = entries never expire).
	DefaultTTL time.Duration

	// BatchWindow is how long a batch bucket waits for more keys before
	// flushing.
	BatchWindow time.Duration

	// MaxBatchSize flushes a bucket immediately once it holds this many
	// keys, without waiting out the window.
	MaxBatchSize int

	// Loader is the fallback for GetOrLoad and Refresh calls that pass a
	// nil loader. Optional.
	Loader Loader[K, V]

	// Policy is a pluggable eviction policy; nil => LRU by default.
	Policy policy.Policy[K, V]

	// OnEvict is called for every eviction under the store lock; keep
	// callbacks lightweight. Explicit Remove and Clear do not trigger it.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives per-event observability signals in addition to
	// the always-on Snapshot counters.
	Metrics MetricsHook

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}

// validate checks construction-time constraints and fills defaults,
// returning the normalized options.
func (o Options[K, V]) validate() (Options[K, V], error) {
	switch {
	case o.Capacity == 0:
		o.Capacity = DefaultCapacity
	case o.Capacity < Unlimited:
		return o, &ConfigError{Param: "Capacity", Reason: "must be positive or Unlimited"}
	}
	if o.DefaultTTL < 0 {
		return o, &ConfigError{Param: "DefaultTTL", Reason: "must not be negative"}
	}
	if o.BatchWindow == 0 {
		o.BatchWindow = DefaultBatchWindow
	}
	switch {
	case o.MaxBatchSize == 0:
		o.MaxBatchSize = DefaultMaxBatchSize
	case o.MaxBatchSize < 0:
		return o, &ConfigError{Param: "MaxBatchSize", Reason: "must be positive"}
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	return o, nil
}
