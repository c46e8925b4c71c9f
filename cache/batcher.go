package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/iamsinghrajat/async-cache/internal/batch"
)

// Batcher groups concurrent misses for distinct keys that share one
// batch loader into a single bulk invocation (the DataLoader pattern).
// Each Batcher owns its pending bucket; create one per batch loader and
// reuse it across calls — constructing a Batcher per call defeats
// coalescing.
//
// A bucket flushes when the cache's BatchWindow elapses or when
// MaxBatchSize keys are pending, whichever comes first. The flush runs
// detached from every caller: cancelling a waiting Get abandons only
// that wait, never the batch.
type Batcher[K comparable, V any] struct {
	c  *cache[K, V]
	co *batch.Coalescer[K]

	// Exactly one of mapped/ordered is set.
	mapped  BatchFunc[K, V]
	ordered OrderedBatchFunc[K, V]
}

// NewBatcher binds fn, a batch loader returning a key→value mapping, to
// this cache. Keys missing from the mapping fail only their own waiters
// with KeyAbsentError; extra keys are ignored.
func (c *cache[K, V]) NewBatcher(fn BatchFunc[K, V]) *Batcher[K, V] {
	b := &Batcher[K, V]{c: c, mapped: fn}
	b.co = batch.New(c.opt.BatchWindow, c.opt.MaxBatchSize, b.flush)
	return b
}

// NewOrderedBatcher binds fn, a batch loader returning values aligned
// positionally with the requested keys. A result of any other length
// fails the whole bucket with BatchError.
func (c *cache[K, V]) NewOrderedBatcher(fn OrderedBatchFunc[K, V]) *Batcher[K, V] {
	b := &Batcher[K, V]{c: c, ordered: fn}
	b.co = batch.New(c.opt.BatchWindow, c.opt.MaxBatchSize, b.flush)
	return b
}

// Get returns the value for k, enrolling k in the current batch bucket
// on miss. The loaded entry is stored with the cache's DefaultTTL.
func (b *Batcher[K, V]) Get(ctx context.Context, k K) (V, error) {
	return b.get(ctx, k, useDefaultTTL)
}

// GetWithTTL is Get with a per-key TTL for the loaded entry.
func (b *Batcher[K, V]) GetWithTTL(ctx context.Context, k K, ttl time.Duration) (V, error) {
	return b.get(ctx, k, ttl)
}

func (b *Batcher[K, V]) get(ctx context.Context, k K, ttl time.Duration) (V, error) {
	if b.c.closed.Load() {
		var zero V
		return zero, ErrClosed
	}
	if v, ok := b.c.store.Get(k); ok {
		return v, nil
	}

	// The flight slot is shared with unary loads: a concurrent
	// GetOrLoad for the same key joins this batch's promise and vice
	// versa. Only the slot winner enrolls, so bucket keys are distinct.
	call, leader := b.c.flight.Begin(k)
	if leader {
		b.co.Enroll(k, ttl)
	}
	return call.Wait(ctx)
}

// flush executes the batch loader for a detached bucket and settles
// every enrolled flight: insert then complete per key, so waiters that
// wake already observe their entry.
func (b *Batcher[K, V]) flush(pending []batch.Enrollment[K]) {
	keys := make([]K, len(pending))
	for i, e := range pending {
		keys[i] = e.Key
	}
	b.c.cnt.batchCalls.Add(1)
	b.c.opt.Metrics.BatchCall(len(keys))

	// The batch outlives its waiters; run it on a background context.
	ctx := context.Background()

	if b.mapped != nil {
		res, err := b.mapped(ctx, keys)
		if err != nil {
			b.failAll(pending, &BatchError{Err: err})
			return
		}
		for _, e := range pending {
			v, ok := res[e.Key]
			if !ok {
				var zero V
				b.c.flight.Complete(e.Key, zero, &KeyAbsentError{Key: e.Key})
				continue
			}
			b.c.insertLoaded(e.Key, v, e.TTL)
			b.c.flight.Complete(e.Key, v, nil)
		}
		return
	}

	vals, err := b.ordered(ctx, keys)
	if err != nil {
		b.failAll(pending, &BatchError{Err: err})
		return
	}
	if len(vals) != len(keys) {
		b.failAll(pending, &BatchError{
			Err: fmt.Errorf("ordered result has %d values for %d keys", len(vals), len(keys)),
		})
		return
	}
	for i, e := range pending {
		b.c.insertLoaded(e.Key, vals[i], e.TTL)
		b.c.flight.Complete(e.Key, vals[i], nil)
	}
}

// failAll delivers one shared error to every waiter of the bucket.
// Nothing is stored; the next miss starts a fresh flight per key.
func (b *Batcher[K, V]) failAll(pending []batch.Enrollment[K], err error) {
	var zero V
	for _, e := range pending {
		b.c.flight.Complete(e.Key, zero, err)
	}
}
