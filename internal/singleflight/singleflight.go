// Package singleflight coalesces concurrent loads for the same key into
// a single execution whose outcome is shared by every waiter.
package singleflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// Call is the per-key in-flight record. The leader publishes (val, err)
// and closes done; waiters observe the pair after <-done.
//
// Publishing happens-before close(done), so reads after Wait returns
// always see the final values.
type Call[V any] struct {
	done chan struct{} // closed when val/err are published

	val V
	err error

	// waiters counts attached waiters, the leader included.
	// Informational only; read it after Wait for diagnostics.
	waiters atomic.Int32
}

// Wait blocks until the call completes or ctx is done.
//
// Cancelling ctx abandons only this waiter: the shared execution keeps
// running so concurrent and future waiters still benefit from it.
func (c *Call[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Waiters reports how many callers attached to this call.
func (c *Call[V]) Waiters() int { return int(c.waiters.Load()) }

// Group tracks at most one Call per key.
//
// Concurrency notes:
//   - Begin is the only way a Call enters the map; Complete is the only
//     way one leaves it, and it publishes the outcome first. A caller
//     that grabbed the Call just before removal still observes the
//     result; a caller arriving after removal starts a fresh flight.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*Call[V]
}

// Begin returns the in-flight Call for key, creating one if absent.
// The second result is true when the caller created the Call and is
// therefore responsible for eventually invoking Complete exactly once.
func (g *Group[K, V]) Begin(key K) (*Call[V], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.m == nil {
		g.m = make(map[K]*Call[V])
	}
	if c, ok := g.m[key]; ok {
		c.waiters.Add(1)
		return c, false
	}
	c := &Call[V]{done: make(chan struct{})}
	c.waiters.Add(1)
	g.m[key] = c
	return c, true
}

// Complete publishes the outcome of the flight for key and then removes
// it from the group. The order matters: publish first, so any waiter
// that attached just before removal still observes the result; remove
// second, so a subsequent Begin starts a fresh flight.
//
// Calling Complete for a key with no in-flight Call is a bug.
func (g *Group[K, V]) Complete(key K, v V, err error) {
	g.mu.Lock()
	c, ok := g.m[key]
	g.mu.Unlock()

	if !ok {
		panic("singleflight: Complete without Begin")
	}
	c.val, c.err = v, err
	close(c.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// Inflight reports whether a flight is currently open for key.
func (g *Group[K, V]) Inflight(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

// Do runs fn once per key across concurrent callers and hands every
// caller the shared outcome.
//
// The leader executes fn on a context detached from ctx's cancellation
// (values are preserved): abandoning a caller never cancels the shared
// work. A follower whose ctx is done returns ctx.Err() while the flight
// keeps running.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	c, leader := g.Begin(key)
	if leader {
		go func() {
			v, err := fn(context.WithoutCancel(ctx))
			g.Complete(key, v, err)
		}()
	}
	return c.Wait(ctx)
}
