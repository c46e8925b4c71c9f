// Package memo wraps functions with a private cache, the decorator form
// of the cache engine: call results are keyed by the call arguments via
// package key and shared across concurrent callers.
//
// Two wrapper shapes are provided. Func wraps a function of one typed
// argument; Variadic wraps a function of arbitrary arguments and can
// skip leading ones (receivers) when deriving the key.
package memo

import (
	"context"
	"time"

	"github.com/iamsinghrajat/async-cache/cache"
	"github.com/iamsinghrajat/async-cache/key"
)

// Func is a cached async function of one argument. Create with LRU or
// TTL; the zero value is not usable.
type Func[A any, V any] struct {
	c  cache.Cache[string, V]
	fn func(ctx context.Context, arg A) (V, error)
}

// LRU wraps fn with a fixed-size cache whose entries never expire.
// maxsize 0 selects the default capacity; cache.Unlimited disables
// eviction.
func LRU[A any, V any](maxsize int, fn func(ctx context.Context, arg A) (V, error)) (*Func[A, V], error) {
	return newFunc(cache.NoExpiry, maxsize, fn)
}

// TTL wraps fn with a cache whose entries expire ttl after insertion
// (cache.NoExpiry disables expiry).
func TTL[A any, V any](ttl time.Duration, maxsize int, fn func(ctx context.Context, arg A) (V, error)) (*Func[A, V], error) {
	return newFunc(ttl, maxsize, fn)
}

func newFunc[A any, V any](ttl time.Duration, maxsize int, fn func(ctx context.Context, arg A) (V, error)) (*Func[A, V], error) {
	c, err := cache.New[string, V](cache.Options[string, V]{
		Capacity:   maxsize,
		DefaultTTL: ttl,
	})
	if err != nil {
		return nil, err
	}
	return &Func[A, V]{c: c, fn: fn}, nil
}

// Call returns the cached result for arg, computing it on miss.
// Concurrent calls with an equal argument share one computation.
func (f *Func[A, V]) Call(ctx context.Context, arg A) (V, error) {
	return f.c.GetOrLoad(ctx, key.Of(arg), f.loader(arg))
}

// Fresh bypasses the cached value: the function runs (or an in-flight
// computation for the same argument is joined) and the result replaces
// the cached entry. The use_cache=false surface of the decorator.
func (f *Func[A, V]) Fresh(ctx context.Context, arg A) (V, error) {
	return f.c.Refresh(ctx, key.Of(arg), f.loader(arg))
}

// Invalidate drops the cached result for arg, if any.
func (f *Func[A, V]) Invalidate(arg A) bool {
	return f.c.Remove(key.Of(arg))
}

// Clear drops every cached result. Counters are untouched.
func (f *Func[A, V]) Clear() { f.c.Clear() }

// Stats returns the wrapper's cache counters.
func (f *Func[A, V]) Stats() cache.Snapshot { return f.c.Stats() }

func (f *Func[A, V]) loader(arg A) cache.Loader[string, V] {
	return func(ctx context.Context, _ string) (V, error) {
		return f.fn(ctx, arg)
	}
}

// Variadic is a cached async function of arbitrary arguments. SkipArgs
// leading arguments are ignored when deriving the key (use 1 to drop a
// receiver).
type Variadic[V any] struct {
	c    cache.Cache[string, V]
	fn   func(ctx context.Context, args ...any) (V, error)
	skip int
}

// VariadicTTL wraps fn the way TTL wraps a typed function, skipping
// skipArgs leading arguments in the key.
func VariadicTTL[V any](ttl time.Duration, maxsize, skipArgs int, fn func(ctx context.Context, args ...any) (V, error)) (*Variadic[V], error) {
	if skipArgs < 0 {
		skipArgs = 0
	}
	c, err := cache.New[string, V](cache.Options[string, V]{
		Capacity:   maxsize,
		DefaultTTL: ttl,
	})
	if err != nil {
		return nil, err
	}
	return &Variadic[V]{c: c, fn: fn, skip: skipArgs}, nil
}

// VariadicLRU is VariadicTTL without expiry.
func VariadicLRU[V any](maxsize, skipArgs int, fn func(ctx context.Context, args ...any) (V, error)) (*Variadic[V], error) {
	return VariadicTTL(cache.NoExpiry, maxsize, skipArgs, fn)
}

// Call returns the cached result for args, computing it on miss.
func (f *Variadic[V]) Call(ctx context.Context, args ...any) (V, error) {
	return f.c.GetOrLoad(ctx, key.OfSkip(f.skip, args...), f.loader(args))
}

// Fresh always recomputes and replaces the cached entry.
func (f *Variadic[V]) Fresh(ctx context.Context, args ...any) (V, error) {
	return f.c.Refresh(ctx, key.OfSkip(f.skip, args...), f.loader(args))
}

// Invalidate drops the cached result for args, if any.
func (f *Variadic[V]) Invalidate(args ...any) bool {
	return f.c.Remove(key.OfSkip(f.skip, args...))
}

// Clear drops every cached result.
func (f *Variadic[V]) Clear() { f.c.Clear() }

// Stats returns the wrapper's cache counters.
func (f *Variadic[V]) Stats() cache.Snapshot { return f.c.Stats() }

func (f *Variadic[V]) loader(args []any) cache.Loader[string, V] {
	return func(ctx context.Context, _ string) (V, error) {
		return f.fn(ctx, args...)
	}
}
