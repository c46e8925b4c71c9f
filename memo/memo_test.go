package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc_CachesByArgument(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	double, err := LRU(16, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n * 2, nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, err := double.Call(ctx, 21)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	v, err := double.Call(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	// One computation per distinct argument.
	assert.Equal(t, int64(2), calls.Load())

	s := double.Stats()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(2), s.Misses)
}

func TestFunc_ConcurrentCallsShareOneComputation(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	slow, err := LRU(16, func(_ context.Context, s string) (string, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "v:" + s, nil
	})
	require.NoError(t, err)

	const N = 32
	var wg sync.WaitGroup
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			v, err := slow.Call(context.Background(), "k")
			assert.NoError(t, err)
			assert.Equal(t, "v:k", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), calls.Load())
}

func TestFunc_FreshBypassesCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	counter, err := LRU(16, func(context.Context, string) (int64, error) {
		return calls.Add(1), nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	v, err := counter.Call(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	// Cached.
	v, _ = counter.Call(ctx, "k")
	assert.Equal(t, int64(1), v)

	// Fresh recomputes and replaces the entry.
	v, err = counter.Fresh(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, _ = counter.Call(ctx, "k")
	assert.Equal(t, int64(2), v)
}

func TestFunc_InvalidateAndClear(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	f, err := LRU(16, func(_ context.Context, n int) (int64, error) {
		return calls.Add(1), nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = f.Call(ctx, 1)
	_, _ = f.Call(ctx, 2)
	assert.Equal(t, int64(2), calls.Load())

	assert.True(t, f.Invalidate(1))
	assert.False(t, f.Invalidate(1)) // already gone

	_, _ = f.Call(ctx, 1) // recomputes
	assert.Equal(t, int64(3), calls.Load())

	f.Clear()
	_, _ = f.Call(ctx, 2) // recomputes after Clear
	assert.Equal(t, int64(4), calls.Load())
}

func TestTTL_EntriesExpire(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	f, err := TTL(30*time.Millisecond, 16, func(_ context.Context, s string) (int64, error) {
		return calls.Add(1), nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	v, err := f.Call(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	// Within the TTL: cached.
	v, _ = f.Call(ctx, "k")
	assert.Equal(t, int64(1), v)

	time.Sleep(60 * time.Millisecond)

	// Expired: recomputed.
	v, _ = f.Call(ctx, "k")
	assert.Equal(t, int64(2), v)
}

func TestFunc_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int64
	f, err := LRU(16, func(context.Context, string) (int, error) {
		calls.Add(1)
		return 0, boom
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.Call(ctx, "k")
	assert.ErrorIs(t, err, boom)
	_, err = f.Call(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(2), calls.Load(), "failures must recompute")
}

func TestVariadic_SkipArgs(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	// skipArgs=1 drops the receiver-like first argument from the key.
	f, err := VariadicTTL(time.Minute, 16, 1, func(_ context.Context, args ...any) (string, error) {
		calls.Add(1)
		return args[1].(string), nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	recvA, recvB := &struct{ N int }{1}, &struct{ N int }{2}

	v, err := f.Call(ctx, recvA, "query")
	require.NoError(t, err)
	assert.Equal(t, "query", v)

	// Different receiver, same remaining args: cache hit.
	_, err = f.Call(ctx, recvB, "query")
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	// Different tail: recompute.
	_, err = f.Call(ctx, recvA, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())

	assert.True(t, f.Invalidate(recvB, "query")) // same key as recvA's call
}

func TestVariadicLRU_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := VariadicLRU(-5, 0, func(context.Context, ...any) (int, error) { return 0, nil })
	assert.Error(t, err)
}
