package key

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Of(1, "a", true), Of(1, "a", true))
	assert.Equal(t, Of(), Of())
}

func TestOf_TypeDiscrimination(t *testing.T) {
	t.Parallel()

	// The integer 1 and the string "1" must never collide.
	assert.NotEqual(t, Of(1), Of("1"))
	assert.NotEqual(t, Of(uint(1)), Of(1))
	assert.NotEqual(t, Of(1.0), Of(1))
	assert.NotEqual(t, Of(true), Of(1))
	assert.NotEqual(t, Of([]byte("a")), Of("a"))
	assert.NotEqual(t, Of(nil), Of(0))
}

func TestOf_OrderSensitive(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Of("a", "b"), Of("b", "a"))
	assert.NotEqual(t, Of([]int{1, 2}), Of([]int{2, 1}))

	// Argument boundaries matter: ("ab") vs ("a","b").
	assert.NotEqual(t, Of("ab"), Of("a", "b"))
}

func TestOf_MapOrderIndependent(t *testing.T) {
	t.Parallel()

	// Build two maps with identical content but different insertion
	// histories; the derived key must not depend on iteration order.
	m1 := map[string]int{}
	m2 := map[string]int{}
	for i := 0; i < 100; i++ {
		m1[fmt.Sprintf("k%d", i)] = i
	}
	for i := 99; i >= 0; i-- {
		m2[fmt.Sprintf("k%d", i)] = i
	}
	assert.Equal(t, Of(m1), Of(m2))

	m2["extra"] = 1
	assert.NotEqual(t, Of(m1), Of(m2))
}

func TestOf_Structs(t *testing.T) {
	t.Parallel()

	type query struct {
		Table string
		Limit int
	}
	assert.Equal(t, Of(query{"users", 10}), Of(query{"users", 10}))
	assert.NotEqual(t, Of(query{"users", 10}), Of(query{"users", 20}))

	// Same shape, different type: still distinct.
	type other struct {
		Table string
		Limit int
	}
	assert.NotEqual(t, Of(query{"users", 10}), Of(other{"users", 10}))
}

func TestOf_PointerKeysByPointee(t *testing.T) {
	t.Parallel()

	type req struct{ ID int }
	a, b := &req{ID: 7}, &req{ID: 7}
	// Freshly allocated but structurally equal arguments still collide
	// on purpose: pointers key by their pointee.
	assert.Equal(t, Of(a), Of(b))
	assert.NotEqual(t, Of(a), Of(&req{ID: 8}))

	var nilReq *req
	assert.Equal(t, Of(nilReq), Of(nilReq))
	assert.NotEqual(t, Of(nilReq), Of(a))
}

func TestOf_IdentityFallback(t *testing.T) {
	t.Parallel()

	f1 := func() {}
	f2 := func() {}
	// Functions have no natural serialisation: only the same instance
	// deduplicates.
	assert.Equal(t, Of(f1), Of(f1))
	assert.NotEqual(t, Of(f1), Of(f2))

	ch1, ch2 := make(chan int), make(chan int)
	assert.Equal(t, Of(ch1), Of(ch1))
	assert.NotEqual(t, Of(ch1), Of(ch2))
}

func TestOfSkip(t *testing.T) {
	t.Parallel()

	// Skipping the receiver argument makes method keys line up.
	recv1, recv2 := &struct{ Name string }{"a"}, &struct{ Name string }{"b"}
	assert.Equal(t, OfSkip(1, recv1, "q", 1), OfSkip(1, recv2, "q", 1))
	assert.NotEqual(t, OfSkip(0, recv1, "q", 1), OfSkip(0, recv2, "q", 1))

	// Skipping everything is a valid (constant) key.
	assert.Equal(t, OfSkip(5, 1, 2), OfSkip(5, 3))
}

type userID int

func (u userID) CacheKey() string { return fmt.Sprintf("user/%d", u) }

func TestOf_Keyer(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Of(userID(1)), Of(userID(1)))
	assert.NotEqual(t, Of(userID(1)), Of(userID(2)))
	// The Keyer fragment is tagged: a plain string with the same text
	// does not collide.
	assert.NotEqual(t, Of(userID(1)), Of("user/1"))
}

type rawToken struct{ secret string }

func TestRegister(t *testing.T) {
	// No t.Parallel: Register mutates package state.
	Register(func(tok rawToken) []byte { return []byte(tok.secret) })

	k1 := Of(rawToken{secret: "s1"})
	require.NotEmpty(t, k1)
	assert.Equal(t, k1, Of(rawToken{secret: "s1"}))
	assert.NotEqual(t, k1, Of(rawToken{secret: "s2"}))
}

func TestOf_NeverPanics(t *testing.T) {
	t.Parallel()

	type cyclic struct {
		Name string
		Next *cyclic
	}
	a := &cyclic{Name: "a"}
	a.Next = a // self-referential

	assert.NotPanics(t, func() {
		_ = Of(a)
		_ = Of(complex(1, 2))
		_ = Of([3]byte{1, 2, 3})
		_ = Of(map[any]any{1: "x", "y": 2})
		_ = Of(struct{ hidden int }{hidden: 1})
	})
	// Cyclic values still derive stable keys within the run.
	assert.Equal(t, Of(a), Of(a))
}
