package cache

import (
	"sync"
	"time"

	"github.com/iamsinghrajat/async-cache/policy"
)

// sweepLimit bounds the opportunistic expiry sweep: after handling the
// primary key, Set and Get remove at most this many expired entries
// from the LRU end. This bounds worst-case expired residency without a
// background reaper.
const sweepLimit = 8

// store is the key->entry index with an intrusive doubly linked list
// (head=MRU, tail=LRU). A single mutex serializes every operation, so
// an entry is present in the map iff it is linked into the list.
type store[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[K]*node[K, V]
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	len  int         // number of resident entries
	cap  int         // entry capacity (0 = unlimited)

	// Policy and options (policy uses hooks to manipulate the list).
	pol policy.StorePolicy[K, V]
	opt Options[K, V]

	cnt *counters
}

// newStore initializes the store with normalized options.
func newStore[K comparable, V any](capacity int, pol policy.Policy[K, V], opt Options[K, V], cnt *counters) *store[K, V] {
	s := &store[K, V]{
		m:   make(map[K]*node[K, V]),
		cap: capacity,
		opt: opt,
		cnt: cnt,
	}

	// Wrap this store with policy hooks.
	h := storeHooks[K, V]{s: s}
	s.pol = pol.New(h)
	return s
}

// Add inserts a NEW entry (no update) as MRU via policy hooks.
// exp is an absolute UnixNano deadline (0 = no TTL).
// Returns false if the key already exists and is fresh.
func (s *store[K, V]) Add(k K, v V, exp int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, exists := s.m[k]; exists {
		if !s.expiredLocked(n) {
			return false
		}
		// An expired duplicate counts as absent.
		s.evictNode(n, EvictTTL)
	}
	n := &node[K, V]{key: k, val: v, exp: exp}
	s.m[k] = n

	if ev := s.pol.OnAdd(n); ev != nil {
		s.evictNode(ev.(*node[K, V]), EvictCapacity)
	}
	s.enforceLimitLocked()
	s.sweepLocked()
	return true
}

// Set inserts or updates an entry and promotes it according to the policy.
func (s *store[K, V]) Set(k K, v V, exp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[k]; ok {
		// In-place update and promote.
		n.val = v
		n.exp = exp

		s.pol.OnUpdate(n)
		s.sweepLocked()
		return
	}

	// New entry path.
	n := &node[K, V]{key: k, val: v, exp: exp}
	s.m[k] = n

	if ev := s.pol.OnAdd(n); ev != nil {
		s.evictNode(ev.(*node[K, V]), EvictCapacity)
	}
	s.enforceLimitLocked()
	s.sweepLocked()
}

// Get returns the value and promotes the entry according to the policy.
// TTL: an expired entry is evicted and a miss is returned. Hits and
// misses are counted here.
func (s *store[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		s.cnt.misses.Add(1)
		s.opt.Metrics.Miss()
		s.sweepLocked()
		var zero V
		return zero, false
	}
	if s.expiredLocked(n) {
		s.evictNode(n, EvictTTL)
		s.cnt.misses.Add(1)
		s.opt.Metrics.Miss()
		s.sweepLocked()
		var zero V
		return zero, false
	}

	s.pol.OnGet(n)
	s.cnt.hits.Add(1)
	s.opt.Metrics.Hit()
	s.sweepLocked()
	return n.val, true
}

// Peek reports the fresh value for k without promoting it or touching
// the hit/miss counters. Expired entries are still removed lazily.
// Used for double-checks on the load path and by Warmup.
func (s *store[K, V]) Peek(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	if s.expiredLocked(n) {
		s.evictNode(n, EvictTTL)
		var zero V
		return zero, false
	}
	return n.val, true
}

// Remove deletes an entry by key. Returns true if the entry existed.
// Explicit removal is not counted as an eviction.
func (s *store[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, k)
	s.opt.Metrics.Size(s.len)
	return true
}

// Clear drops every entry. Counters are untouched.
func (s *store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for n := s.head; n != nil; n = n.next {
		s.pol.OnRemove(n)
	}
	s.m = make(map[K]*node[K, V])
	s.head, s.tail = nil, nil
	s.len = 0
	s.opt.Metrics.Size(0)
}

// Len returns the number of resident entries.
func (s *store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len
}

// Keys returns the resident keys in MRU to LRU order.
func (s *store[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]K, 0, s.len)
	for n := s.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// -------------------- internals (mu held) --------------------

// expiredLocked treats an entry as expired iff its deadline is at or
// before the current clock reading.
func (s *store[K, V]) expiredLocked(n *node[K, V]) bool {
	if n.exp == 0 {
		return false
	}
	return n.exp <= s.now()
}

func (s *store[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// insertFront inserts n at MRU in O(1).
func (s *store[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
}

// moveToFront promotes n to MRU in O(1).
func (s *store[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode removes n from the list and updates counters in O(1).
func (s *store[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
}

// evictNode removes the node, updates metrics, and calls OnEvict.
func (s *store[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, n.key)
	s.cnt.evictions.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Callbacks run under the store lock; keep them lightweight.
		cb(n.key, n.val, reason)
	}
}

// enforceLimitLocked evicts LRU entries until the count limit is satisfied.
func (s *store[K, V]) enforceLimitLocked() {
	if s.cap <= 0 {
		s.opt.Metrics.Size(s.len)
		return
	}
	for s.len > s.cap {
		tail := s.tail
		if tail == nil {
			panic("cache: store list empty while index is over capacity")
		}
		s.evictNode(tail, EvictCapacity)
	}
	s.opt.Metrics.Size(s.len)
}

// sweepLocked scans at most sweepLimit entries from the LRU end and
// removes the expired ones. Recency order is not expiry order, so fresh
// entries are skipped rather than ending the scan.
func (s *store[K, V]) sweepLocked() {
	now := s.now()
	n := s.tail
	for budget := sweepLimit; budget > 0 && n != nil; budget-- {
		prev := n.prev
		if n.exp != 0 && n.exp <= now {
			s.evictNode(n, EvictTTL)
		}
		n = prev
	}
}

// -------------------- policy hooks --------------------

// storeHooks adapts the store's list operations to policy.Hooks.
type storeHooks[K comparable, V any] struct{ s *store[K, V] }

func (h storeHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*node[K, V])) }
func (h storeHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.insertFront(x.(*node[K, V])) }
func (h storeHooks[K, V]) Remove(x policy.Node[K, V]) {
	// Policies call Remove while the store lock is held.
	// Map bookkeeping is performed by the store itself.
	h.s.removeNode(x.(*node[K, V]))
}
func (h storeHooks[K, V]) Back() policy.Node[K, V] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}
func (h storeHooks[K, V]) Len() int { return h.s.len }
