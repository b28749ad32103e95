package cache

import (
	"iter"
	"sync"
	"time"
)

// TTLMap is a generic thread-safe map whose entries carry a last-used time.
//
// TTLMap must not be copied after creation (has mutex).
type TTLMap[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*lruNode[K, V]
	order   lruList[K, V]
	now     func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewTTLMap creates an empty map. now supplies timestamps; nil means
// time.Now.
func NewTTLMap[K comparable, V any](now func() time.Time) *TTLMap[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTLMap[K, V]{
		entries: make(map[K]*lruNode[K, V]),
		now:     now,
	}
}

// Get retrieves a value and marks it used.
// Returns (value, true) if found, (zero, false) otherwise.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.entries[key]
	if !ok {
		m.misses++
		var zero V
		return zero, false
	}
	m.hits++
	m.touch(node)
	return node.value, true
}

// Peek retrieves a value without marking it used.
func (m *TTLMap[K, V]) Peek(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if node, ok := m.entries[key]; ok {
		return node.value, true
	}
	var zero V
	return zero, false
}

// LastUsed returns when key was last used.
func (m *TTLMap[K, V]) LastUsed(key K) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if node, ok := m.entries[key]; ok {
		return node.used, true
	}
	return time.Time{}, false
}

// Set stores a value and marks it used, replacing any previous value.
func (m *TTLMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value)
}

// GetOrCreate returns the cached value or creates it.
// create is called under lock so concurrent callers never create twice.
// A create error leaves the map unchanged.
func (m *TTLMap[K, V]) GetOrCreate(key K, create func() (V, error)) (value V, hit bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if node, ok := m.entries[key]; ok {
		m.hits++
		m.touch(node)
		return node.value, true, nil
	}
	m.misses++

	value, err = create()
	if err != nil {
		var zero V
		return zero, false, err
	}
	m.set(key, value)
	return value, false, nil
}

// Delete removes an entry and returns its value.
func (m *TTLMap[K, V]) Delete(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	m.order.Remove(node)
	delete(m.entries, key)
	return node.value, true
}

// Stale yields entries idle for at least ttl, least recently used first,
// stopping after limit entries (limit <= 0 means no cap). The walk stops at
// the first fresh entry. Entries are snapshotted under the lock, so the map
// may be modified while iterating.
func (m *TTLMap[K, V]) Stale(ttl time.Duration, limit int) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, node := range m.stale(ttl, limit) {
			if !yield(node.key, node.value) {
				return
			}
		}
	}
}

// Evict removes entries idle for at least ttl, at most limit per call
// (limit <= 0 means no cap), and returns how many were removed. onEvict, if
// non-nil, receives each removed entry after the lock is released.
func (m *TTLMap[K, V]) Evict(ttl time.Duration, limit int, onEvict func(K, V)) int {
	m.mu.Lock()
	now := m.now()
	var removed []*lruNode[K, V]
	for node := m.order.Oldest(); node != nil; node = m.order.Oldest() {
		if limit > 0 && len(removed) >= limit {
			break
		}
		if now.Sub(node.used) < ttl {
			break
		}
		m.order.Remove(node)
		delete(m.entries, node.key)
		removed = append(removed, node)
	}
	m.evictions += uint64(len(removed))
	m.mu.Unlock()

	if onEvict != nil {
		for _, node := range removed {
			onEvict(node.key, node.value)
		}
	}
	return len(removed)
}

// Clear removes all entries, handing each to onEvict (if non-nil) after the
// lock is released. Returns the number removed.
func (m *TTLMap[K, V]) Clear(onEvict func(K, V)) int {
	m.mu.Lock()
	var removed []*lruNode[K, V]
	for node := m.order.head; node != nil; node = node.next {
		removed = append(removed, node)
	}
	m.entries = make(map[K]*lruNode[K, V])
	m.order.Clear()
	m.mu.Unlock()

	if onEvict != nil {
		for _, node := range removed {
			onEvict(node.key, node.value)
		}
	}
	return len(removed)
}

// Len returns the number of entries.
func (m *TTLMap[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Stats returns map statistics.
func (m *TTLMap[K, V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Len:       len(m.entries),
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
	}
	if total := m.hits + m.misses; total > 0 {
		s.HitRate = float64(m.hits) / float64(total)
	}
	return s
}

// touch marks node used now. Caller must hold m.mu.
func (m *TTLMap[K, V]) touch(node *lruNode[K, V]) {
	node.used = m.now()
	m.order.MoveToFront(node)
}

// set inserts or replaces key. Caller must hold m.mu.
func (m *TTLMap[K, V]) set(key K, value V) {
	if node, ok := m.entries[key]; ok {
		node.value = value
		m.touch(node)
		return
	}
	node := &lruNode[K, V]{key: key, value: value, used: m.now()}
	m.order.PushFront(node)
	m.entries[key] = node
}

func (m *TTLMap[K, V]) stale(ttl time.Duration, limit int) []lruNode[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []lruNode[K, V]
	for node := m.order.tail; node != nil; node = node.prev {
		if limit > 0 && len(out) >= limit {
			break
		}
		if now.Sub(node.used) < ttl {
			break
		}
		out = append(out, lruNode[K, V]{key: node.key, value: node.value, used: node.used})
	}
	return out
}

// Stats contains map statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries removed by Evict.
	Evictions uint64
}
