// Package cache provides a timestamped LRU map for idle eviction.
//
// # TTLMap[K, V]
//
// Every Get, Set and GetOrCreate stamps the entry with the current time and
// moves it to the front of a recency list. Entries idle for at least a TTL
// are found by walking from the back of the list, so eviction touches only
// stale entries plus one fresh one, and each call is capped by a limit.
//
//	m := cache.NewTTLMap[uint64, PipelineID](time.Now)
//	m.Set(hash, id)
//	n := m.Evict(time.Second, 256, func(hash uint64, id PipelineID) {
//	    // retire id
//	})
//
// # Thread Safety
//
// TTLMap is safe for concurrent use and must not be copied after creation
// (it contains a mutex). Callbacks passed to Evict and Clear run after the
// lock is released.
package cache
