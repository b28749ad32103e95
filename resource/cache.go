// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gogpu/gpuframe/deletion"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/cache"
)

// Default cache tuning.
const (
	// DefaultTTL is how long an entry may go unused before eviction.
	DefaultTTL = time.Second

	// DefaultEvictionLimit caps evictions per sweep.
	DefaultEvictionLimit = 256
)

// ErrNilDevice is returned when a cache is built without a device.
var ErrNilDevice = errors.New("resource: nil device")

// Config tunes eviction. Zero fields take defaults.
type Config struct {
	// TTL is the idle time after which an entry becomes evictable.
	TTL time.Duration

	// EvictionLimit is the maximum number of entries removed per
	// DeleteUnusedCache call.
	EvictionLimit int

	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.EvictionLimit <= 0 {
		c.EvictionLimit = DefaultEvictionLimit
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Retirer accepts objects that left a cache and must be destroyed once the
// GPU no longer uses them.
type Retirer interface {
	Retire(deletion.Action)
}

// RetireFunc adapts a function to the Retirer interface.
type RetireFunc func(deletion.Action)

// Retire calls f(a).
func (f RetireFunc) Retire(a deletion.Action) { f(a) }

// Stats contains cache statistics.
type Stats struct {
	Name      string
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Cache maps descriptors of type D to device objects of type V.
//
// Entries are keyed by the full canonical encoding of the descriptor; the
// 64-bit hash only labels log lines, so two descriptors with equal hashes
// still get distinct objects.
//
// Cache is safe for concurrent use.
type Cache[D any, V any] struct {
	name    string
	dev     gpucore.Device
	cfg     Config
	entries *cache.TTLMap[string, V]
	retirer Retirer

	write  func(io.Writer, *D)
	hash   func(*D) uint64
	create func(gpucore.Device, *D) (V, error)
	retire func(V) deletion.Action
}

func newCache[D any, V any](
	name string,
	dev gpucore.Device,
	cfg Config,
	retirer Retirer,
	write func(io.Writer, *D),
	hash func(*D) uint64,
	create func(gpucore.Device, *D) (V, error),
	retire func(V) deletion.Action,
) *Cache[D, V] {
	cfg = cfg.withDefaults()
	return &Cache[D, V]{
		name:    name,
		dev:     dev,
		cfg:     cfg,
		entries: cache.NewTTLMap[string, V](cfg.Now),
		retirer: retirer,
		write:   write,
		hash:    hash,
		create:  create,
		retire:  retire,
	}
}

// Name returns the cache name used in logs and stats.
func (c *Cache[D, V]) Name() string { return c.name }

// GetOrCreate returns the object for desc, creating it on a miss.
// On failure nothing is cached and the zero value is returned together with
// the wrapped device error.
func (c *Cache[D, V]) GetOrCreate(desc *D) (V, error) {
	v, hit, err := c.entries.GetOrCreate(c.key(desc), func() (V, error) {
		return c.create(c.dev, desc)
	})
	if err != nil {
		slogger().Warn("resource: create failed", "cache", c.name, "hash", c.hash(desc), "err", err)
		var zero V
		return zero, fmt.Errorf("resource: create %s: %w", c.name, err)
	}
	if !hit {
		slogger().Debug("resource: created", "cache", c.name, "hash", c.hash(desc))
	}
	return v, nil
}

// Lookup returns the object for desc without creating it or marking it used.
func (c *Cache[D, V]) Lookup(desc *D) (V, bool) {
	return c.entries.Peek(c.key(desc))
}

// Forget removes the entry for desc and retires its object.
func (c *Cache[D, V]) Forget(desc *D) bool {
	v, ok := c.entries.Delete(c.key(desc))
	if ok {
		c.retireValue(v)
	}
	return ok
}

// DeleteUnusedCache retires entries idle for at least the TTL, oldest first,
// up to the eviction limit. Returns how many were retired.
func (c *Cache[D, V]) DeleteUnusedCache() int {
	n := c.entries.Evict(c.cfg.TTL, c.cfg.EvictionLimit, func(_ string, v V) {
		c.retireValue(v)
	})
	if n > 0 {
		slogger().Debug("resource: evicted", "cache", c.name, "count", n)
	}
	return n
}

// ClearCache retires every entry.
func (c *Cache[D, V]) ClearCache() int {
	return c.entries.Clear(func(_ string, v V) {
		c.retireValue(v)
	})
}

func (c *Cache[D, V]) key(desc *D) string {
	return descriptorKey(desc, c.write)
}

// Len returns the number of cached objects.
func (c *Cache[D, V]) Len() int { return c.entries.Len() }

// Stats returns cache statistics.
func (c *Cache[D, V]) Stats() Stats {
	s := c.entries.Stats()
	return Stats{
		Name:      c.name,
		Entries:   s.Len,
		Hits:      s.Hits,
		Misses:    s.Misses,
		Evictions: s.Evictions,
		HitRate:   s.HitRate,
	}
}

// retireValue hands v to the retirer, or destroys it at once when the cache
// has none.
func (c *Cache[D, V]) retireValue(v V) {
	a := c.retire(v).WithLabel(c.name)
	if c.retirer != nil {
		c.retirer.Retire(a)
		return
	}
	if err := a.Run(c.dev); err != nil {
		slogger().Warn("resource: destroy failed", "cache", c.name, "action", a.String(), "err", err)
	}
}
