// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resource provides descriptor-keyed caches for GPU objects that are
// expensive to build and cheap to reuse: pipelines, render passes,
// framebuffers and scratch textures.
//
// Each cache keys entries by the full descriptor encoding, logs them by its
// FNV-1a hash and creates the object on the first miss. Entries that go unused for longer than the configured TTL
// are evicted from the least recently used end, at most EvictionLimit per
// sweep. Evicted objects are never destroyed directly; they are handed to a
// Retirer (normally a frame deletion queue) so in-flight work that still
// references them completes first.
//
// Basic usage:
//
//	caches := resource.NewSet(dev, resource.Config{}, queue)
//	pipe, err := caches.Pipelines.GetOrCreate(&desc)
//	...
//	caches.DeleteUnused() // once per frame
package resource
