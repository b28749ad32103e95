// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"maps"
	"slices"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// spirvCache maps an FNV-1a hash of WGSL source to compiled SPIR-V words.
// Guarded by Device.mu.
type spirvCache struct {
	words  map[uint64][]uint32
	hits   uint64
	misses uint64
}

// CreateShaderModule creates a shader module. WGSL sources are compiled to
// SPIR-V with naga unless desc.SPIRV is already set; compiled words are
// cached by source hash.
func (d *Device) CreateShaderModule(desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	words := desc.SPIRV
	if len(words) == 0 {
		if desc.WGSL == "" {
			return gpucore.InvalidID, fmt.Errorf("native: shader module %q has no source", desc.Label)
		}
		var err error
		if words, err = d.compileWGSL(desc.Label, desc.WGSL); err != nil {
			return gpucore.InvalidID, err
		}
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: desc.Label,
		Source: hal.ShaderSource{
			WGSL:  desc.WGSL,
			SPIRV: words,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module %q: %w", desc.Label, mapError(err))
	}

	id := gpucore.ShaderModuleID(d.newID())
	d.mu.Lock()
	d.shaders[id] = module
	d.mu.Unlock()
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	module, ok := d.shaders[id]
	if ok {
		delete(d.shaders, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyShaderModule(module)
	}
}

// compileWGSL returns cached SPIR-V for source or compiles it.
func (d *Device) compileWGSL(label, source string) ([]uint32, error) {
	key := sourceHash(source)

	d.mu.Lock()
	if words, ok := d.spirv.words[key]; ok {
		d.spirv.hits++
		d.mu.Unlock()
		return words, nil
	}
	d.spirv.misses++
	d.mu.Unlock()

	code, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("native: compile shader %q: %w", label, err)
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("native: compile shader %q: SPIR-V length %d is not word aligned", label, len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	d.mu.Lock()
	d.spirv.words[key] = words
	d.mu.Unlock()
	slogger().Debug("native: compiled shader", "label", label, "words", len(words))
	return words, nil
}

// ShaderCacheStats returns SPIR-V cache hits and misses.
func (d *Device) ShaderCacheStats() (hits, misses uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spirv.hits, d.spirv.misses
}

// PipelineCacheData serializes the SPIR-V cache:
//
//	uint32 entry count
//	per entry: uint64 source hash, uint32 word count, words
//
// Entries are written in hash order so equal caches serialize identically.
func (d *Device) PipelineCacheData() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := slices.Sorted(maps.Keys(d.spirv.words))
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(keys))) //nolint:gosec // G115: bounded by shader count
	for _, k := range keys {
		words := d.spirv.words[k]
		out = binary.LittleEndian.AppendUint64(out, k)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(words))) //nolint:gosec // G115: SPIR-V modules are far below 4G words
		for _, w := range words {
			out = binary.LittleEndian.AppendUint32(out, w)
		}
	}
	return out, nil
}

// LoadPipelineCacheData merges a blob produced by PipelineCacheData into the
// SPIR-V cache. A malformed blob leaves the cache unchanged.
func (d *Device) LoadPipelineCacheData(data []byte) error {
	entries, err := decodeSPIRVCache(data)
	if err != nil {
		return err
	}
	d.mu.Lock()
	maps.Copy(d.spirv.words, entries)
	d.mu.Unlock()
	slogger().Info("native: pipeline cache loaded", "shaders", len(entries))
	return nil
}

func decodeSPIRVCache(data []byte) (map[uint64][]uint32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptCache, len(data))
	}
	count := binary.LittleEndian.Uint32(data)
	data = data[4:]
	entries := make(map[uint64][]uint32, min(count, 1024))
	for i := uint32(0); i < count; i++ {
		if len(data) < 12 {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrCorruptCache, i)
		}
		key := binary.LittleEndian.Uint64(data)
		n := uint64(binary.LittleEndian.Uint32(data[8:]))
		data = data[12:]
		if uint64(len(data)) < n*4 {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrCorruptCache, i)
		}
		words := make([]uint32, n)
		for j := range words {
			words[j] = binary.LittleEndian.Uint32(data[j*4:])
		}
		data = data[n*4:]
		entries[key] = words
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptCache, len(data))
	}
	return entries, nil
}

func sourceHash(source string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return h.Sum64()
}
