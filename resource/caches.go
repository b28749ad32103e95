// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"github.com/gogpu/gpuframe/deletion"
	"github.com/gogpu/gpuframe/gpucore"
)

// PipelineCache caches graphics pipelines.
type PipelineCache = Cache[gpucore.PipelineDescriptor, gpucore.PipelineID]

// RenderPassCache caches render passes.
type RenderPassCache = Cache[gpucore.RenderPassDescriptor, gpucore.RenderPassID]

// FramebufferCache caches framebuffers.
type FramebufferCache = Cache[gpucore.FramebufferDescriptor, gpucore.FramebufferID]

// TextureCache caches scratch textures together with their default views.
type TextureCache = Cache[gpucore.TextureDescriptor, gpucore.Texture]

// NewPipelineCache creates a pipeline cache.
func NewPipelineCache(dev gpucore.Device, cfg Config, r Retirer) *PipelineCache {
	return newCache("pipeline", dev, cfg, r,
		writePipelineDescriptor, HashPipelineDescriptor,
		func(d gpucore.Device, desc *gpucore.PipelineDescriptor) (gpucore.PipelineID, error) {
			return d.CreatePipeline(desc)
		},
		func(id gpucore.PipelineID) deletion.Action {
			return deletion.Destroy(deletion.KindPipeline, id)
		})
}

// NewRenderPassCache creates a render pass cache.
func NewRenderPassCache(dev gpucore.Device, cfg Config, r Retirer) *RenderPassCache {
	return newCache("render pass", dev, cfg, r,
		writeRenderPassDescriptor, HashRenderPassDescriptor,
		func(d gpucore.Device, desc *gpucore.RenderPassDescriptor) (gpucore.RenderPassID, error) {
			return d.CreateRenderPass(desc)
		},
		func(id gpucore.RenderPassID) deletion.Action {
			return deletion.Destroy(deletion.KindRenderPass, id)
		})
}

// NewFramebufferCache creates a framebuffer cache.
func NewFramebufferCache(dev gpucore.Device, cfg Config, r Retirer) *FramebufferCache {
	return newCache("framebuffer", dev, cfg, r,
		writeFramebufferDescriptor, HashFramebufferDescriptor,
		func(d gpucore.Device, desc *gpucore.FramebufferDescriptor) (gpucore.FramebufferID, error) {
			return d.CreateFramebuffer(desc)
		},
		func(id gpucore.FramebufferID) deletion.Action {
			return deletion.Destroy(deletion.KindFramebuffer, id)
		})
}

// NewTextureCache creates a texture cache.
func NewTextureCache(dev gpucore.Device, cfg Config, r Retirer) *TextureCache {
	return newCache("texture", dev, cfg, r,
		writeTextureDescriptor, HashTextureDescriptor,
		func(d gpucore.Device, desc *gpucore.TextureDescriptor) (gpucore.Texture, error) {
			return d.CreateTexture(desc)
		},
		func(t gpucore.Texture) deletion.Action {
			return deletion.Destroy(deletion.KindTexture, t.ID)
		})
}

// Set groups the four caches a renderer needs.
//
// Retired objects are destroyed in reverse order by a deletion queue, so Set
// retires render passes and textures before the pipelines and framebuffers
// that reference them.
type Set struct {
	Pipelines    *PipelineCache
	RenderPasses *RenderPassCache
	Framebuffers *FramebufferCache
	Textures     *TextureCache
}

// NewSet creates all caches with a shared config and retirer.
func NewSet(dev gpucore.Device, cfg Config, r Retirer) *Set {
	return &Set{
		Pipelines:    NewPipelineCache(dev, cfg, r),
		RenderPasses: NewRenderPassCache(dev, cfg, r),
		Framebuffers: NewFramebufferCache(dev, cfg, r),
		Textures:     NewTextureCache(dev, cfg, r),
	}
}

// DeleteUnused runs one eviction sweep over every cache.
func (s *Set) DeleteUnused() int {
	return s.RenderPasses.DeleteUnusedCache() +
		s.Textures.DeleteUnusedCache() +
		s.Pipelines.DeleteUnusedCache() +
		s.Framebuffers.DeleteUnusedCache()
}

// Clear retires every cached object.
func (s *Set) Clear() int {
	return s.RenderPasses.ClearCache() +
		s.Textures.ClearCache() +
		s.Pipelines.ClearCache() +
		s.Framebuffers.ClearCache()
}

// Stats returns per-cache statistics.
func (s *Set) Stats() []Stats {
	return []Stats{
		s.Pipelines.Stats(),
		s.RenderPasses.Stats(),
		s.Framebuffers.Stats(),
		s.Textures.Stats(),
	}
}
