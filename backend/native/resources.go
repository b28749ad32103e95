// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// imageView is either a view of a swapchain slot (image set) or the default
// view of a texture (view and owner set).
type imageView struct {
	image  gpucore.ImageID
	format gputypes.TextureFormat
	view   hal.TextureView
	owner  gpucore.TextureID
}

type texture struct {
	texture hal.Texture
	view    gpucore.ImageViewID
}

type pipeline struct {
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

// === Render passes and framebuffers ===

// CreateRenderPass records the pass description. hal builds passes at
// record time, so no driver object exists.
func (d *Device) CreateRenderPass(desc *gpucore.RenderPassDescriptor) (gpucore.RenderPassID, error) {
	if len(desc.ColorAttachments) == 0 && desc.DepthStencil == nil {
		return gpucore.InvalidID, fmt.Errorf("native: render pass %q has no attachments", desc.Label)
	}
	stored := *desc
	stored.ColorAttachments = slices.Clone(desc.ColorAttachments)
	if desc.DepthStencil != nil {
		ds := *desc.DepthStencil
		stored.DepthStencil = &ds
	}
	id := gpucore.RenderPassID(d.newID())
	d.mu.Lock()
	d.renderPasses[id] = stored
	d.mu.Unlock()
	return id, nil
}

// DestroyRenderPass forgets a render pass.
func (d *Device) DestroyRenderPass(id gpucore.RenderPassID) {
	d.mu.Lock()
	delete(d.renderPasses, id)
	d.mu.Unlock()
}

// CreateFramebuffer records the attachment views for a render pass.
func (d *Device) CreateFramebuffer(desc *gpucore.FramebufferDescriptor) (gpucore.FramebufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rp, ok := d.renderPasses[desc.RenderPass]
	if !ok {
		return gpucore.InvalidID, unknown("render pass", uint64(desc.RenderPass))
	}
	if want := attachmentCount(&rp); len(desc.Attachments) != want {
		return gpucore.InvalidID, fmt.Errorf("native: framebuffer %q has %d attachments, render pass needs %d",
			desc.Label, len(desc.Attachments), want)
	}
	for _, v := range desc.Attachments {
		if _, ok := d.views[v]; !ok {
			return gpucore.InvalidID, unknown("image view", uint64(v))
		}
	}
	stored := *desc
	stored.Attachments = slices.Clone(desc.Attachments)
	id := gpucore.FramebufferID(d.newID())
	d.framebuffers[id] = stored
	return id, nil
}

// DestroyFramebuffer forgets a framebuffer.
func (d *Device) DestroyFramebuffer(id gpucore.FramebufferID) {
	d.mu.Lock()
	delete(d.framebuffers, id)
	d.mu.Unlock()
}

func attachmentCount(rp *gpucore.RenderPassDescriptor) int {
	n := len(rp.ColorAttachments)
	if rp.DepthStencil != nil {
		n++
	}
	if rp.Resolve {
		n += len(rp.ColorAttachments)
	}
	return n
}

// renderPassDescriptor resolves a begin request into hal attachments.
func (d *Device) renderPassDescriptor(info *gpucore.RenderPassBeginInfo) (*hal.RenderPassDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rp, ok := d.renderPasses[info.RenderPass]
	if !ok {
		return nil, unknown("render pass", uint64(info.RenderPass))
	}
	fb, ok := d.framebuffers[info.Framebuffer]
	if !ok {
		return nil, unknown("framebuffer", uint64(info.Framebuffer))
	}

	view := func(i int) (hal.TextureView, error) {
		v, ok := d.views[fb.Attachments[i]]
		if !ok {
			return nil, unknown("image view", uint64(fb.Attachments[i]))
		}
		if v.image == gpucore.InvalidID {
			return v.view, nil
		}
		img, ok := d.images[v.image]
		if !ok || img.view == nil {
			return nil, fmt.Errorf("native: swapchain image %d is not acquired", v.image)
		}
		return img.view, nil
	}

	desc := &hal.RenderPassDescriptor{Label: rp.Label}
	colors := len(rp.ColorAttachments)
	resolveBase := colors
	if rp.DepthStencil != nil {
		resolveBase++
	}
	for i, a := range rp.ColorAttachments {
		v, err := view(i)
		if err != nil {
			return nil, err
		}
		att := hal.RenderPassColorAttachment{
			View:       v,
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: info.ClearColor,
		}
		if rp.Resolve {
			if att.ResolveTarget, err = view(resolveBase + i); err != nil {
				return nil, err
			}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, att)
	}
	if ds := rp.DepthStencil; ds != nil {
		v, err := view(colors)
		if err != nil {
			return nil, err
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            v,
			DepthLoadOp:     ds.LoadOp,
			DepthStoreOp:    ds.StoreOp,
			DepthClearValue: info.ClearDepth,
			StencilLoadOp:   gputypes.LoadOpClear,
			StencilStoreOp:  gputypes.StoreOpDiscard,
		}
	}
	return desc, nil
}

// === Pipelines ===

// CreatePipeline creates a render pipeline with an empty layout.
// LineWidth is not supported by hal and is ignored.
func (d *Device) CreatePipeline(desc *gpucore.PipelineDescriptor) (gpucore.PipelineID, error) {
	d.mu.Lock()
	vs, ok := d.shaders[desc.VertexShader]
	fs := d.shaders[desc.FragmentShader]
	_, rpOK := d.renderPasses[desc.RenderPass]
	d.mu.Unlock()
	if !ok {
		return gpucore.InvalidID, unknown("shader module", uint64(desc.VertexShader))
	}
	if !rpOK {
		return gpucore.InvalidID, unknown("render pass", uint64(desc.RenderPass))
	}

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: desc.Label})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout: %w", mapError(err))
	}

	multisample := gputypes.DefaultMultisampleState()
	multisample.Count = max(desc.SampleCount, 1)

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: multisample,
	}
	if fs != nil {
		targets := make([]gputypes.ColorTargetState, len(desc.ColorFormats))
		for i, f := range desc.ColorFormats {
			targets[i] = gputypes.ColorTargetState{
				Format:    f,
				Blend:     desc.Blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}
		}
		halDesc.Fragment = &hal.FragmentState{
			Module:     fs,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    targets,
		}
	}
	if desc.DepthFormat != gputypes.TextureFormatUndefined {
		halDesc.DepthStencil = &hal.DepthStencilState{
			Format:            desc.DepthFormat,
			DepthWriteEnabled: desc.DepthWriteEnabled,
			DepthCompare:      desc.DepthCompare,
			StencilReadMask:   0xFFFFFFFF,
			StencilWriteMask:  0xFFFFFFFF,
		}
	}

	rp, err := d.device.CreateRenderPipeline(halDesc)
	if err != nil {
		d.device.DestroyPipelineLayout(layout)
		return gpucore.InvalidID, fmt.Errorf("native: create render pipeline %q: %w", desc.Label, mapError(err))
	}

	id := gpucore.PipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = &pipeline{layout: layout, pipeline: rp}
	d.mu.Unlock()
	return id, nil
}

// DestroyPipeline releases a pipeline and its layout.
func (d *Device) DestroyPipeline(id gpucore.PipelineID) {
	d.mu.Lock()
	p, ok := d.pipelines[id]
	if ok {
		delete(d.pipelines, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyRenderPipeline(p.pipeline)
		d.device.DestroyPipelineLayout(p.layout)
	}
}

// === Textures ===

// CreateTexture allocates a 2D texture and its default view.
func (d *Device) CreateTexture(desc *gpucore.TextureDescriptor) (gpucore.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.Texture{}, fmt.Errorf("native: texture %q has zero size", desc.Label)
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: max(desc.MipLevels, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return gpucore.Texture{}, fmt.Errorf("native: create texture %q: %w", desc.Label, mapError(err))
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:     desc.Label,
		Format:    desc.Format,
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return gpucore.Texture{}, fmt.Errorf("native: create texture view %q: %w", desc.Label, mapError(err))
	}

	id := gpucore.TextureID(d.newID())
	viewID := gpucore.ImageViewID(d.newID())
	d.mu.Lock()
	d.textures[id] = &texture{texture: tex, view: viewID}
	d.views[viewID] = &imageView{format: desc.Format, view: view, owner: id}
	d.mu.Unlock()

	return gpucore.Texture{
		ID:     id,
		View:   viewID,
		Format: desc.Format,
		Width:  desc.Width,
		Height: desc.Height,
	}, nil
}

// DestroyTexture releases a texture and its default view.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	t, ok := d.textures[id]
	var view *imageView
	if ok {
		delete(d.textures, id)
		view = d.views[t.view]
		delete(d.views, t.view)
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	if view != nil {
		d.device.DestroyTextureView(view.view)
	}
	d.device.DestroyTexture(t.texture)
}
