// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type commandPool struct {
	label   string
	buffers map[gpucore.CommandBufferID]struct{}
}

// commandBuffer pairs a hal encoder with the buffer it last produced.
type commandBuffer struct {
	pool      gpucore.CommandPoolID
	label     string
	encoder   hal.CommandEncoder
	recording bool

	// recorded is the finished buffer, kept until reset so it outlives the
	// submission that uses it.
	recorded hal.CommandBuffer

	// pass is the open render pass, if any.
	pass hal.RenderPassEncoder
}

// CreateCommandPool creates a pool.
func (d *Device) CreateCommandPool(label string) (gpucore.CommandPoolID, error) {
	id := gpucore.CommandPoolID(d.newID())
	d.mu.Lock()
	d.pools[id] = &commandPool{label: label, buffers: make(map[gpucore.CommandBufferID]struct{})}
	d.mu.Unlock()
	return id, nil
}

// DestroyCommandPool releases a pool and every buffer still allocated from it.
func (d *Device) DestroyCommandPool(id gpucore.CommandPoolID) {
	d.mu.Lock()
	p, ok := d.pools[id]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pools, id)
	var bufs []*commandBuffer
	for bid := range p.buffers {
		bufs = append(bufs, d.buffers[bid])
		delete(d.buffers, bid)
	}
	d.mu.Unlock()

	for _, b := range bufs {
		d.releaseBuffer(b)
	}
}

// AllocateCommandBuffer allocates a primary buffer backed by its own hal
// encoder. hal has no secondary command buffers.
func (d *Device) AllocateCommandBuffer(pool gpucore.CommandPoolID, level gpucore.CommandBufferLevel, label string) (gpucore.CommandBufferID, error) {
	if level != gpucore.LevelPrimary {
		return gpucore.InvalidID, fmt.Errorf("native: %s command buffers: %w", level, gpucore.ErrUnsupported)
	}
	d.mu.Lock()
	_, ok := d.pools[pool]
	d.mu.Unlock()
	if !ok {
		return gpucore.InvalidID, unknown("command pool", uint64(pool))
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create command encoder: %w", mapError(err))
	}

	id := gpucore.CommandBufferID(d.newID())
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[pool]
	if !ok {
		encoder.Destroy()
		return gpucore.InvalidID, unknown("command pool", uint64(pool))
	}
	p.buffers[id] = struct{}{}
	d.buffers[id] = &commandBuffer{pool: pool, label: label, encoder: encoder}
	return id, nil
}

// FreeCommandBuffer returns a buffer to its pool.
func (d *Device) FreeCommandBuffer(pool gpucore.CommandPoolID, id gpucore.CommandBufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
		if p := d.pools[pool]; p != nil {
			delete(p.buffers, id)
		}
	}
	d.mu.Unlock()

	if ok {
		d.releaseBuffer(b)
	}
}

func (d *Device) releaseBuffer(b *commandBuffer) {
	d.discard(b)
	b.encoder.Destroy()
}

// discard drops recorded or in-progress commands.
func (d *Device) discard(b *commandBuffer) {
	if b.pass != nil {
		b.pass.End()
		b.pass = nil
	}
	if b.recording {
		b.encoder.DiscardEncoding()
		b.recording = false
	}
	if b.recorded != nil {
		d.device.FreeCommandBuffer(b.recorded)
		b.recorded = nil
	}
}

func (d *Device) buffer(id gpucore.CommandBufferID) (*commandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, unknown("command buffer", uint64(id))
	}
	return b, nil
}

// BeginCommandBuffer starts recording.
func (d *Device) BeginCommandBuffer(id gpucore.CommandBufferID, inheritance *gpucore.Inheritance) error {
	if inheritance != nil {
		return fmt.Errorf("native: secondary recording: %w", gpucore.ErrUnsupported)
	}
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	d.discard(b)
	if err := b.encoder.BeginEncoding(b.label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", mapError(err))
	}
	b.recording = true
	return nil
}

// EndCommandBuffer finishes recording. An open render pass is ended first.
func (d *Device) EndCommandBuffer(id gpucore.CommandBufferID) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if !b.recording {
		return fmt.Errorf("native: end buffer %d: %w", id, ErrNotRecording)
	}
	if b.pass != nil {
		b.pass.End()
		b.pass = nil
	}
	cmd, err := b.encoder.EndEncoding()
	b.recording = false
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", mapError(err))
	}
	b.recorded = cmd
	return nil
}

// ResetCommandBuffer discards recorded commands.
func (d *Device) ResetCommandBuffer(id gpucore.CommandBufferID) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	d.discard(b)
	return nil
}

// ExecuteCommands is not supported: hal has no secondary command buffers.
func (d *Device) ExecuteCommands(primary gpucore.CommandBufferID, secondaries []gpucore.CommandBufferID) error {
	return fmt.Errorf("native: execute secondary buffers: %w", gpucore.ErrUnsupported)
}

// Submit submits recorded buffers. The fence, if any, is bound to the
// returned submission index.
func (d *Device) Submit(info *gpucore.SubmitInfo) error {
	cmds := make([]hal.CommandBuffer, 0, len(info.CommandBuffers))
	for _, id := range info.CommandBuffers {
		b, err := d.buffer(id)
		if err != nil {
			return err
		}
		if b.recorded == nil {
			return fmt.Errorf("native: submit buffer %d: %w", id, ErrNotRecording)
		}
		cmds = append(cmds, b.recorded)
	}

	d.mu.Lock()
	if info.Fence != gpucore.InvalidID {
		if _, ok := d.fences[info.Fence]; !ok {
			d.mu.Unlock()
			return unknown("fence", uint64(info.Fence))
		}
	}
	d.mu.Unlock()

	index, err := d.queue.Submit(cmds)
	if err != nil {
		return fmt.Errorf("native: submit: %w", mapError(err))
	}

	d.mu.Lock()
	d.lastSubmission = max(d.lastSubmission, index)
	if f, ok := d.fences[info.Fence]; ok {
		f.signaled = false
		f.submission = index
	}
	d.mu.Unlock()
	slogger().Debug("native: submitted", "buffers", len(cmds), "index", index)
	return nil
}

// TransitionImage records a usage transition for the surface texture
// currently acquired into image. Present transitions are performed by the
// surface itself.
func (d *Device) TransitionImage(cmd gpucore.CommandBufferID, image gpucore.ImageID, from, to gpucore.ImageLayout) {
	if to == gpucore.LayoutPresentSrc {
		return
	}
	b, err := d.buffer(cmd)
	if err != nil || !b.recording {
		slogger().Warn("native: transition outside recording", "cmd", cmd, "image", image)
		return
	}
	d.mu.Lock()
	img, ok := d.images[image]
	var tex hal.Texture
	if ok && img.texture != nil {
		tex = img.texture
	}
	d.mu.Unlock()
	if tex == nil {
		slogger().Warn("native: transition of unacquired image", "image", image)
		return
	}
	b.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Range: hal.TextureRange{
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{
			OldUsage: layoutUsage(from),
			NewUsage: layoutUsage(to),
		},
	}})
}

// BeginRenderPass resolves the framebuffer's views and opens a hal pass.
func (d *Device) BeginRenderPass(cmd gpucore.CommandBufferID, info *gpucore.RenderPassBeginInfo) error {
	b, err := d.buffer(cmd)
	if err != nil {
		return err
	}
	if !b.recording || b.pass != nil {
		return fmt.Errorf("native: begin render pass on buffer %d: %w", cmd, ErrNotRecording)
	}
	desc, err := d.renderPassDescriptor(info)
	if err != nil {
		return err
	}
	b.pass = b.encoder.BeginRenderPass(desc)
	return nil
}

// EndRenderPass ends the open pass.
func (d *Device) EndRenderPass(cmd gpucore.CommandBufferID) {
	b, err := d.buffer(cmd)
	if err != nil || b.pass == nil {
		slogger().Warn("native: end render pass without pass", "cmd", cmd)
		return
	}
	b.pass.End()
	b.pass = nil
}

// BindPipeline binds a pipeline in the open pass.
func (d *Device) BindPipeline(cmd gpucore.CommandBufferID, id gpucore.PipelineID) {
	b, err := d.buffer(cmd)
	if err != nil || b.pass == nil {
		slogger().Warn("native: bind pipeline outside render pass", "cmd", cmd)
		return
	}
	d.mu.Lock()
	p, ok := d.pipelines[id]
	d.mu.Unlock()
	if !ok {
		slogger().Warn("native: bind of unknown pipeline", "pipeline", id)
		return
	}
	b.pass.SetPipeline(p.pipeline)
}

// Draw records a draw in the open pass.
func (d *Device) Draw(cmd gpucore.CommandBufferID, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	b, err := d.buffer(cmd)
	if err != nil || b.pass == nil {
		slogger().Warn("native: draw outside render pass", "cmd", cmd)
		return
	}
	b.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// layoutUsage maps an image layout to the hal texture usage it implies.
func layoutUsage(l gpucore.ImageLayout) gputypes.TextureUsage {
	switch l {
	case gpucore.LayoutColorAttachment, gpucore.LayoutDepthStencilAttachment:
		return gputypes.TextureUsageRenderAttachment
	case gpucore.LayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case gpucore.LayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case gpucore.LayoutTransferDst:
		return gputypes.TextureUsageCopyDst
	default:
		return gputypes.TextureUsageNone
	}
}
