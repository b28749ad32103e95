// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"math"
	"strings"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
)

// HashPipelineDescriptor computes an FNV-1a hash over every field that
// defines a graphics pipeline:
//   - Render pass
//   - Shader modules and entry points
//   - Vertex buffer layouts and attributes
//   - Primitive topology and rasterization state
//   - Color and depth formats, depth state
//   - Blend state
//   - Sample count
func HashPipelineDescriptor(desc *gpucore.PipelineDescriptor) uint64 {
	return descriptorHash(desc, writePipelineDescriptor)
}

// HashRenderPassDescriptor computes an FNV-1a hash over attachment formats,
// sample counts, load/store ops and final layouts.
func HashRenderPassDescriptor(desc *gpucore.RenderPassDescriptor) uint64 {
	return descriptorHash(desc, writeRenderPassDescriptor)
}

// HashFramebufferDescriptor computes an FNV-1a hash over the render pass,
// attachment views, dimensions and debug label.
func HashFramebufferDescriptor(desc *gpucore.FramebufferDescriptor) uint64 {
	return descriptorHash(desc, writeFramebufferDescriptor)
}

// HashTextureDescriptor computes an FNV-1a hash over size, format, usage,
// mip and sample counts and debug label.
func HashTextureDescriptor(desc *gpucore.TextureDescriptor) uint64 {
	return descriptorHash(desc, writeTextureDescriptor)
}

func descriptorHash[D any](desc *D, write func(io.Writer, *D)) uint64 {
	h := fnv.New64a()
	write(h, desc)
	return h.Sum64()
}

// descriptorKey returns the canonical encoding hashed by descriptorHash.
// Two descriptors share a key only if every hashed field is equal.
func descriptorKey[D any](desc *D, write func(io.Writer, *D)) string {
	var b strings.Builder
	write(&b, desc)
	return b.String()
}

func writePipelineDescriptor(h io.Writer, desc *gpucore.PipelineDescriptor) {
	hashWriteUint64(h, uint64(desc.RenderPass))

	hashWriteUint64(h, uint64(desc.VertexShader))
	hashWriteString(h, desc.VertexEntryPoint)
	hashWriteUint64(h, uint64(desc.FragmentShader))
	hashWriteString(h, desc.FragmentEntryPoint)

	//nolint:gosec // G115: vertex buffer count is bounded by GPU limits (< 16)
	hashWriteUint32(h, uint32(len(desc.VertexBuffers)))
	for i := range desc.VertexBuffers {
		layout := &desc.VertexBuffers[i]
		hashWriteUint64(h, layout.ArrayStride)
		hashWriteUint32(h, uint32(layout.StepMode))
		//nolint:gosec // G115: attribute count is bounded by GPU limits (< 32)
		hashWriteUint32(h, uint32(len(layout.Attributes)))
		for j := range layout.Attributes {
			attr := &layout.Attributes[j]
			hashWriteUint32(h, attr.ShaderLocation)
			hashWriteUint32(h, uint32(attr.Format))
			hashWriteUint64(h, attr.Offset)
		}
	}

	hashWriteUint32(h, uint32(desc.Topology))
	hashWriteUint32(h, uint32(desc.FrontFace))
	hashWriteUint32(h, uint32(desc.CullMode))
	hashWriteUint32(h, math.Float32bits(desc.LineWidth))

	//nolint:gosec // G115: color target count is bounded by GPU limits (< 8)
	hashWriteUint32(h, uint32(len(desc.ColorFormats)))
	for _, f := range desc.ColorFormats {
		hashWriteUint32(h, uint32(f))
	}
	hashWriteUint32(h, uint32(desc.DepthFormat))
	hashWriteBool(h, desc.DepthWriteEnabled)
	hashWriteUint32(h, uint32(desc.DepthCompare))

	hashWriteBlend(h, desc.Blend)
	hashWriteUint32(h, desc.SampleCount)
}

func writeRenderPassDescriptor(h io.Writer, desc *gpucore.RenderPassDescriptor) {
	//nolint:gosec // G115: attachment count is bounded by GPU limits (< 8)
	hashWriteUint32(h, uint32(len(desc.ColorAttachments)))
	for i := range desc.ColorAttachments {
		hashWriteAttachment(h, &desc.ColorAttachments[i])
	}
	if desc.DepthStencil != nil {
		hashWriteBool(h, true)
		hashWriteAttachment(h, desc.DepthStencil)
	} else {
		hashWriteBool(h, false)
	}
	hashWriteBool(h, desc.Resolve)
	hashWriteBool(h, desc.SwapchainTarget)
}

func writeFramebufferDescriptor(h io.Writer, desc *gpucore.FramebufferDescriptor) {
	hashWriteString(h, desc.Label)
	hashWriteUint64(h, uint64(desc.RenderPass))
	//nolint:gosec // G115: attachment count is bounded by GPU limits
	hashWriteUint32(h, uint32(len(desc.Attachments)))
	for _, v := range desc.Attachments {
		hashWriteUint64(h, uint64(v))
	}
	hashWriteUint32(h, desc.Width)
	hashWriteUint32(h, desc.Height)
	hashWriteUint32(h, max(desc.Layers, 1))
}

func writeTextureDescriptor(h io.Writer, desc *gpucore.TextureDescriptor) {
	hashWriteString(h, desc.Label)
	hashWriteUint32(h, desc.Width)
	hashWriteUint32(h, desc.Height)
	hashWriteUint32(h, max(desc.MipLevels, 1))
	hashWriteUint32(h, max(desc.SampleCount, 1))
	hashWriteUint32(h, uint32(desc.Format))
	hashWriteUint64(h, uint64(desc.Usage))
}

func hashWriteAttachment(h io.Writer, a *gpucore.AttachmentDescriptor) {
	hashWriteUint32(h, uint32(a.Format))
	hashWriteUint32(h, max(a.Samples, 1))
	hashWriteUint32(h, uint32(a.LoadOp))
	hashWriteUint32(h, uint32(a.StoreOp))
	hashWriteUint32(h, uint32(a.FinalLayout))
}

func hashWriteBlend(h io.Writer, b *gputypes.BlendState) {
	if b == nil {
		hashWriteBool(h, false)
		return
	}
	hashWriteBool(h, true)
	hashWriteUint32(h, uint32(b.Color.SrcFactor))
	hashWriteUint32(h, uint32(b.Color.DstFactor))
	hashWriteUint32(h, uint32(b.Color.Operation))
	hashWriteUint32(h, uint32(b.Alpha.SrcFactor))
	hashWriteUint32(h, uint32(b.Alpha.DstFactor))
	hashWriteUint32(h, uint32(b.Alpha.Operation))
}

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h io.Writer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteUint64 writes a uint64 to the hash.
func hashWriteUint64(h io.Writer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteString writes a length-prefixed string to the hash.
//
//nolint:gosec // G115: labels and entry point names are short
func hashWriteString(h io.Writer, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}

// hashWriteBool writes a bool to the hash.
func hashWriteBool(h io.Writer, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
