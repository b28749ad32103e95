package gpucore

import (
	"math"
	"time"
)

// Resource IDs
//
// These opaque IDs represent GPU objects. Each Device implementation
// maintains a mapping between IDs and actual backend objects.

// FenceID is an opaque handle to a CPU-observable fence.
type FenceID uint64

// SemaphoreID is an opaque handle to a GPU-side semaphore.
type SemaphoreID uint64

// CommandPoolID is an opaque handle to a command pool.
type CommandPoolID uint64

// CommandBufferID is an opaque handle to a command buffer.
type CommandBufferID uint64

// SwapchainID is an opaque handle to a swapchain.
type SwapchainID uint64

// ImageID is an opaque handle to a swapchain image.
type ImageID uint64

// ImageViewID is an opaque handle to an image view.
type ImageViewID uint64

// RenderPassID is an opaque handle to a render pass.
type RenderPassID uint64

// FramebufferID is an opaque handle to a framebuffer.
type FramebufferID uint64

// PipelineID is an opaque handle to a graphics pipeline.
type PipelineID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// TextureID is an opaque handle to a texture allocation.
type TextureID uint64

// InvalidID is the zero value, representing an invalid/null object.
const InvalidID = 0

// Infinite is the timeout meaning "wait until signaled".
const Infinite time.Duration = math.MaxInt64

// Extent2D is a width/height pair in physical pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// UndefinedExtent marks a surface whose size is decided by the swapchain
// rather than by the window system.
const UndefinedExtent = math.MaxUint32

// SemaphoreKind selects binary or timeline semaphore semantics.
type SemaphoreKind uint8

// Semaphore kinds.
const (
	// SemaphoreBinary is a single-use signal/wait pair.
	SemaphoreBinary SemaphoreKind = iota

	// SemaphoreTimeline carries a monotonically increasing counter.
	SemaphoreTimeline
)

// String returns the kind name.
func (k SemaphoreKind) String() string {
	switch k {
	case SemaphoreBinary:
		return "Binary"
	case SemaphoreTimeline:
		return "Timeline"
	default:
		return "Unknown"
	}
}

// CommandBufferLevel selects primary or secondary command buffers.
type CommandBufferLevel uint8

// Command buffer levels.
const (
	// LevelPrimary buffers are submitted to a queue.
	LevelPrimary CommandBufferLevel = iota

	// LevelSecondary buffers are executed from a primary buffer.
	LevelSecondary
)

// String returns the level name.
func (l CommandBufferLevel) String() string {
	if l == LevelSecondary {
		return "Secondary"
	}
	return "Primary"
}

// ImageLayout is the access layout an image is transitioned into.
type ImageLayout uint8

// Image layouts.
const (
	LayoutUndefined ImageLayout = iota
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresentSrc
)

// String returns the layout name.
func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutColorAttachment:
		return "ColorAttachment"
	case LayoutDepthStencilAttachment:
		return "DepthStencilAttachment"
	case LayoutShaderReadOnly:
		return "ShaderReadOnly"
	case LayoutTransferSrc:
		return "TransferSrc"
	case LayoutTransferDst:
		return "TransferDst"
	case LayoutPresentSrc:
		return "PresentSrc"
	default:
		return "Unknown"
	}
}

// PipelineStage is a bitmask of pipeline stages a submission waits at.
type PipelineStage uint32

// Pipeline stages.
const (
	StageTopOfPipe             PipelineStage = 1 << 0
	StageVertexShader          PipelineStage = 1 << 1
	StageFragmentShader        PipelineStage = 1 << 2
	StageColorAttachmentOutput PipelineStage = 1 << 3
	StageTransfer              PipelineStage = 1 << 4
	StageBottomOfPipe          PipelineStage = 1 << 5
)

// SubmitInfo describes a single queue submission.
type SubmitInfo struct {
	// CommandBuffers are executed in order.
	CommandBuffers []CommandBufferID

	// WaitSemaphore is waited on at WaitStage before execution.
	// InvalidID means no wait.
	WaitSemaphore SemaphoreID
	WaitStage     PipelineStage

	// SignalSemaphore is signaled when execution completes.
	// InvalidID means no signal.
	SignalSemaphore SemaphoreID

	// Fence is signaled when execution completes. InvalidID means none.
	Fence FenceID
}

// Inheritance carries the render pass context a secondary command buffer
// records against.
type Inheritance struct {
	RenderPass  RenderPassID
	Framebuffer FramebufferID
	Subpass     uint32
}
