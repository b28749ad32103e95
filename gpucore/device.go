package gpucore

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Device abstracts the explicit graphics API used by gpuframe.
//
// Implementations are driven from a single submission goroutine; the
// frame loop never calls a Device concurrently. Resource lifecycle:
//   - Objects are created via Create* methods
//   - Objects must be explicitly destroyed via Destroy* methods
//   - Destroying an object the GPU may still reference is undefined; use a
//     deletion queue to defer destruction past the covering fence
type Device interface {
	// === Identity ===

	// Info returns adapter metadata. Used to key the persisted pipeline cache.
	Info() gputypes.AdapterInfo

	// === Synchronization ===

	// CreateFence creates a fence, optionally already signaled.
	CreateFence(signaled bool) (FenceID, error)

	// DestroyFence releases a fence.
	DestroyFence(id FenceID)

	// WaitForFence blocks until the fence signals or the timeout elapses.
	// Returns false (and nil error) on timeout.
	WaitForFence(id FenceID, timeout time.Duration) (bool, error)

	// ResetFence returns a fence to the unsignaled state.
	ResetFence(id FenceID) error

	// FenceStatus reports whether the fence is signaled without blocking.
	FenceStatus(id FenceID) (bool, error)

	// CreateSemaphore creates a binary or timeline semaphore.
	CreateSemaphore(kind SemaphoreKind) (SemaphoreID, error)

	// DestroySemaphore releases a semaphore.
	DestroySemaphore(id SemaphoreID)

	// SignalSemaphore sets a timeline semaphore's counter from the host.
	SignalSemaphore(id SemaphoreID, value uint64) error

	// WaitSemaphore blocks until a timeline semaphore reaches value.
	// Returns false on timeout.
	WaitSemaphore(id SemaphoreID, value uint64, timeout time.Duration) (bool, error)

	// SemaphoreValue returns a timeline semaphore's current counter.
	SemaphoreValue(id SemaphoreID) (uint64, error)

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error

	// === Command Recording ===

	// CreateCommandPool creates a pool command buffers are allocated from.
	CreateCommandPool(label string) (CommandPoolID, error)

	// DestroyCommandPool releases a pool and any buffers still allocated.
	DestroyCommandPool(id CommandPoolID)

	// AllocateCommandBuffer allocates a buffer from the pool.
	AllocateCommandBuffer(pool CommandPoolID, level CommandBufferLevel, label string) (CommandBufferID, error)

	// FreeCommandBuffer returns a buffer to its pool.
	FreeCommandBuffer(pool CommandPoolID, id CommandBufferID)

	// BeginCommandBuffer starts recording. inheritance is non-nil only for
	// secondary buffers.
	BeginCommandBuffer(id CommandBufferID, inheritance *Inheritance) error

	// EndCommandBuffer finishes recording.
	EndCommandBuffer(id CommandBufferID) error

	// ResetCommandBuffer discards recorded commands.
	ResetCommandBuffer(id CommandBufferID) error

	// ExecuteCommands records execution of secondary buffers into primary.
	ExecuteCommands(primary CommandBufferID, secondaries []CommandBufferID) error

	// Submit submits recorded buffers to the graphics queue.
	Submit(info *SubmitInfo) error

	// TransitionImage records a layout transition for a swapchain image.
	TransitionImage(cmd CommandBufferID, image ImageID, from, to ImageLayout)

	// BeginRenderPass starts a render pass.
	BeginRenderPass(cmd CommandBufferID, info *RenderPassBeginInfo) error

	// EndRenderPass ends the current render pass.
	EndRenderPass(cmd CommandBufferID)

	// BindPipeline binds a graphics pipeline inside a render pass.
	BindPipeline(cmd CommandBufferID, pipeline PipelineID)

	// Draw records a non-indexed draw inside a render pass.
	Draw(cmd CommandBufferID, vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// === Presentation ===

	// SurfaceCapabilities queries the window surface.
	SurfaceCapabilities() (SurfaceCapabilities, error)

	// CreateSwapchain creates a swapchain. desc.OldSwapchain, when set, is
	// retired by the new chain but must still be destroyed by the caller.
	CreateSwapchain(desc *SwapchainDescriptor) (SwapchainID, error)

	// DestroySwapchain releases a swapchain and its images.
	DestroySwapchain(id SwapchainID)

	// SwapchainImages returns the presentable images in index order.
	SwapchainImages(id SwapchainID) ([]ImageID, error)

	// CreateImageView creates a 2D color view of a swapchain image.
	CreateImageView(image ImageID, format gputypes.TextureFormat) (ImageViewID, error)

	// DestroyImageView releases a view.
	DestroyImageView(id ImageViewID)

	// AcquireNextImage acquires the next presentable image and arranges for
	// signal to be signaled when it is ready. Transient conditions are
	// reported in the status; err is reserved for hard failures.
	AcquireNextImage(swapchain SwapchainID, signal SemaphoreID, timeout time.Duration) (uint32, gputypes.SurfaceStatus, error)

	// Present queues the image for presentation after waits signal.
	Present(swapchain SwapchainID, imageIndex uint32, waits []SemaphoreID) (gputypes.SurfaceStatus, error)

	// === Resources ===

	CreateRenderPass(desc *RenderPassDescriptor) (RenderPassID, error)
	DestroyRenderPass(id RenderPassID)

	CreateFramebuffer(desc *FramebufferDescriptor) (FramebufferID, error)
	DestroyFramebuffer(id FramebufferID)

	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModuleID, error)
	DestroyShaderModule(id ShaderModuleID)

	CreatePipeline(desc *PipelineDescriptor) (PipelineID, error)
	DestroyPipeline(id PipelineID)

	// CreateTexture allocates a texture and its default view.
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// DestroyTexture releases the allocation and its default view.
	DestroyTexture(id TextureID)

	// === Pipeline Cache ===

	// PipelineCacheData serializes compiled pipeline state.
	PipelineCacheData() ([]byte, error)

	// LoadPipelineCacheData seeds compiled pipeline state from a blob
	// produced by PipelineCacheData on a compatible adapter.
	LoadPipelineCacheData(data []byte) error
}
