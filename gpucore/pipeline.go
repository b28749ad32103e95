package gpucore

import "github.com/gogpu/gputypes"

// Descriptors
//
// Descriptors carry every field that defines an object's identity.
// The resource caches hash exactly these fields, so two descriptors with
// equal fields always resolve to the same cached object.

// AttachmentDescriptor describes one render pass attachment.
type AttachmentDescriptor struct {
	// Format is the attachment texture format.
	Format gputypes.TextureFormat

	// Samples is the sample count (1 for non-MSAA).
	Samples uint32

	// LoadOp and StoreOp control how contents are read and written back.
	LoadOp  gputypes.LoadOp
	StoreOp gputypes.StoreOp

	// FinalLayout is the layout the attachment is left in after the pass.
	FinalLayout ImageLayout
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	// Label is an optional debug name.
	Label string

	// ColorAttachments are the color targets, in location order.
	ColorAttachments []AttachmentDescriptor

	// DepthStencil is the optional depth/stencil attachment.
	DepthStencil *AttachmentDescriptor

	// Resolve adds an MSAA resolve target for each color attachment.
	Resolve bool

	// SwapchainTarget marks passes that render straight into a swapchain
	// image; their final color layout is LayoutPresentSrc.
	SwapchainTarget bool
}

// FramebufferDescriptor describes a framebuffer.
type FramebufferDescriptor struct {
	// Label is an optional debug name. It is part of the identity.
	Label string

	// RenderPass is the pass the framebuffer is compatible with.
	RenderPass RenderPassID

	// Attachments are image views in render pass attachment order: color
	// attachments first, then the depth-stencil attachment if the pass has
	// one, then one resolve target per color attachment if the pass
	// resolves.
	Attachments []ImageViewID

	// Width and Height are the framebuffer dimensions.
	Width  uint32
	Height uint32

	// Layers is the array layer count. Zero means 1.
	Layers uint32
}

// PipelineDescriptor describes a graphics pipeline.
type PipelineDescriptor struct {
	// Label is an optional debug name.
	Label string

	// RenderPass is the pass the pipeline renders in.
	RenderPass RenderPassID

	// VertexShader and FragmentShader are compiled modules.
	VertexShader       ShaderModuleID
	VertexEntryPoint   string
	FragmentShader     ShaderModuleID
	FragmentEntryPoint string

	// VertexBuffers describes the vertex input layout.
	VertexBuffers []gputypes.VertexBufferLayout

	// Primitive and rasterization state.
	Topology  gputypes.PrimitiveTopology
	FrontFace gputypes.FrontFace
	CullMode  gputypes.CullMode
	LineWidth float32

	// ColorFormats are the color target formats.
	ColorFormats []gputypes.TextureFormat

	// DepthFormat is the depth target format, or TextureFormatUndefined.
	DepthFormat       gputypes.TextureFormat
	DepthWriteEnabled bool
	DepthCompare      gputypes.CompareFunction

	// Blend is the color blend state. Nil means replace.
	Blend *gputypes.BlendState

	// SampleCount is the number of samples per pixel.
	SampleCount uint32
}

// TextureDescriptor describes a 2D texture with a default view.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	Width  uint32
	Height uint32

	// MipLevels is the mip count. Zero means 1.
	MipLevels uint32

	// SampleCount is the sample count. Zero means 1.
	SampleCount uint32

	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// Texture is a texture allocation together with its default view.
type Texture struct {
	ID     TextureID
	View   ImageViewID
	Format gputypes.TextureFormat
	Width  uint32
	Height uint32
}

// Valid reports whether the texture names a live allocation.
func (t Texture) Valid() bool {
	return t.ID != InvalidID
}

// ShaderModuleDescriptor describes a shader module from WGSL source or
// SPIR-V words. SPIRV takes precedence when both are set.
type ShaderModuleDescriptor struct {
	Label string
	WGSL  string
	SPIRV []uint32
}

// SwapchainDescriptor configures a swapchain.
type SwapchainDescriptor struct {
	Width       uint32
	Height      uint32
	ImageCount  uint32
	Format      gputypes.TextureFormat
	PresentMode gputypes.PresentMode
	AlphaMode   gputypes.CompositeAlphaMode
	Usage       gputypes.TextureUsage

	// OldSwapchain is handed to the driver so in-flight presentation of
	// the previous chain can retire cleanly. InvalidID on first creation.
	OldSwapchain SwapchainID
}

// SurfaceCapabilities reports what a surface supports.
type SurfaceCapabilities struct {
	Formats      []gputypes.TextureFormat
	PresentModes []gputypes.PresentMode
	AlphaModes   []gputypes.CompositeAlphaMode

	// MinImageCount and MaxImageCount bound the swapchain length.
	// MaxImageCount of zero means no upper limit.
	MinImageCount uint32
	MaxImageCount uint32

	// CurrentExtent is the surface size, or UndefinedExtent in both
	// dimensions when the swapchain decides.
	CurrentExtent Extent2D
	MinExtent     Extent2D
	MaxExtent     Extent2D
}

// RenderPassBeginInfo starts a render pass on a command buffer.
type RenderPassBeginInfo struct {
	RenderPass  RenderPassID
	Framebuffer FramebufferID
	Width       uint32
	Height      uint32
	ClearColor  gputypes.Color
	ClearDepth  float32
}
