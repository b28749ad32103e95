// Command framedemo runs the gpuframe frame loop against a native backend.
//
// Without a window it uses the empty backend, which completes every
// submission immediately, so the loop exercises synchronization, resize
// handling and cache eviction end to end.
package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpuframe"
	"github.com/gogpu/gpuframe/backend/native"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"

	_ "github.com/gogpu/wgpu/hal/noop"
)

const triangleWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(0.0, 0.5),
        vec2<f32>(-0.5, -0.5),
        vec2<f32>(0.5, -0.5),
    );
    return vec4<f32>(pos[i], 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.5, 0.2, 1.0);
}
`

func main() {
	var (
		backend  = flag.String("backend", native.BackendEmpty, "backend name (vulkan, metal, dx12, gl, empty)")
		frames   = flag.Int("frames", 120, "number of frames to run")
		inFlight = flag.Int("in-flight", gpuframe.DefaultFramesInFlight, "frames in flight (1-3)")
		width    = flag.Int("width", 800, "window width")
		height   = flag.Int("height", 600, "window height")
		resize   = flag.Int("resize-at", 60, "frame at which to simulate a window resize (0 disables)")
		vsync    = flag.Bool("vsync", true, "enable vsync")
		cache    = flag.String("pipeline-cache", "", "pipeline cache file (default: user cache dir)")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		gpuframe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	dev, err := native.Open(native.Options{Backend: *backend})
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	window := &gpucontext.NullWindowProvider{W: *width, H: *height, SF: 1}
	opts := []gpuframe.ContextOption{
		gpuframe.WithFramesInFlight(*inFlight),
		gpuframe.WithVSync(*vsync),
	}
	if *cache != "" {
		opts = append(opts, gpuframe.WithPipelineCacheFile(*cache))
	}
	ctx, err := gpuframe.NewContext(dev, window, opts...)
	if err != nil {
		log.Fatalf("Failed to create context: %v", err)
	}

	shader, err := dev.CreateShaderModule(&gpucore.ShaderModuleDescriptor{Label: "triangle", WGSL: triangleWGSL})
	if err != nil {
		log.Fatalf("Failed to compile shader: %v", err)
	}

	ctx.AddResizeCallback(func(w, h uint32) {
		log.Printf("Swapchain resized to %dx%d", w, h)
	})

	start := time.Now()
	for i := 1; i <= *frames; i++ {
		if i == *resize {
			window.W, window.H = *width/2, *height/2
			ctx.RequestResize(uint32(window.W), uint32(window.H)) //nolint:gosec // G115: flag values are small
		}
		switch err := ctx.BeginFrame(); {
		case err == nil:
			if err := drawFrame(ctx, shader); err != nil {
				log.Fatalf("Frame %d: %v", i, err)
			}
			if err := ctx.EndFrame(); err != nil {
				log.Fatalf("Frame %d: %v", i, err)
			}
		case !errors.Is(err, gpuframe.ErrFrameSkipped):
			log.Fatalf("Frame %d: %v", i, err)
		}
		if err := ctx.SwapBuffer(); err != nil {
			log.Fatalf("Frame %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	stats := ctx.Stats()
	if err := ctx.Shutdown(); err != nil {
		log.Printf("Shutdown: %v", err)
	}
	dev.DestroyShaderModule(shader)

	log.Printf("%d frames (%d skipped) in %v, %d swapchain recreations",
		stats.Frames, stats.Skipped, elapsed, stats.Recreations)
	for _, s := range stats.Caches {
		log.Printf("  %-14s len=%d hits=%d misses=%d evictions=%d", s.Name, s.Entries, s.Hits, s.Misses, s.Evictions)
	}
}

// drawFrame records a single triangle into the acquired swapchain image.
func drawFrame(ctx *gpuframe.Context, shader gpucore.ShaderModuleID) error {
	img, ok := ctx.CurrentImage()
	if !ok {
		return errors.New("no acquired image")
	}
	extent := ctx.Extent()

	rp, err := ctx.GetOrCreateRenderPass(&gpucore.RenderPassDescriptor{
		Label: "main",
		ColorAttachments: []gpucore.AttachmentDescriptor{{
			Format:      ctx.Format(),
			Samples:     1,
			LoadOp:      gputypes.LoadOpClear,
			StoreOp:     gputypes.StoreOpStore,
			FinalLayout: gpucore.LayoutColorAttachment,
		}},
	})
	if err != nil {
		return err
	}
	fb, err := ctx.GetOrCreateFramebuffer(&gpucore.FramebufferDescriptor{
		RenderPass:  rp,
		Attachments: []gpucore.ImageViewID{img.View},
		Width:       extent.Width,
		Height:      extent.Height,
	})
	if err != nil {
		return err
	}
	pipeline, err := ctx.GetOrCreatePipeline(&gpucore.PipelineDescriptor{
		Label:              "triangle",
		RenderPass:         rp,
		VertexShader:       shader,
		VertexEntryPoint:   "vs_main",
		FragmentShader:     shader,
		FragmentEntryPoint: "fs_main",
		Topology:           gputypes.PrimitiveTopologyTriangleList,
		ColorFormats:       []gputypes.TextureFormat{ctx.Format()},
		SampleCount:        1,
	})
	if err != nil {
		return err
	}

	cmd := ctx.CommandBuffer()
	if err := cmd.BeginRenderPass(&gpucore.RenderPassBeginInfo{
		RenderPass:  rp,
		Framebuffer: fb,
		Width:       extent.Width,
		Height:      extent.Height,
		ClearColor:  gputypes.Color{R: 0.1, G: 0.1, B: 0.15, A: 1},
	}); err != nil {
		return err
	}
	if err := cmd.BindPipeline(pipeline); err != nil {
		return err
	}
	if err := cmd.Draw(3, 1, 0, 0); err != nil {
		return err
	}
	return cmd.EndRenderPass()
}
