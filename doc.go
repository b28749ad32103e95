// Package gpuframe drives the frame loop of an explicit graphics API.
//
// # Overview
//
// gpuframe owns everything between "the device is open" and "the frame is on
// screen": the swapchain, per-frame command buffers with their fences and
// semaphores, deferred destruction of GPU objects, and content-addressed
// caches of pipelines, render passes, framebuffers and textures that evict
// themselves when idle.
//
// # Quick Start
//
//	dev, err := native.Open(native.Options{WindowHandle: hwnd})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, err := gpuframe.NewContext(dev, window)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Shutdown()
//
//	for running {
//	    switch err := ctx.BeginFrame(); {
//	    case err == nil:
//	        draw(ctx.CommandBuffer())
//	        if err := ctx.EndFrame(); err != nil {
//	            log.Fatal(err)
//	        }
//	    case !errors.Is(err, gpuframe.ErrFrameSkipped):
//	        log.Fatal(err)
//	    }
//	    if err := ctx.SwapBuffer(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Frames in flight
//
// The Context keeps N frame slots (1 to 3, default 2). Each slot has a
// command pool and buffer, a completion fence, an acquire semaphore, a
// submit semaphore and a deletion queue. BeginFrame waits for the slot's
// fence before reusing anything in it, so the CPU never runs more than N
// frames ahead of the GPU.
//
// # Resource lifetime
//
// Nothing the GPU may still read is destroyed immediately. Objects evicted
// from the caches and closures passed to PushDeferredDestroy are queued
// behind the fence covering the latest submission and run once that fence
// is observed signaled.
//
// # Resize
//
// An out-of-date or suboptimal swapchain, or a RequestResize call, schedules
// a recreation at the end of the frame. Resize callbacks registered with
// AddResizeCallback run newest first after each recreation, which is where
// renderers rebuild size-dependent resources.
//
// # Architecture
//
//   - gpucore: handles, descriptors and the Device interface
//   - command: fences, semaphores, command pools and buffers
//   - swapchain: acquire/present and recreation
//   - deletion: deferred destroy actions
//   - resource: TTL caches of GPU objects
//   - pipelinecache: persisted compiled pipeline state
//   - backend/native: Device on wgpu hal
//   - gputest: scripted Device for tests
package gpuframe
