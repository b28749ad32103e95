package gpuframe

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/gputest"
	"github.com/gogpu/gputypes"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// resizeEvents captures the OnResize subscription.
type resizeEvents struct {
	gpucontext.NullEventSource
	onResize func(width, height int)
}

func (e *resizeEvents) OnResize(fn func(width, height int)) { e.onResize = fn }

func newTestContext(t *testing.T, dev *gputest.Device, opts ...ContextOption) *Context {
	t.Helper()
	opts = append([]ContextOption{WithoutPipelineCache()}, opts...)
	ctx, err := NewContext(dev, nil, opts...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { _ = ctx.Shutdown() })
	return ctx
}

// runFrame runs one full frame and reports whether it was drawn.
func runFrame(t *testing.T, ctx *Context) bool {
	t.Helper()
	err := ctx.BeginFrame()
	drawn := err == nil
	switch {
	case err == nil:
		if ctx.CommandBuffer() == nil {
			t.Fatal("CommandBuffer is nil during a frame")
		}
		if err := ctx.EndFrame(); err != nil {
			t.Fatalf("EndFrame: %v", err)
		}
	case !errors.Is(err, ErrFrameSkipped):
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatalf("SwapBuffer: %v", err)
	}
	return drawn
}

func TestNewContextCreatesFrameObjects(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev, WithFramesInFlight(3))

	if ctx.FramesInFlight() != 3 {
		t.Errorf("FramesInFlight = %d", ctx.FramesInFlight())
	}
	if got := dev.Count("CreateCommandPool"); got != 3 {
		t.Errorf("CreateCommandPool calls = %d, want 3", got)
	}
	// One fence per buffer, signaled so the first wait returns at once.
	if got := dev.Count("CreateFence"); got != 3 {
		t.Errorf("CreateFence calls = %d, want 3", got)
	}
	// Acquire + submit semaphore per slot.
	if got := dev.Count("CreateSemaphore"); got != 6 {
		t.Errorf("CreateSemaphore calls = %d, want 6", got)
	}
	if got := dev.Count("CreateSwapchain"); got != 1 {
		t.Errorf("CreateSwapchain calls = %d, want 1", got)
	}
	if e := ctx.Extent(); e != (gpucore.Extent2D{Width: 800, Height: 600}) {
		t.Errorf("Extent = %v", e)
	}
	if ctx.Format() != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("Format = %v", ctx.Format())
	}
}

func TestNewContextErrors(t *testing.T) {
	if _, err := NewContext(nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil device: %v", err)
	}

	dev := gputest.New()
	dev.Caps.MinImageCount = 1
	dev.Caps.MaxImageCount = 1
	if _, err := NewContext(dev, nil, WithoutPipelineCache()); err == nil {
		t.Error("single-image surface accepted")
	}

	dev = gputest.New()
	dev.Fail = map[string]error{"CreateSemaphore": errors.New("out of semaphores")}
	if _, err := NewContext(dev, nil, WithoutPipelineCache()); err == nil {
		t.Fatal("semaphore failure did not fail NewContext")
	}
	if leaks := dev.Leaks(); len(leaks) != 0 {
		t.Errorf("failed NewContext leaked %v", leaks)
	}
}

func TestFrameSlotsCycle(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("frames=%d", n), func(t *testing.T) {
			dev := gputest.New()
			ctx := newTestContext(t, dev, WithFramesInFlight(n))
			fences := make([]uint64, n)
			for i := range n {
				fences[i] = uint64(ctx.slots[i].cmd.Fence().ID())
			}

			var slots []int
			for range 3 * n {
				slots = append(slots, ctx.FrameIndex())
				if !runFrame(t, ctx) {
					t.Fatal("frame skipped")
				}
			}
			for i, s := range slots {
				if s != i%n {
					t.Fatalf("slot sequence = %v", slots)
				}
			}

			// Every resubmission of a slot's fence is preceded by a wait that
			// observed the previous submission complete.
			for _, f := range fences {
				prev := dev.Index("Submit", f, 0)
				for prev >= 0 {
					next := dev.Index("Submit", f, prev+1)
					if next < 0 {
						break
					}
					wait := dev.Index("WaitForFence", f, prev)
					if wait < 0 || wait > next {
						t.Fatalf("fence %d resubmitted at call %d without a wait since %d", f, next, prev)
					}
					if c := dev.Calls()[wait]; c.Result != "signaled" {
						t.Fatalf("wait before reuse = %v", c)
					}
					prev = next
				}
			}
		})
	}
}

func TestFrameProtocolMisuse(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)

	if err := ctx.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("EndFrame without BeginFrame = %v", err)
	}
	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.BeginFrame(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("second BeginFrame = %v", err)
	}
	if err := ctx.SwapBuffer(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("SwapBuffer inside frame = %v", err)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.BeginFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginFrame after Shutdown = %v", err)
	}
	if err := ctx.Shutdown(); err != nil {
		t.Errorf("second Shutdown = %v", err)
	}
}

func TestRecreateDuringFrameIsDeferred(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)

	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	dev.SetExtent(1024, 768)
	if err := ctx.RecreateSwapchain(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("RecreateSwapchain inside frame = %v", err)
	}
	if err := ctx.SetVSync(false); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("SetVSync inside frame = %v", err)
	}
	if got := dev.Count("CreateSwapchain"); got != 1 {
		t.Fatalf("CreateSwapchain calls inside frame = %d, want 1", got)
	}
	if !ctx.ResizePending() {
		t.Error("deferred recreation not scheduled")
	}

	if err := ctx.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatalf("SwapBuffer: %v", err)
	}
	if e := ctx.Extent(); e != (gpucore.Extent2D{Width: 1024, Height: 768}) {
		t.Errorf("Extent = %v, want 1024x768", e)
	}
	if got := dev.Count("CreateSwapchain"); got != 2 {
		t.Errorf("CreateSwapchain calls = %d, want 2", got)
	}
	if !ctx.Swapchain().VSync() {
		t.Error("rejected SetVSync changed the setting")
	}
	runFrame(t, ctx)
}

func TestSubmitFailureReleasesImage(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)
	runFrame(t, ctx)

	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	slot := &ctx.slots[ctx.FrameIndex()]
	oldAcquire := slot.acquire.ID()

	errBoom := errors.New("boom")
	dev.Fail = map[string]error{"Submit": errBoom}
	if err := ctx.EndFrame(); !errors.Is(err, errBoom) {
		t.Fatalf("EndFrame = %v, want %v", err, errBoom)
	}
	delete(dev.Fail, "Submit")

	if _, ok := ctx.CurrentImage(); ok {
		t.Error("image still acquired after failed submission")
	}
	if !ctx.ResizePending() {
		t.Error("failed submission did not schedule a recreation")
	}
	if slot.acquire.ID() == oldAcquire {
		t.Error("signaled acquire semaphore was kept")
	}
	if dev.Index("DestroySemaphore", uint64(oldAcquire), 0) < 0 {
		t.Error("old acquire semaphore not destroyed")
	}

	if err := ctx.SwapBuffer(); err != nil {
		t.Fatalf("SwapBuffer: %v", err)
	}
	if got := dev.Count("Present"); got != 1 {
		t.Errorf("Present calls = %d, want 1 (failed frame not presented)", got)
	}
	if got := dev.Count("CreateSwapchain"); got != 2 {
		t.Errorf("CreateSwapchain calls = %d, want 2", got)
	}
	for range 3 {
		if !runFrame(t, ctx) {
			t.Fatal("frame after failed submission was skipped")
		}
	}
}

func TestFrameRecordsImageTransitions(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)
	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	img, ok := ctx.CurrentImage()
	if !ok || img.Layout != gpucore.LayoutColorAttachment {
		t.Fatalf("CurrentImage = %+v, %v", img, ok)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, c := range dev.Calls() {
		if c.Op == "TransitionImage" {
			got = append(got, c.Result)
		}
	}
	want := []string{"Undefined->ColorAttachment", "ColorAttachment->PresentSrc"}
	if !slices.Equal(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}
}

func TestOutOfDateMidRun(t *testing.T) {
	dev := gputest.New()
	dev.AcquireScript = func(n int) (gputypes.SurfaceStatus, error) {
		if n == 5 {
			dev.SetExtent(1024, 768)
			return gputypes.SurfaceStatusOutdated, nil
		}
		return gputypes.SurfaceStatusGood, nil
	}
	ctx := newTestContext(t, dev)

	var broadcasts []gpucore.Extent2D
	ctx.AddResizeCallback(func(w, h uint32) {
		broadcasts = append(broadcasts, gpucore.Extent2D{Width: w, Height: h})
	})

	for frame := 1; frame <= 10; frame++ {
		drawn := runFrame(t, ctx)
		if drawn == (frame == 5) {
			t.Fatalf("frame %d: drawn = %v", frame, drawn)
		}
		if frame > 5 {
			if e := ctx.Extent(); e != (gpucore.Extent2D{Width: 1024, Height: 768}) {
				t.Fatalf("frame %d: extent = %v", frame, e)
			}
		}
	}

	stats := ctx.Stats()
	if stats.Recreations != 1 {
		t.Errorf("Recreations = %d, want 1", stats.Recreations)
	}
	if len(broadcasts) != 1 || broadcasts[0] != (gpucore.Extent2D{Width: 1024, Height: 768}) {
		t.Errorf("broadcasts = %v", broadcasts)
	}
	if got := dev.Count("CreateSwapchain"); got != 2 {
		t.Errorf("CreateSwapchain calls = %d, want 2", got)
	}
	if stats.Frames != 9 || stats.Skipped != 1 {
		t.Errorf("frames = %d skipped = %d, want 9/1", stats.Frames, stats.Skipped)
	}
	desc, ok := dev.Swapchain(ctx.Swapchain().ID())
	if !ok || desc.Width != 1024 || desc.Height != 768 {
		t.Errorf("live swapchain = %+v", desc)
	}
}

func TestPresentSuboptimalRecreates(t *testing.T) {
	dev := gputest.New()
	dev.PresentScript = func(n int) (gputypes.SurfaceStatus, error) {
		if n == 2 {
			dev.SetExtent(640, 480)
			return gputypes.SurfaceStatusSuboptimal, nil
		}
		return gputypes.SurfaceStatusGood, nil
	}
	ctx := newTestContext(t, dev)
	for range 4 {
		runFrame(t, ctx)
	}
	if got := ctx.Stats().Recreations; got != 1 {
		t.Errorf("Recreations = %d, want 1", got)
	}
	if e := ctx.Extent(); e.Width != 640 || e.Height != 480 {
		t.Errorf("Extent = %v", e)
	}
}

func TestAcquireTimeoutSkipsFrame(t *testing.T) {
	dev := gputest.New()
	dev.AcquireScript = func(n int) (gputypes.SurfaceStatus, error) {
		if n == 1 {
			return gputypes.SurfaceStatusTimeout, nil
		}
		return gputypes.SurfaceStatusGood, nil
	}
	ctx := newTestContext(t, dev)
	if err := ctx.BeginFrame(); !errors.Is(err, ErrFrameSkipped) {
		t.Fatalf("BeginFrame = %v, want ErrFrameSkipped", err)
	}
	if ctx.ResizePending() {
		t.Error("timeout scheduled a resize")
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}
	if dev.Count("Present") != 0 {
		t.Error("skipped frame was presented")
	}
	if !runFrame(t, ctx) {
		t.Error("frame after timeout skipped")
	}
}

func TestFenceTimeout(t *testing.T) {
	dev := gputest.New()
	dev.AutoComplete = false
	ctx := newTestContext(t, dev, WithFramesInFlight(2), WithFenceTimeout(time.Millisecond))

	runFrame(t, ctx)
	runFrame(t, ctx)
	if err := ctx.BeginFrame(); !errors.Is(err, ErrFenceTimeout) {
		t.Fatalf("BeginFrame with busy slot = %v, want ErrFenceTimeout", err)
	}
	dev.CompleteAll()
	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame after completion = %v", err)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
}

func TestResizeCallbacksReverseOrder(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)

	var order []string
	ctx.AddResizeCallback(func(uint32, uint32) { order = append(order, "a") })
	removeB := ctx.AddResizeCallback(func(uint32, uint32) { order = append(order, "b") })
	ctx.AddResizeCallback(func(uint32, uint32) { order = append(order, "c") })

	dev.SetExtent(1280, 720)
	ctx.RequestResize(1280, 720)
	runFrame(t, ctx)
	if want := []string{"c", "b", "a"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}

	removeB()
	order = nil
	dev.SetExtent(1920, 1080)
	ctx.RequestResize(1920, 1080)
	runFrame(t, ctx)
	if want := []string{"c", "a"}; !slices.Equal(order, want) {
		t.Errorf("order after remove = %v, want %v", order, want)
	}
}

func TestResizeIsIdempotent(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)
	dev.SetExtent(1024, 768)

	ctx.RequestResize(1024, 768)
	if err := ctx.RecreateSwapchain(); err != nil {
		t.Fatal(err)
	}
	ctx.RequestResize(1024, 768)
	if err := ctx.RecreateSwapchain(); err != nil {
		t.Fatal(err)
	}
	if got := dev.Count("CreateSwapchain"); got != 2 {
		t.Errorf("CreateSwapchain calls = %d, want 2 (init + one resize)", got)
	}
}

func TestZeroAreaResizeStaysPending(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)

	dev.SetExtent(0, 0)
	ctx.RequestResize(0, 0)
	runFrame(t, ctx)
	if !ctx.ResizePending() {
		t.Fatal("zero-area resize cleared the request")
	}
	if got := dev.Count("CreateSwapchain"); got != 1 {
		t.Fatalf("CreateSwapchain calls = %d, want 1", got)
	}

	dev.SetExtent(320, 200)
	runFrame(t, ctx)
	if ctx.ResizePending() {
		t.Error("resize still pending after surface came back")
	}
	if e := ctx.Extent(); e.Width != 320 || e.Height != 200 {
		t.Errorf("Extent = %v", e)
	}
}

func TestEventSourceResize(t *testing.T) {
	dev := gputest.New()
	events := &resizeEvents{}
	ctx := newTestContext(t, dev, WithEventSource(events))
	if events.onResize == nil {
		t.Fatal("context did not subscribe to resize events")
	}
	events.onResize(1600, 900)
	if !ctx.ResizePending() {
		t.Fatal("resize event did not schedule a recreation")
	}

	// The surface reports no size of its own, so the event size is used.
	dev.SetExtent(gpucore.UndefinedExtent, gpucore.UndefinedExtent)
	runFrame(t, ctx)
	if e := ctx.Extent(); e.Width != 1600 || e.Height != 900 {
		t.Errorf("Extent = %v, want 1600x900", e)
	}
}

func TestSetVSyncRecreates(t *testing.T) {
	dev := gputest.New()
	ctx := newTestContext(t, dev)
	if ctx.Swapchain().PresentMode() != gputypes.PresentModeMailbox {
		t.Fatalf("vsync present mode = %v", ctx.Swapchain().PresentMode())
	}
	calls := 0
	ctx.AddResizeCallback(func(uint32, uint32) { calls++ })

	if err := ctx.SetVSync(false); err != nil {
		t.Fatal(err)
	}
	if ctx.Swapchain().PresentMode() != gputypes.PresentModeImmediate {
		t.Errorf("present mode = %v, want Immediate", ctx.Swapchain().PresentMode())
	}
	if err := ctx.SetVSync(false); err != nil {
		t.Fatal(err)
	}
	if got := dev.Count("CreateSwapchain"); got != 2 {
		t.Errorf("CreateSwapchain calls = %d, want 2", got)
	}
	if calls != 1 {
		t.Errorf("resize callbacks = %d, want 1", calls)
	}
}

func TestCacheEvictionWaitsForFence(t *testing.T) {
	dev := gputest.New()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	ctx := newTestContext(t, dev, WithClock(clock.Now), WithCacheTTL(200*time.Millisecond))

	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	desc := &gpucore.PipelineDescriptor{Label: "quad", VertexEntryPoint: "vs_main"}
	p, err := ctx.GetOrCreatePipeline(desc)
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := ctx.GetOrCreatePipeline(desc); again != p {
		t.Fatalf("second lookup = %d, want %d", again, p)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Second)
	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
	evictAt := len(dev.Calls())
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}
	if ctx.Caches().Pipelines.Len() != 0 {
		t.Fatal("idle pipeline not evicted")
	}

	// The newest submission before eviction covers every use of p.
	var covering uint64
	submitAt := -1
	for i, c := range dev.Calls()[:evictAt] {
		if c.Op == "Submit" {
			covering, submitAt = c.Handle, i
		}
	}

	for range 4 {
		runFrame(t, ctx)
	}
	destroyAt := dev.Index("DestroyPipeline", uint64(p), 0)
	if destroyAt < 0 {
		t.Fatal("evicted pipeline never destroyed")
	}
	if destroyAt < evictAt {
		t.Fatalf("pipeline destroyed at call %d, before eviction at %d", destroyAt, evictAt)
	}
	observed := false
	for _, c := range dev.Calls()[submitAt+1 : destroyAt] {
		if c.Handle == covering && (c.Op == "WaitForFence" || c.Op == "FenceStatus") && c.Result == "signaled" {
			observed = true
		}
	}
	if !observed {
		t.Errorf("pipeline destroyed before fence %d was observed signaled", covering)
	}
}

func TestPushDeferredDestroy(t *testing.T) {
	dev := gputest.New()
	dev.AutoComplete = false
	ctx := newTestContext(t, dev, WithFramesInFlight(2))

	ran := false
	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	fence := ctx.slots[ctx.FrameIndex()].cmd.Fence().ID()
	ctx.PushDeferredDestroy(func() { ran = true })
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Fatal("deferred closure ran before its frame was submitted")
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}

	// Slot 1 ends while slot 0 is still executing.
	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Fatal("deferred closure ran while its fence was pending")
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}

	dev.CompleteFence(fence)
	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("deferred closure did not run after its fence signaled")
	}
	dev.CompleteAll()
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
}

func TestShutdownReleasesEverything(t *testing.T) {
	dev := gputest.New()
	ctx, err := NewContext(dev, nil, WithoutPipelineCache())
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	rp, err := ctx.GetOrCreateRenderPass(&gpucore.RenderPassDescriptor{Label: "main"})
	if err != nil {
		t.Fatal(err)
	}
	fb, err := ctx.GetOrCreateFramebuffer(&gpucore.FramebufferDescriptor{RenderPass: rp, Width: 800, Height: 600})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.GetOrCreateTexture(&gpucore.TextureDescriptor{Label: "depth", Width: 800, Height: 600}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SwapBuffer(); err != nil {
		t.Fatal(err)
	}

	start := len(dev.Calls())
	if err := ctx.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if leaks := dev.Leaks(); len(leaks) != 0 {
		t.Errorf("leaked after Shutdown: %v", leaks)
	}
	idle := dev.Index("WaitIdle", 0, start)
	if idle < 0 {
		t.Fatal("Shutdown did not wait for the device")
	}
	for _, c := range []struct {
		op     string
		handle uint64
	}{
		{"DestroyFramebuffer", uint64(fb)},
		{"DestroyRenderPass", uint64(rp)},
	} {
		if at := dev.Index(c.op, c.handle, start); at < idle {
			t.Errorf("%s(%d) at call %d, device idle at %d", c.op, c.handle, at, idle)
		}
	}
	if got := ctx.Stats().PendingDeletions; got != 0 {
		t.Errorf("PendingDeletions after Shutdown = %d", got)
	}
}

func TestPipelineCachePersistsAcrossContexts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renderer", "pipeline.cache")

	first := gputest.New()
	first.SetPipelineCacheData([]byte("compiled pipelines"))
	ctx, err := NewContext(first, nil, WithPipelineCacheFile(path))
	if err != nil {
		t.Fatal(err)
	}
	runFrame(t, ctx)
	if err := ctx.Shutdown(); err != nil {
		t.Fatal(err)
	}

	second := gputest.New()
	ctx, err = NewContext(second, nil, WithPipelineCacheFile(path))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Shutdown()
	if second.Count("LoadPipelineCacheData") != 1 {
		t.Fatal("pipeline cache not loaded at init")
	}
	data, _ := second.PipelineCacheData()
	if string(data) != "compiled pipelines" {
		t.Errorf("restored cache = %q", data)
	}
}
