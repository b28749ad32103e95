package gpuframe

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpuframe/command"
	"github.com/gogpu/gpuframe/deletion"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/pipelinecache"
	"github.com/gogpu/gpuframe/resource"
	"github.com/gogpu/gpuframe/swapchain"
	"github.com/gogpu/gputypes"
)

// frameSlot is the per-frame-in-flight state reused round-robin.
type frameSlot struct {
	pool      *command.Pool
	cmd       *command.Buffer
	acquire   *command.Semaphore
	deletions *deletion.Queue
}

type resizeCallback struct {
	id int
	fn func(width, height uint32)
}

// Context drives the frame loop: it owns the swapchain, the per-frame
// command buffers and their synchronization, the deletion queues and the
// resource caches.
//
// A frame is BeginFrame, draw work recorded into CommandBuffer, EndFrame,
// then SwapBuffer. SwapBuffer is called every frame, including frames where
// BeginFrame returned ErrFrameSkipped.
//
// Context is not safe for concurrent use, except RequestResize, which may be
// called from any goroutine.
type Context struct {
	dev  gpucore.Device
	opts contextOptions

	swapchain *swapchain.Manager
	slots     []frameSlot
	main      *deletion.Queue
	caches    *resource.Set
	store     *pipelinecache.Store

	frame         int
	lastSubmitted int
	imageIndex    uint32
	recording     bool
	drawn         bool
	closing       bool
	closed        bool

	resizeMu      sync.Mutex
	resizePending bool
	requested     gpucore.Extent2D

	callbacks    []resizeCallback
	nextCallback int

	frames      uint64
	skipped     uint64
	recreations int
}

// NewContext creates the swapchain, one command pool, command buffer and
// acquire semaphore per frame in flight, the deletion queues and the
// resource caches, and seeds the device with the persisted pipeline cache.
//
// window supplies the surface size when the surface does not report one; it
// may be nil when WithExtentHint is given or the surface knows its size.
func NewContext(dev gpucore.Device, window gpucontext.WindowProvider, opts ...ContextOption) (*Context, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	c := &Context{
		dev:           dev,
		opts:          o,
		main:          deletion.NewQueue(dev, "main"),
		lastSubmitted: -1,
	}
	c.caches = resource.NewSet(dev, resource.Config{
		TTL:           o.cacheTTL,
		EvictionLimit: o.evictionLimit,
		Now:           o.clock,
	}, c)

	if !o.noPipelineCache {
		c.loadPipelineCache()
	}

	c.swapchain = swapchain.New(dev, swapchain.Config{PreferredFormat: o.preferredFormat})
	if err := c.swapchain.Init(o.vsync, window, o.extentHint); err != nil {
		return nil, fmt.Errorf("gpuframe: init swapchain: %w", err)
	}

	for i := range o.framesInFlight {
		slot, err := newFrameSlot(dev, i)
		if err != nil {
			_ = c.releaseFrameObjects()
			c.swapchain.Destroy()
			return nil, fmt.Errorf("gpuframe: init frame %d: %w", i, err)
		}
		c.slots = append(c.slots, slot)
	}

	if o.events != nil {
		o.events.OnResize(func(width, height int) {
			c.RequestResize(uint32(max(width, 0)), uint32(max(height, 0))) //nolint:gosec // G115: clamped to non-negative
		})
	}

	slogger().Info("gpuframe: context created",
		"frames_in_flight", len(c.slots),
		"format", c.swapchain.Format(),
		"present_mode", c.swapchain.PresentMode(),
		"images", c.swapchain.ImageCount())
	return c, nil
}

func newFrameSlot(dev gpucore.Device, i int) (frameSlot, error) {
	label := fmt.Sprintf("frame %d", i)
	pool, err := command.NewPool(dev, label)
	if err != nil {
		return frameSlot{}, err
	}
	cmd, err := pool.Allocate(gpucore.LevelPrimary, label)
	if err != nil {
		_ = pool.Destroy()
		return frameSlot{}, err
	}
	acquire, err := command.NewSemaphore(dev, gpucore.SemaphoreBinary)
	if err != nil {
		_ = pool.Destroy()
		return frameSlot{}, err
	}
	return frameSlot{
		pool:      pool,
		cmd:       cmd,
		acquire:   acquire,
		deletions: deletion.NewQueue(dev, label),
	}, nil
}

func (c *Context) loadPipelineCache() {
	store, err := pipelinecache.NewStore(c.opts.cacheFile)
	if err != nil {
		slogger().Warn("gpuframe: pipeline cache disabled", "err", err)
		return
	}
	c.store = store
	if err := store.Restore(c.dev); err != nil {
		slogger().Warn("gpuframe: pipeline cache not loaded", "path", store.Path(), "err", err)
	}
}

// === Frame protocol ===

// BeginFrame waits for the current frame slot to come free, flushes its
// deletion queue, acquires a swapchain image and starts recording the
// slot's command buffer with the image in color attachment layout.
//
// ErrFrameSkipped means no image was acquired: draw nothing, skip EndFrame
// and call SwapBuffer.
func (c *Context) BeginFrame() error {
	if c.closed {
		return ErrClosed
	}
	if c.recording {
		return ErrFrameInProgress
	}
	slot := &c.slots[c.frame]

	ok, err := slot.cmd.Wait(c.opts.fenceTimeout)
	if err != nil {
		return fmt.Errorf("gpuframe: wait frame %d: %w", c.frame, err)
	}
	if !ok {
		return fmt.Errorf("%w: frame %d after %v", ErrFenceTimeout, c.frame, c.opts.fenceTimeout)
	}
	slot.deletions.Flush()

	index, status, err := c.swapchain.AcquireNextImage(slot.acquire)
	if err != nil {
		return fmt.Errorf("gpuframe: acquire: %w", err)
	}
	switch status {
	case gputypes.SurfaceStatusGood:
	case gputypes.SurfaceStatusSuboptimal:
		c.markResize()
	default:
		if status == gputypes.SurfaceStatusOutdated {
			c.markResize()
		}
		c.skipped++
		slogger().Debug("gpuframe: frame skipped", "frame", c.frame, "status", status)
		return ErrFrameSkipped
	}

	if err := slot.cmd.Reset(); err != nil {
		return err
	}
	if err := slot.cmd.Begin(); err != nil {
		return err
	}
	if err := c.swapchain.Transition(slot.cmd, gpucore.LayoutColorAttachment); err != nil {
		return err
	}
	c.imageIndex = index
	c.recording = true
	return nil
}

// EndFrame moves the image to present layout, ends the command buffer and
// submits it. The submission waits on the acquire semaphore at the color
// output stage and signals the buffer's semaphore and fence. Deletion
// queues of every slot whose fence is already signaled are flushed.
//
// If the frame cannot be submitted the acquired image is abandoned and a
// swapchain recreation is scheduled; SwapBuffer still has to be called.
func (c *Context) EndFrame() error {
	if c.closed {
		return ErrClosed
	}
	if !c.recording {
		return ErrNoFrame
	}
	slot := &c.slots[c.frame]
	c.recording = false

	if err := c.swapchain.Transition(slot.cmd, gpucore.LayoutPresentSrc); err != nil {
		return c.abortFrame(slot, err)
	}
	if err := slot.cmd.End(); err != nil {
		return c.abortFrame(slot, err)
	}
	if err := slot.cmd.Execute(gpucore.StageColorAttachmentOutput, slot.acquire, false); err != nil {
		return c.abortFrame(slot, fmt.Errorf("gpuframe: submit frame %d: %w", c.frame, err))
	}
	c.drawn = true
	c.lastSubmitted = c.frame
	c.frames++

	c.flushCompleted()
	return nil
}

// abortFrame gives up the acquired image of a frame that was never
// submitted. Nothing waited on the acquire semaphore, so it stays signaled
// and is replaced.
func (c *Context) abortFrame(slot *frameSlot, cause error) error {
	slogger().Warn("gpuframe: frame not submitted", "frame", c.frame, "err", cause)
	c.swapchain.Abandon()
	c.markResize()
	sem, err := command.NewSemaphore(c.dev, gpucore.SemaphoreBinary)
	if err != nil {
		return errors.Join(cause, fmt.Errorf("gpuframe: replace acquire semaphore of frame %d: %w", c.frame, err))
	}
	slot.acquire.Destroy()
	slot.acquire = sem
	return cause
}

// flushCompleted flushes the queue of every slot whose fence is signaled.
func (c *Context) flushCompleted() {
	for i := range c.slots {
		s := &c.slots[i]
		if s.deletions.Len() > 0 && s.cmd.Fence().IsSignaled() {
			s.deletions.Flush()
		}
	}
}

// SwapBuffer presents the frame (if one was submitted), recreates the
// swapchain when presentation or a resize request asks for it, advances to
// the next frame slot and evicts idle cached resources.
func (c *Context) SwapBuffer() error {
	if c.closed {
		return ErrClosed
	}
	if c.recording {
		return ErrFrameInProgress
	}

	if c.drawn {
		c.drawn = false
		status, err := c.swapchain.Present(c.slots[c.frame].cmd.SignalSemaphore())
		if err != nil {
			return fmt.Errorf("gpuframe: present: %w", err)
		}
		if status == gputypes.SurfaceStatusOutdated || status == gputypes.SurfaceStatusSuboptimal || c.swapchain.ResizePending() {
			c.markResize()
		}
	}

	if c.ResizePending() {
		if err := c.RecreateSwapchain(); err != nil {
			return err
		}
	}

	c.frame = (c.frame + 1) % len(c.slots)
	if n := c.caches.DeleteUnused(); n > 0 {
		slogger().Debug("gpuframe: evicted idle resources", "count", n)
	}
	return nil
}

// === Resize ===

// RequestResize asks for the swapchain to be recreated at the end of the
// current frame. width and height are used when the surface does not
// report its own size. Safe to call from any goroutine.
func (c *Context) RequestResize(width, height uint32) {
	c.resizeMu.Lock()
	c.resizePending = true
	c.requested = gpucore.Extent2D{Width: width, Height: height}
	c.resizeMu.Unlock()
}

// ResizePending reports whether a swapchain recreation is scheduled.
func (c *Context) ResizePending() bool {
	c.resizeMu.Lock()
	defer c.resizeMu.Unlock()
	return c.resizePending
}

func (c *Context) markResize() {
	c.resizeMu.Lock()
	c.resizePending = true
	c.resizeMu.Unlock()
}

// RecreateSwapchain recreates the swapchain at the current surface size and
// notifies resize callbacks, newest first. A zero-area surface (minimized
// window) leaves the request pending and returns nil.
//
// During a frame the recreation is only scheduled for the next SwapBuffer
// and ErrFrameInProgress is returned.
func (c *Context) RecreateSwapchain() error {
	if c.closed {
		return ErrClosed
	}
	if c.recording {
		c.markResize()
		return ErrFrameInProgress
	}
	c.resizeMu.Lock()
	requested := c.requested
	c.resizeMu.Unlock()

	extent := c.swapchain.SurfaceExtent()
	if extent.IsZero() {
		extent = requested
	}
	if extent.IsZero() {
		slogger().Debug("gpuframe: zero-area surface, resize deferred")
		return nil
	}

	if err := c.dev.WaitIdle(); err != nil {
		return fmt.Errorf("gpuframe: wait idle before resize: %w", err)
	}
	if _, err := c.swapchain.OnResize(extent.Width, extent.Height, c.swapchain.ResizePending()); err != nil {
		return fmt.Errorf("gpuframe: recreate swapchain: %w", err)
	}

	c.resizeMu.Lock()
	c.resizePending = false
	c.requested = gpucore.Extent2D{}
	c.resizeMu.Unlock()
	c.recreations++

	c.notifyResize()
	return nil
}

func (c *Context) notifyResize() {
	e := c.swapchain.Extent()
	slogger().Info("gpuframe: swapchain resized", "width", e.Width, "height", e.Height, "callbacks", len(c.callbacks))
	// Callbacks may remove themselves; iterate over a snapshot.
	cbs := slices.Clone(c.callbacks)
	for i := len(cbs) - 1; i >= 0; i-- {
		cbs[i].fn(e.Width, e.Height)
	}
}

// AddResizeCallback registers fn to run after every swapchain recreation
// with the new extent. Callbacks run in reverse registration order. The
// returned function unregisters fn.
func (c *Context) AddResizeCallback(fn func(width, height uint32)) (remove func()) {
	c.nextCallback++
	id := c.nextCallback
	c.callbacks = append(c.callbacks, resizeCallback{id: id, fn: fn})
	return func() {
		c.callbacks = slices.DeleteFunc(c.callbacks, func(cb resizeCallback) bool { return cb.id == id })
	}
}

// SetVSync switches presentation mode, recreating the swapchain and
// notifying resize callbacks when the setting changes. It returns
// ErrFrameInProgress between BeginFrame and EndFrame.
func (c *Context) SetVSync(vsync bool) error {
	if c.closed {
		return ErrClosed
	}
	if c.recording {
		return ErrFrameInProgress
	}
	if vsync == c.swapchain.VSync() {
		return nil
	}
	before := c.swapchain.Recreations()
	if err := c.swapchain.SetVSync(vsync); err != nil {
		return fmt.Errorf("gpuframe: set vsync: %w", err)
	}
	if c.swapchain.Recreations() != before {
		c.notifyResize()
	}
	return nil
}

// === Deferred destruction ===

// Retire queues a deletion action behind the fence that covers every
// submission made so far. During a frame that is the current slot; between
// frames it is the slot submitted last. Before the first submission and
// during Shutdown, actions go to the main queue, which is flushed once the
// device is idle.
func (c *Context) Retire(a deletion.Action) {
	c.retireQueue().Push(a)
}

func (c *Context) retireQueue() *deletion.Queue {
	switch {
	case c.closing || len(c.slots) == 0:
		return c.main
	case c.recording:
		return c.slots[c.frame].deletions
	case c.lastSubmitted >= 0:
		return c.slots[c.lastSubmitted].deletions
	default:
		return c.main
	}
}

// PushDeferredDestroy runs fn once the GPU is done with the current frame.
func (c *Context) PushDeferredDestroy(fn func()) {
	c.Retire(deletion.Func("deferred", fn))
}

// Defer queues a deletion action; see Retire.
func (c *Context) Defer(a deletion.Action) {
	c.Retire(a)
}

// === Renderer API ===

// CommandBuffer returns the command buffer being recorded this frame.
// Only valid between BeginFrame and EndFrame.
func (c *Context) CommandBuffer() *command.Buffer {
	if !c.recording {
		return nil
	}
	return c.slots[c.frame].cmd
}

// FrameIndex returns the current frame slot, 0 to FramesInFlight()-1.
func (c *Context) FrameIndex() int { return c.frame }

// FramesInFlight returns the number of frame slots.
func (c *Context) FramesInFlight() int { return len(c.slots) }

// ImageIndex returns the swapchain image acquired by the last successful
// BeginFrame.
func (c *Context) ImageIndex() uint32 { return c.imageIndex }

// CurrentImage returns the acquired swapchain image, if any.
func (c *Context) CurrentImage() (swapchain.Image, bool) {
	return c.swapchain.Current()
}

// Extent returns the swapchain size.
func (c *Context) Extent() gpucore.Extent2D { return c.swapchain.Extent() }

// Format returns the swapchain image format.
func (c *Context) Format() gputypes.TextureFormat { return c.swapchain.Format() }

// Swapchain returns the swapchain manager.
func (c *Context) Swapchain() *swapchain.Manager { return c.swapchain }

// Caches returns the resource caches.
func (c *Context) Caches() *resource.Set { return c.caches }

// Device returns the device the context renders with.
func (c *Context) Device() gpucore.Device { return c.dev }

// GetOrCreatePipeline returns the cached pipeline for desc, creating it on
// first use.
func (c *Context) GetOrCreatePipeline(desc *gpucore.PipelineDescriptor) (gpucore.PipelineID, error) {
	return c.caches.Pipelines.GetOrCreate(desc)
}

// GetOrCreateRenderPass returns the cached render pass for desc.
func (c *Context) GetOrCreateRenderPass(desc *gpucore.RenderPassDescriptor) (gpucore.RenderPassID, error) {
	return c.caches.RenderPasses.GetOrCreate(desc)
}

// GetOrCreateFramebuffer returns the cached framebuffer for desc.
func (c *Context) GetOrCreateFramebuffer(desc *gpucore.FramebufferDescriptor) (gpucore.FramebufferID, error) {
	return c.caches.Framebuffers.GetOrCreate(desc)
}

// GetOrCreateTexture returns the cached texture for desc.
func (c *Context) GetOrCreateTexture(desc *gpucore.TextureDescriptor) (gpucore.Texture, error) {
	return c.caches.Textures.GetOrCreate(desc)
}

// Stats is a snapshot of frame loop counters.
type Stats struct {
	// Frames is the number of submitted frames.
	Frames uint64

	// Skipped is the number of BeginFrame calls that returned
	// ErrFrameSkipped.
	Skipped uint64

	// Recreations is the number of RecreateSwapchain calls that completed.
	Recreations int

	// SwapchainCreations counts every swapchain created, including the
	// first and those made directly by an out-of-date acquire.
	SwapchainCreations int

	// PendingDeletions is the number of queued deletion actions.
	PendingDeletions int

	Caches []resource.Stats
}

// Stats returns frame loop counters.
func (c *Context) Stats() Stats {
	pending := c.main.Len()
	for i := range c.slots {
		pending += c.slots[i].deletions.Len()
	}
	return Stats{
		Frames:             c.frames,
		Skipped:            c.skipped,
		Recreations:        c.recreations,
		SwapchainCreations: c.swapchain.Recreations(),
		PendingDeletions:   pending,
		Caches:             c.caches.Stats(),
	}
}

// === Shutdown ===

// Shutdown waits for the GPU, destroys every cached resource and frame
// object, persists the pipeline cache and flushes all deletion queues.
// Calling Shutdown again is a no-op.
func (c *Context) Shutdown() error {
	if c.closed {
		return nil
	}
	var errs []error
	if err := c.dev.WaitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("gpuframe: wait idle: %w", err))
	}
	c.closing = true
	c.recording = false
	c.drawn = false

	if n := c.caches.Clear(); n > 0 {
		slogger().Debug("gpuframe: released cached resources", "count", n)
	}
	for i := range c.slots {
		c.slots[i].deletions.Flush()
	}
	if err := c.releaseFrameObjects(); err != nil {
		errs = append(errs, err)
	}
	c.swapchain.Destroy()

	if c.store != nil {
		if err := c.store.Persist(c.dev); err != nil {
			slogger().Warn("gpuframe: pipeline cache not saved", "path", c.store.Path(), "err", err)
			errs = append(errs, err)
		}
	}

	c.main.Flush()
	c.closed = true
	slogger().Info("gpuframe: context shut down", "frames", c.frames)
	return errors.Join(errs...)
}

// releaseFrameObjects frees the per-slot command buffers, pools and
// semaphores.
func (c *Context) releaseFrameObjects() error {
	var errs []error
	for i := range c.slots {
		s := &c.slots[i]
		if err := s.pool.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("gpuframe: release frame %d: %w", i, err))
		}
		s.acquire.Destroy()
	}
	c.slots = nil
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
