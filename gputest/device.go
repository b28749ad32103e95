// Package gputest provides a scripted gpucore.Device for tests.
//
// Device records every call in order, tracks which handles are alive, and
// lets a test script acquire and present results by call number. It never
// touches a GPU, so the whole frame loop can be exercised in unit tests.
package gputest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
)

// Call is one recorded Device call.
type Call struct {
	// Op is the Device method name, e.g. "WaitForFence".
	Op string

	// Handle is the primary handle the call operated on, if any.
	Handle uint64

	// Result is a short outcome, e.g. "signaled", "timeout", "800x600".
	Result string
}

func (c Call) String() string {
	if c.Result == "" {
		return fmt.Sprintf("%s(%d)", c.Op, c.Handle)
	}
	return fmt.Sprintf("%s(%d)=%s", c.Op, c.Handle, c.Result)
}

// StatusFunc scripts an acquire or present result. n is the 1-based call
// number. Returning SurfaceStatusGood with a nil error lets the call proceed
// normally.
type StatusFunc func(n int) (gputypes.SurfaceStatus, error)

type fenceState struct {
	signaled bool
	pending  bool
}

type semaphoreState struct {
	kind  gpucore.SemaphoreKind
	value uint64
}

type swapchainState struct {
	desc   gpucore.SwapchainDescriptor
	images []gpucore.ImageID
	next   uint32
}

// Device is a call-recording gpucore.Device.
//
// Fences submitted with work stay pending until WaitIdle, CompleteFence,
// CompleteAll, or (when AutoComplete is set) a WaitForFence call completes
// them. FenceStatus never completes a fence by itself.
type Device struct {
	mu sync.Mutex

	// AutoComplete makes WaitForFence complete a pending fence, modeling a
	// GPU that finishes work while the host waits. Defaults to true.
	AutoComplete bool

	// AcquireScript and PresentScript script swapchain results. Nil means
	// always Good.
	AcquireScript StatusFunc
	PresentScript StatusFunc

	// Caps is returned by SurfaceCapabilities.
	Caps gpucore.SurfaceCapabilities

	// AdapterInfo is returned by Info.
	AdapterInfo gputypes.AdapterInfo

	// Fail injects an error into the named operation (e.g. "CreatePipeline").
	Fail map[string]error

	next      uint64
	calls     []Call
	acquires  int
	presents  int
	cacheData []byte

	fences     map[gpucore.FenceID]*fenceState
	semaphores map[gpucore.SemaphoreID]*semaphoreState
	pools      map[gpucore.CommandPoolID]map[gpucore.CommandBufferID]bool
	buffers    map[gpucore.CommandBufferID]gpucore.CommandPoolID
	swapchains map[gpucore.SwapchainID]*swapchainState
	images     map[gpucore.ImageID]gpucore.SwapchainID
	views      map[gpucore.ImageViewID]bool
	objects    map[uint64]string
}

var _ gpucore.Device = (*Device)(nil)

// New returns a device with a 800x600 surface supporting BGRA8Unorm and
// RGBA8UnormSrgb, FIFO/Mailbox/Immediate presentation and 2..3 images.
func New() *Device {
	return &Device{
		AutoComplete: true,
		Caps: gpucore.SurfaceCapabilities{
			Formats: []gputypes.TextureFormat{
				gputypes.TextureFormatBGRA8Unorm,
				gputypes.TextureFormatRGBA8UnormSrgb,
			},
			PresentModes: []gputypes.PresentMode{
				gputypes.PresentModeFifo,
				gputypes.PresentModeMailbox,
				gputypes.PresentModeImmediate,
			},
			AlphaModes:    []gputypes.CompositeAlphaMode{gputypes.CompositeAlphaModeOpaque},
			MinImageCount: 2,
			MaxImageCount: 3,
			CurrentExtent: gpucore.Extent2D{Width: 800, Height: 600},
			MinExtent:     gpucore.Extent2D{Width: 1, Height: 1},
			MaxExtent:     gpucore.Extent2D{Width: 16384, Height: 16384},
		},
		AdapterInfo: gputypes.AdapterInfo{
			Name:     "gputest",
			Vendor:   "gpuframe",
			VendorID: 0x1234,
			DeviceID: 0x5678,
		},
		fences:     make(map[gpucore.FenceID]*fenceState),
		semaphores: make(map[gpucore.SemaphoreID]*semaphoreState),
		pools:      make(map[gpucore.CommandPoolID]map[gpucore.CommandBufferID]bool),
		buffers:    make(map[gpucore.CommandBufferID]gpucore.CommandPoolID),
		swapchains: make(map[gpucore.SwapchainID]*swapchainState),
		images:     make(map[gpucore.ImageID]gpucore.SwapchainID),
		views:      make(map[gpucore.ImageViewID]bool),
		objects:    make(map[uint64]string),
	}
}

// === Test helpers ===

// SetExtent changes the surface's current extent, as a window resize would.
func (d *Device) SetExtent(width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Caps.CurrentExtent = gpucore.Extent2D{Width: width, Height: height}
}

// Calls returns a copy of the call log.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// ClearCalls empties the call log.
func (d *Device) ClearCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = d.calls[:0]
}

// Count returns how many times op was called.
func (d *Device) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Index returns the position of the first call to op on handle at or after
// from, or -1.
func (d *Device) Index(op string, handle uint64, from int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := from; i < len(d.calls); i++ {
		if d.calls[i].Op == op && d.calls[i].Handle == handle {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the last call to op on handle before
// end, or -1.
func (d *Device) LastIndex(op string, handle uint64, end int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if end > len(d.calls) {
		end = len(d.calls)
	}
	for i := end - 1; i >= 0; i-- {
		if d.calls[i].Op == op && d.calls[i].Handle == handle {
			return i
		}
	}
	return -1
}

// CompleteFence signals a fence as if its submission finished.
func (d *Device) CompleteFence(id gpucore.FenceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fences[id]; ok {
		f.signaled = true
		f.pending = false
	}
}

// CompleteAll signals every pending fence.
func (d *Device) CompleteAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completeAllLocked()
}

// Signaled reports a fence's device-side state.
func (d *Device) Signaled(id gpucore.FenceID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[id]
	return ok && f.signaled
}

// Swapchain returns the descriptor a live swapchain was created with.
func (d *Device) Swapchain(id gpucore.SwapchainID) (gpucore.SwapchainDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchains[id]
	if !ok {
		return gpucore.SwapchainDescriptor{}, false
	}
	return sc.desc, true
}

// SetPipelineCacheData sets the blob returned by PipelineCacheData.
func (d *Device) SetPipelineCacheData(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cacheData = append([]byte(nil), data...)
}

// Leaks lists every object that was created and not destroyed.
func (d *Device) Leaks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for id := range d.fences {
		out = append(out, fmt.Sprintf("fence %d", id))
	}
	for id := range d.semaphores {
		out = append(out, fmt.Sprintf("semaphore %d", id))
	}
	for id := range d.pools {
		out = append(out, fmt.Sprintf("command pool %d", id))
	}
	for id := range d.buffers {
		out = append(out, fmt.Sprintf("command buffer %d", id))
	}
	for id := range d.swapchains {
		out = append(out, fmt.Sprintf("swapchain %d", id))
	}
	for id := range d.views {
		out = append(out, fmt.Sprintf("image view %d", id))
	}
	for id, kind := range d.objects {
		out = append(out, fmt.Sprintf("%s %d", kind, id))
	}
	sort.Strings(out)
	return out
}

func (d *Device) record(op string, handle uint64, result string) {
	d.calls = append(d.calls, Call{Op: op, Handle: handle, Result: result})
}

func (d *Device) alloc() uint64 {
	d.next++
	return d.next
}

func (d *Device) fail(op string) error {
	if err := d.Fail[op]; err != nil {
		d.record(op, 0, "error")
		return err
	}
	return nil
}

func (d *Device) completeAllLocked() {
	for _, f := range d.fences {
		if f.pending {
			f.signaled = true
			f.pending = false
		}
	}
}

func signaledString(ok bool) string {
	if ok {
		return "signaled"
	}
	return "unsignaled"
}

// === Identity ===

// Info returns AdapterInfo.
func (d *Device) Info() gputypes.AdapterInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.AdapterInfo
}

// === Synchronization ===

// CreateFence creates a fence.
func (d *Device) CreateFence(signaled bool) (gpucore.FenceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateFence"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.FenceID(d.alloc())
	d.fences[id] = &fenceState{signaled: signaled}
	d.record("CreateFence", uint64(id), signaledString(signaled))
	return id, nil
}

// DestroyFence destroys a fence.
func (d *Device) DestroyFence(id gpucore.FenceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, id)
	d.record("DestroyFence", uint64(id), "")
}

// WaitForFence waits for a fence.
func (d *Device) WaitForFence(id gpucore.FenceID, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[id]
	if !ok {
		d.record("WaitForFence", uint64(id), "unknown")
		return false, gpucore.ErrUnknownHandle
	}
	if f.pending && d.AutoComplete {
		f.signaled = true
		f.pending = false
	}
	if !f.signaled {
		d.record("WaitForFence", uint64(id), "timeout")
		return false, nil
	}
	d.record("WaitForFence", uint64(id), "signaled")
	return true, nil
}

// ResetFence resets a fence.
func (d *Device) ResetFence(id gpucore.FenceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[id]
	if !ok {
		return gpucore.ErrUnknownHandle
	}
	f.signaled = false
	d.record("ResetFence", uint64(id), "")
	return nil
}

// FenceStatus reports a fence's state.
func (d *Device) FenceStatus(id gpucore.FenceID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[id]
	if !ok {
		return false, gpucore.ErrUnknownHandle
	}
	d.record("FenceStatus", uint64(id), signaledString(f.signaled))
	return f.signaled, nil
}

// CreateSemaphore creates a semaphore.
func (d *Device) CreateSemaphore(kind gpucore.SemaphoreKind) (gpucore.SemaphoreID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateSemaphore"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.SemaphoreID(d.alloc())
	d.semaphores[id] = &semaphoreState{kind: kind}
	d.record("CreateSemaphore", uint64(id), kind.String())
	return id, nil
}

// DestroySemaphore destroys a semaphore.
func (d *Device) DestroySemaphore(id gpucore.SemaphoreID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.semaphores, id)
	d.record("DestroySemaphore", uint64(id), "")
}

func (d *Device) timeline(id gpucore.SemaphoreID) (*semaphoreState, error) {
	s, ok := d.semaphores[id]
	if !ok {
		return nil, gpucore.ErrUnknownHandle
	}
	if s.kind != gpucore.SemaphoreTimeline {
		return nil, gpucore.ErrUnsupported
	}
	return s, nil
}

// SignalSemaphore sets a timeline counter.
func (d *Device) SignalSemaphore(id gpucore.SemaphoreID, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.timeline(id)
	if err != nil {
		return err
	}
	if value > s.value {
		s.value = value
	}
	d.record("SignalSemaphore", uint64(id), fmt.Sprint(value))
	return nil
}

// WaitSemaphore checks a timeline counter. It never blocks.
func (d *Device) WaitSemaphore(id gpucore.SemaphoreID, value uint64, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.timeline(id)
	if err != nil {
		return false, err
	}
	ok := s.value >= value
	d.record("WaitSemaphore", uint64(id), signaledString(ok))
	return ok, nil
}

// SemaphoreValue returns a timeline counter.
func (d *Device) SemaphoreValue(id gpucore.SemaphoreID) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.timeline(id)
	if err != nil {
		return 0, err
	}
	return s.value, nil
}

// WaitIdle completes every pending fence.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("WaitIdle"); err != nil {
		return err
	}
	d.completeAllLocked()
	d.record("WaitIdle", 0, "")
	return nil
}

// === Command Recording ===

// CreateCommandPool creates a pool.
func (d *Device) CreateCommandPool(label string) (gpucore.CommandPoolID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateCommandPool"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.CommandPoolID(d.alloc())
	d.pools[id] = make(map[gpucore.CommandBufferID]bool)
	d.record("CreateCommandPool", uint64(id), label)
	return id, nil
}

// DestroyCommandPool destroys a pool and its buffers.
func (d *Device) DestroyCommandPool(id gpucore.CommandPoolID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for cb := range d.pools[id] {
		delete(d.buffers, cb)
	}
	delete(d.pools, id)
	d.record("DestroyCommandPool", uint64(id), "")
}

// AllocateCommandBuffer allocates a buffer.
func (d *Device) AllocateCommandBuffer(pool gpucore.CommandPoolID, level gpucore.CommandBufferLevel, label string) (gpucore.CommandBufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("AllocateCommandBuffer"); err != nil {
		return gpucore.InvalidID, err
	}
	p, ok := d.pools[pool]
	if !ok {
		return gpucore.InvalidID, gpucore.ErrUnknownHandle
	}
	id := gpucore.CommandBufferID(d.alloc())
	p[id] = true
	d.buffers[id] = pool
	d.record("AllocateCommandBuffer", uint64(id), level.String())
	return id, nil
}

// FreeCommandBuffer frees a buffer.
func (d *Device) FreeCommandBuffer(pool gpucore.CommandPoolID, id gpucore.CommandBufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pools[pool], id)
	delete(d.buffers, id)
	d.record("FreeCommandBuffer", uint64(id), "")
}

func (d *Device) buffer(op string, id gpucore.CommandBufferID) error {
	if _, ok := d.buffers[id]; !ok {
		d.record(op, uint64(id), "unknown")
		return gpucore.ErrUnknownHandle
	}
	d.record(op, uint64(id), "")
	return nil
}

// BeginCommandBuffer begins recording.
func (d *Device) BeginCommandBuffer(id gpucore.CommandBufferID, inheritance *gpucore.Inheritance) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffer("BeginCommandBuffer", id)
}

// EndCommandBuffer ends recording.
func (d *Device) EndCommandBuffer(id gpucore.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffer("EndCommandBuffer", id)
}

// ResetCommandBuffer resets a buffer.
func (d *Device) ResetCommandBuffer(id gpucore.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffer("ResetCommandBuffer", id)
}

// ExecuteCommands records secondary buffer execution.
func (d *Device) ExecuteCommands(primary gpucore.CommandBufferID, secondaries []gpucore.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range secondaries {
		if _, ok := d.buffers[s]; !ok {
			return gpucore.ErrUnknownHandle
		}
	}
	return d.buffer("ExecuteCommands", primary)
}

// Submit marks the submission fence pending.
func (d *Device) Submit(info *gpucore.SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("Submit"); err != nil {
		return err
	}
	for _, cb := range info.CommandBuffers {
		if _, ok := d.buffers[cb]; !ok {
			return gpucore.ErrUnknownHandle
		}
	}
	if info.Fence != gpucore.InvalidID {
		f, ok := d.fences[info.Fence]
		if !ok {
			return gpucore.ErrUnknownHandle
		}
		f.signaled = false
		f.pending = true
	}
	d.record("Submit", uint64(info.Fence), fmt.Sprint(len(info.CommandBuffers)))
	return nil
}

// TransitionImage records a layout transition.
func (d *Device) TransitionImage(cmd gpucore.CommandBufferID, image gpucore.ImageID, from, to gpucore.ImageLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("TransitionImage", uint64(image), from.String()+"->"+to.String())
}

// BeginRenderPass records a render pass start.
func (d *Device) BeginRenderPass(cmd gpucore.CommandBufferID, info *gpucore.RenderPassBeginInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.objects[uint64(info.RenderPass)]; !ok {
		return gpucore.ErrUnknownHandle
	}
	d.record("BeginRenderPass", uint64(info.RenderPass), fmt.Sprintf("%dx%d", info.Width, info.Height))
	return nil
}

// EndRenderPass records a render pass end.
func (d *Device) EndRenderPass(cmd gpucore.CommandBufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("EndRenderPass", uint64(cmd), "")
}

// BindPipeline records a pipeline bind.
func (d *Device) BindPipeline(cmd gpucore.CommandBufferID, pipeline gpucore.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BindPipeline", uint64(pipeline), "")
}

// Draw records a draw.
func (d *Device) Draw(cmd gpucore.CommandBufferID, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Draw", uint64(cmd), fmt.Sprintf("%dx%d", vertexCount, instanceCount))
}

// === Presentation ===

// SurfaceCapabilities returns Caps.
func (d *Device) SurfaceCapabilities() (gpucore.SurfaceCapabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("SurfaceCapabilities"); err != nil {
		return gpucore.SurfaceCapabilities{}, err
	}
	return d.Caps, nil
}

// CreateSwapchain creates a swapchain with desc.ImageCount images.
func (d *Device) CreateSwapchain(desc *gpucore.SwapchainDescriptor) (gpucore.SwapchainID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateSwapchain"); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.OldSwapchain != gpucore.InvalidID {
		if _, ok := d.swapchains[desc.OldSwapchain]; !ok {
			return gpucore.InvalidID, gpucore.ErrUnknownHandle
		}
	}
	id := gpucore.SwapchainID(d.alloc())
	sc := &swapchainState{desc: *desc}
	for i := uint32(0); i < desc.ImageCount; i++ {
		img := gpucore.ImageID(d.alloc())
		sc.images = append(sc.images, img)
		d.images[img] = id
	}
	d.swapchains[id] = sc
	d.record("CreateSwapchain", uint64(id), fmt.Sprintf("%dx%d", desc.Width, desc.Height))
	return id, nil
}

// DestroySwapchain destroys a swapchain and its images.
func (d *Device) DestroySwapchain(id gpucore.SwapchainID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sc, ok := d.swapchains[id]; ok {
		for _, img := range sc.images {
			delete(d.images, img)
		}
	}
	delete(d.swapchains, id)
	d.record("DestroySwapchain", uint64(id), "")
}

// SwapchainImages returns a swapchain's images.
func (d *Device) SwapchainImages(id gpucore.SwapchainID) ([]gpucore.ImageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchains[id]
	if !ok {
		return nil, gpucore.ErrUnknownHandle
	}
	return append([]gpucore.ImageID(nil), sc.images...), nil
}

// CreateImageView creates a view.
func (d *Device) CreateImageView(image gpucore.ImageID, format gputypes.TextureFormat) (gpucore.ImageViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("CreateImageView"); err != nil {
		return gpucore.InvalidID, err
	}
	if _, ok := d.images[image]; !ok {
		return gpucore.InvalidID, gpucore.ErrUnknownHandle
	}
	id := gpucore.ImageViewID(d.alloc())
	d.views[id] = true
	d.record("CreateImageView", uint64(id), "")
	return id, nil
}

// DestroyImageView destroys a view.
func (d *Device) DestroyImageView(id gpucore.ImageViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.views, id)
	d.record("DestroyImageView", uint64(id), "")
}

// AcquireNextImage cycles through the swapchain images unless scripted
// otherwise. Scripts run without the device lock held, so they may call
// SetExtent.
func (d *Device) AcquireNextImage(swapchain gpucore.SwapchainID, signal gpucore.SemaphoreID, timeout time.Duration) (uint32, gputypes.SurfaceStatus, error) {
	status, err := d.script(&d.acquires, d.AcquireScript)

	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchains[swapchain]
	if !ok {
		d.record("AcquireNextImage", uint64(swapchain), "unknown")
		return 0, gputypes.SurfaceStatusUnknown, gpucore.ErrUnknownHandle
	}
	if err != nil {
		d.record("AcquireNextImage", uint64(swapchain), "error")
		return 0, status, err
	}
	if status != gputypes.SurfaceStatusGood && status != gputypes.SurfaceStatusSuboptimal {
		d.record("AcquireNextImage", uint64(swapchain), status.String())
		return 0, status, nil
	}
	index := sc.next % uint32(len(sc.images))
	sc.next++
	d.record("AcquireNextImage", uint64(swapchain), fmt.Sprint(index))
	return index, status, nil
}

// Present presents unless scripted otherwise.
func (d *Device) Present(swapchain gpucore.SwapchainID, imageIndex uint32, waits []gpucore.SemaphoreID) (gputypes.SurfaceStatus, error) {
	status, err := d.script(&d.presents, d.PresentScript)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.swapchains[swapchain]; !ok {
		return gputypes.SurfaceStatusUnknown, gpucore.ErrUnknownHandle
	}
	if err != nil {
		d.record("Present", uint64(swapchain), "error")
		return status, err
	}
	d.record("Present", uint64(swapchain), status.String())
	return status, nil
}

func (d *Device) script(counter *int, fn StatusFunc) (gputypes.SurfaceStatus, error) {
	d.mu.Lock()
	*counter++
	n := *counter
	d.mu.Unlock()
	if fn == nil {
		return gputypes.SurfaceStatusGood, nil
	}
	return fn(n)
}

// === Resources ===

func (d *Device) create(op, kind string) (uint64, error) {
	if err := d.fail(op); err != nil {
		return gpucore.InvalidID, err
	}
	id := d.alloc()
	d.objects[id] = kind
	d.record(op, id, "")
	return id, nil
}

func (d *Device) destroy(op string, id uint64) {
	delete(d.objects, id)
	d.record(op, id, "")
}

// CreateRenderPass creates a render pass.
func (d *Device) CreateRenderPass(desc *gpucore.RenderPassDescriptor) (gpucore.RenderPassID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create("CreateRenderPass", "render pass")
	return gpucore.RenderPassID(id), err
}

// DestroyRenderPass destroys a render pass.
func (d *Device) DestroyRenderPass(id gpucore.RenderPassID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("DestroyRenderPass", uint64(id))
}

// CreateFramebuffer creates a framebuffer.
func (d *Device) CreateFramebuffer(desc *gpucore.FramebufferDescriptor) (gpucore.FramebufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create("CreateFramebuffer", "framebuffer")
	return gpucore.FramebufferID(id), err
}

// DestroyFramebuffer destroys a framebuffer.
func (d *Device) DestroyFramebuffer(id gpucore.FramebufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("DestroyFramebuffer", uint64(id))
}

// CreateShaderModule creates a shader module.
func (d *Device) CreateShaderModule(desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create("CreateShaderModule", "shader module")
	return gpucore.ShaderModuleID(id), err
}

// DestroyShaderModule destroys a shader module.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("DestroyShaderModule", uint64(id))
}

// CreatePipeline creates a pipeline.
func (d *Device) CreatePipeline(desc *gpucore.PipelineDescriptor) (gpucore.PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create("CreatePipeline", "pipeline")
	return gpucore.PipelineID(id), err
}

// DestroyPipeline destroys a pipeline.
func (d *Device) DestroyPipeline(id gpucore.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("DestroyPipeline", uint64(id))
}

// CreateTexture creates a texture and its view.
func (d *Device) CreateTexture(desc *gpucore.TextureDescriptor) (gpucore.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.create("CreateTexture", "texture")
	if err != nil {
		return gpucore.Texture{}, err
	}
	return gpucore.Texture{
		ID:     gpucore.TextureID(id),
		View:   gpucore.ImageViewID(d.alloc()),
		Format: desc.Format,
		Width:  desc.Width,
		Height: desc.Height,
	}, nil
}

// DestroyTexture destroys a texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("DestroyTexture", uint64(id))
}

// === Pipeline Cache ===

// PipelineCacheData returns the blob set by SetPipelineCacheData or loaded
// with LoadPipelineCacheData.
func (d *Device) PipelineCacheData() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("PipelineCacheData", 0, fmt.Sprint(len(d.cacheData)))
	return append([]byte(nil), d.cacheData...), nil
}

// LoadPipelineCacheData stores the blob.
func (d *Device) LoadPipelineCacheData(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("LoadPipelineCacheData"); err != nil {
		return err
	}
	d.cacheData = append([]byte(nil), data...)
	d.record("LoadPipelineCacheData", 0, fmt.Sprint(len(data)))
	return nil
}
