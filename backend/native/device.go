// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// defaultPollInterval is how often timed waits poll for completion.
const defaultPollInterval = 100 * time.Microsecond

// Config wraps already-opened hal objects. Device and Queue are required.
// Adapter and Surface are required for presentation.
type Config struct {
	Device  hal.Device
	Queue   hal.Queue
	Adapter hal.Adapter
	Surface hal.Surface

	// Info identifies the adapter. It keys the persisted pipeline cache.
	Info gputypes.AdapterInfo

	// Limits are the device limits. Nil means gputypes.DefaultLimits.
	Limits *gputypes.Limits
}

// Device implements gpucore.Device using gogpu/wgpu/hal directly.
//
// Thread Safety: Device is safe for concurrent use. Object tables are
// protected by a mutex; hal calls that may block are made without it.
type Device struct {
	mu      sync.Mutex
	device  hal.Device
	queue   hal.Queue
	adapter hal.Adapter
	surface hal.Surface
	info    gputypes.AdapterInfo
	limits  gputypes.Limits

	// instance is set when the device was created by Open; Close releases it.
	instance hal.Instance

	nextID atomic.Uint64
	poll   time.Duration

	// lastSubmission is the newest index returned by Queue.Submit.
	lastSubmission uint64

	fences       map[gpucore.FenceID]*fence
	semaphores   map[gpucore.SemaphoreID]*semaphore
	pools        map[gpucore.CommandPoolID]*commandPool
	buffers      map[gpucore.CommandBufferID]*commandBuffer
	swapchains   map[gpucore.SwapchainID]*swapchain
	images       map[gpucore.ImageID]*swapchainImage
	views        map[gpucore.ImageViewID]*imageView
	renderPasses map[gpucore.RenderPassID]gpucore.RenderPassDescriptor
	framebuffers map[gpucore.FramebufferID]gpucore.FramebufferDescriptor
	shaders      map[gpucore.ShaderModuleID]hal.ShaderModule
	pipelines    map[gpucore.PipelineID]*pipeline
	textures     map[gpucore.TextureID]*texture

	// configured is the swapchain the surface is currently configured for.
	configured gpucore.SwapchainID

	spirv spirvCache
}

var _ gpucore.Device = (*Device)(nil)

// New wraps hal objects in a Device.
func New(cfg Config) (*Device, error) {
	if cfg.Device == nil || cfg.Queue == nil {
		return nil, fmt.Errorf("%w: nil hal device or queue", ErrInitDevice)
	}
	limits := gputypes.DefaultLimits()
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}
	d := &Device{
		device:       cfg.Device,
		queue:        cfg.Queue,
		adapter:      cfg.Adapter,
		surface:      cfg.Surface,
		info:         cfg.Info,
		limits:       limits,
		poll:         defaultPollInterval,
		fences:       make(map[gpucore.FenceID]*fence),
		semaphores:   make(map[gpucore.SemaphoreID]*semaphore),
		pools:        make(map[gpucore.CommandPoolID]*commandPool),
		buffers:      make(map[gpucore.CommandBufferID]*commandBuffer),
		swapchains:   make(map[gpucore.SwapchainID]*swapchain),
		images:       make(map[gpucore.ImageID]*swapchainImage),
		views:        make(map[gpucore.ImageViewID]*imageView),
		renderPasses: make(map[gpucore.RenderPassID]gpucore.RenderPassDescriptor),
		framebuffers: make(map[gpucore.FramebufferID]gpucore.FramebufferDescriptor),
		shaders:      make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		pipelines:    make(map[gpucore.PipelineID]*pipeline),
		textures:     make(map[gpucore.TextureID]*texture),
		spirv:        spirvCache{words: make(map[uint64][]uint32)},
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d, nil
}

// newID generates a unique object ID.
func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Info returns adapter metadata.
func (d *Device) Info() gputypes.AdapterInfo {
	return d.info
}

// Limits returns the device limits.
func (d *Device) Limits() gputypes.Limits {
	return d.limits
}

// Close waits for the GPU and releases the hal device, surface, adapter and
// instance. Objects still alive in the device tables are leaked to the
// driver; callers destroy them first.
func (d *Device) Close() {
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("native: wait idle on close", "err", err)
	}
	d.mu.Lock()
	live := len(d.fences) + len(d.semaphores) + len(d.pools) + len(d.swapchains) +
		len(d.renderPasses) + len(d.framebuffers) + len(d.shaders) + len(d.pipelines) + len(d.textures)
	d.mu.Unlock()
	if live > 0 {
		slogger().Warn("native: closing device with live objects", "count", live)
	}
	if d.surface != nil {
		d.surface.Unconfigure(d.device)
	}
	d.device.Destroy()
	if d.surface != nil {
		d.surface.Destroy()
	}
	if d.adapter != nil {
		d.adapter.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
}

// === Synchronization ===

type fence struct {
	signaled bool

	// submission is the queue index that signals the fence, or 0.
	submission uint64
}

type semaphore struct {
	kind  gpucore.SemaphoreKind
	value uint64
}

// CreateFence creates a fence, optionally already signaled.
func (d *Device) CreateFence(signaled bool) (gpucore.FenceID, error) {
	id := gpucore.FenceID(d.newID())
	d.mu.Lock()
	d.fences[id] = &fence{signaled: signaled}
	d.mu.Unlock()
	return id, nil
}

// DestroyFence releases a fence.
func (d *Device) DestroyFence(id gpucore.FenceID) {
	d.mu.Lock()
	delete(d.fences, id)
	d.mu.Unlock()
}

// FenceStatus reports whether the fence's submission has completed.
func (d *Device) FenceStatus(id gpucore.FenceID) (bool, error) {
	completed := d.queue.PollCompleted()
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[id]
	if !ok {
		return false, unknown("fence", uint64(id))
	}
	if !f.signaled && f.submission != 0 && completed >= f.submission {
		f.signaled = true
	}
	return f.signaled, nil
}

// WaitForFence blocks until the fence signals or timeout elapses.
// An infinite wait drains the device.
func (d *Device) WaitForFence(id gpucore.FenceID, timeout time.Duration) (bool, error) {
	if timeout == gpucore.Infinite {
		ok, err := d.FenceStatus(id)
		if err != nil || ok {
			return ok, err
		}
		if err := d.WaitIdle(); err != nil {
			return false, err
		}
		return d.FenceStatus(id)
	}
	return d.pollUntil(timeout, func() (bool, error) { return d.FenceStatus(id) })
}

// ResetFence returns the fence to the unsignaled state.
func (d *Device) ResetFence(id gpucore.FenceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.fences[id]
	if !ok {
		return unknown("fence", uint64(id))
	}
	f.signaled = false
	f.submission = 0
	return nil
}

// CreateSemaphore creates a semaphore. Binary semaphores are bookkeeping
// only; hal synchronizes swapchain images internally.
func (d *Device) CreateSemaphore(kind gpucore.SemaphoreKind) (gpucore.SemaphoreID, error) {
	id := gpucore.SemaphoreID(d.newID())
	d.mu.Lock()
	d.semaphores[id] = &semaphore{kind: kind}
	d.mu.Unlock()
	return id, nil
}

// DestroySemaphore releases a semaphore.
func (d *Device) DestroySemaphore(id gpucore.SemaphoreID) {
	d.mu.Lock()
	delete(d.semaphores, id)
	d.mu.Unlock()
}

// timeline returns a timeline semaphore. Caller must hold d.mu.
func (d *Device) timeline(id gpucore.SemaphoreID) (*semaphore, error) {
	s, ok := d.semaphores[id]
	if !ok {
		return nil, unknown("semaphore", uint64(id))
	}
	if s.kind != gpucore.SemaphoreTimeline {
		return nil, fmt.Errorf("native: semaphore %d is binary: %w", id, gpucore.ErrUnsupported)
	}
	return s, nil
}

// SignalSemaphore advances a timeline counter. Values never decrease.
func (d *Device) SignalSemaphore(id gpucore.SemaphoreID, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.timeline(id)
	if err != nil {
		return err
	}
	s.value = max(s.value, value)
	return nil
}

// WaitSemaphore blocks until a timeline counter reaches value.
func (d *Device) WaitSemaphore(id gpucore.SemaphoreID, value uint64, timeout time.Duration) (bool, error) {
	return d.pollUntil(timeout, func() (bool, error) {
		v, err := d.SemaphoreValue(id)
		return v >= value, err
	})
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

// WaitIdle blocks until the GPU is idle and marks every submitted fence
// signaled.
func (d *Device) WaitIdle() error {
	if err := d.device.WaitIdle(); err != nil {
		return mapError(err)
	}
	d.mu.Lock()
	for _, f := range d.fences {
		if f.submission != 0 && f.submission <= d.lastSubmission {
			f.signaled = true
		}
	}
	d.mu.Unlock()
	return nil
}

// pollUntil calls check until it reports true, fails, or timeout elapses.
// A zero timeout checks once.
func (d *Device) pollUntil(timeout time.Duration, check func() (bool, error)) (bool, error) {
	var deadline time.Time
	if timeout != gpucore.Infinite {
		deadline = time.Now().Add(timeout)
	}
	for {
		ok, err := check()
		if err != nil || ok {
			return ok, err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(d.poll)
	}
}

// errNoSurface reports presentation on a headless device.
var errNoSurface = errors.New("native: device has no surface")
