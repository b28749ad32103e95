// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpuframe/command"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
)

// Image is one presentable image with its view and tracked layout.
type Image struct {
	Index  uint32
	Image  gpucore.ImageID
	View   gpucore.ImageViewID
	Layout gpucore.ImageLayout
}

// Manager owns a swapchain and drives acquire/present.
//
// Manager is not safe for concurrent use.
type Manager struct {
	dev    gpucore.Device
	cfg    Config
	window gpucontext.WindowProvider

	id          gpucore.SwapchainID
	images      []Image
	format      gputypes.TextureFormat
	presentMode gputypes.PresentMode
	alphaMode   gputypes.CompositeAlphaMode
	imageCount  uint32
	extent      gpucore.Extent2D
	vsync       bool

	current  uint32
	acquired bool

	failures      int
	resizePending bool
	recreations   int
}

// New creates an uninitialized manager.
func New(dev gpucore.Device, cfg Config) *Manager {
	return &Manager{dev: dev, cfg: cfg.withDefaults()}
}

// Init selects the surface format, present mode and image count and creates
// the first swapchain.
//
// The extent is extentHint when non-zero, else the surface's current extent,
// else the window size scaled to physical pixels. A zero extent (minimized
// window) defers creation: the manager reports a pending resize until a
// non-zero size arrives through OnResize.
func (m *Manager) Init(vsync bool, window gpucontext.WindowProvider, extentHint gpucore.Extent2D) error {
	if m.dev == nil {
		return fmt.Errorf("%w: nil device", ErrSurfaceUnusable)
	}
	m.window = window
	m.vsync = vsync

	caps, err := m.dev.SurfaceCapabilities()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSurfaceUnusable, err)
	}
	if len(caps.Formats) == 0 {
		return fmt.Errorf("%w: surface reports no formats", ErrSurfaceUnusable)
	}
	count, err := chooseImageCount(caps, m.cfg.MaxBufferCount)
	if err != nil {
		return err
	}
	m.format = chooseFormat(caps.Formats, m.cfg.PreferredFormat)
	m.presentMode = choosePresentMode(caps.PresentModes, vsync)
	m.alphaMode = chooseAlphaMode(caps.AlphaModes)
	m.imageCount = count

	extent := extentHint
	if extent.IsZero() {
		extent = m.surfaceExtent(caps)
	}

	slogger().Info("swapchain: init",
		"format", m.format,
		"present_mode", m.presentMode,
		"images", m.imageCount,
		"width", extent.Width,
		"height", extent.Height)

	if extent.IsZero() {
		slogger().Debug("swapchain: zero extent at init, deferring creation")
		m.resizePending = true
		return nil
	}
	return m.recreate(extent)
}

// SurfaceExtent returns the size the swapchain should have now, from the
// surface if it reports one and from the window otherwise.
func (m *Manager) SurfaceExtent() gpucore.Extent2D {
	caps, err := m.dev.SurfaceCapabilities()
	if err != nil {
		slogger().Warn("swapchain: surface capabilities query failed", "err", err)
		return m.windowExtent(caps)
	}
	return m.surfaceExtent(caps)
}

func (m *Manager) surfaceExtent(caps gpucore.SurfaceCapabilities) gpucore.Extent2D {
	cur := caps.CurrentExtent
	if cur.Width != gpucore.UndefinedExtent && cur.Height != gpucore.UndefinedExtent {
		return cur
	}
	return m.windowExtent(caps)
}

func (m *Manager) windowExtent(caps gpucore.SurfaceCapabilities) gpucore.Extent2D {
	if m.window == nil {
		return gpucore.Extent2D{}
	}
	w, h := m.window.Size()
	scale := m.window.ScaleFactor()
	e := gpucore.Extent2D{
		Width:  uint32(math.Max(0, math.Round(float64(w)*scale))),
		Height: uint32(math.Max(0, math.Round(float64(h)*scale))),
	}
	return clampExtent(e, caps)
}

// AcquireNextImage acquires the next image, signaling sem when it is ready.
//
// Transient conditions never return an error:
//   - Outdated: the swapchain is recreated at the current surface extent and
//     the caller retries next frame.
//   - Timeout, or a hard failure below the retry limit: retry next frame.
//
// A surface or device loss is fatal, and so is the (MaxAcquireFailures+1)th
// consecutive hard failure (ErrAcquireFailed).
func (m *Manager) AcquireNextImage(sem *command.Semaphore) (uint32, gputypes.SurfaceStatus, error) {
	m.acquired = false
	if m.id == gpucore.InvalidID {
		m.resizePending = true
		return 0, gputypes.SurfaceStatusOutdated, nil
	}

	index, status, err := m.dev.AcquireNextImage(m.id, sem.ID(), m.cfg.AcquireTimeout)
	if err != nil {
		if errors.Is(err, gpucore.ErrSurfaceLost) || errors.Is(err, gpucore.ErrDeviceLost) {
			return 0, gputypes.SurfaceStatusLost, fmt.Errorf("swapchain: acquire: %w", err)
		}
		m.failures++
		if m.failures > m.cfg.MaxAcquireFailures {
			return 0, gputypes.SurfaceStatusUnknown, fmt.Errorf("%w after %d attempts: %w", ErrAcquireFailed, m.failures, err)
		}
		slogger().Warn("swapchain: acquire failed, retrying next frame", "attempt", m.failures, "err", err)
		return 0, gputypes.SurfaceStatusUnknown, nil
	}

	switch status {
	case gputypes.SurfaceStatusGood, gputypes.SurfaceStatusSuboptimal:
		m.failures = 0
		m.current = index
		m.acquired = true
		if status == gputypes.SurfaceStatusSuboptimal {
			m.resizePending = true
		}
		return index, status, nil

	case gputypes.SurfaceStatusOutdated:
		m.failures = 0
		slogger().Warn("swapchain: out of date on acquire, recreating")
		m.resizePending = true
		e := m.SurfaceExtent()
		if _, err := m.OnResize(e.Width, e.Height, true); err != nil {
			return 0, status, err
		}
		return 0, status, nil

	case gputypes.SurfaceStatusTimeout:
		slogger().Debug("swapchain: acquire timed out")
		return 0, status, nil

	case gputypes.SurfaceStatusLost:
		return 0, status, fmt.Errorf("swapchain: acquire: %w", gpucore.ErrSurfaceLost)

	default:
		m.failures++
		if m.failures > m.cfg.MaxAcquireFailures {
			return 0, status, fmt.Errorf("%w after %d attempts: status %s", ErrAcquireFailed, m.failures, status)
		}
		return 0, status, nil
	}
}

// Present presents the acquired image once every wait semaphore signals.
// Outdated and Suboptimal results mark a pending resize and return no error.
func (m *Manager) Present(waits ...*command.Semaphore) (gputypes.SurfaceStatus, error) {
	if !m.acquired {
		return gputypes.SurfaceStatusUnknown, ErrNotAcquired
	}
	m.acquired = false

	ids := make([]gpucore.SemaphoreID, 0, len(waits))
	for _, s := range waits {
		if s != nil {
			ids = append(ids, s.ID())
		}
	}
	status, err := m.dev.Present(m.id, m.current, ids)
	if err != nil {
		if errors.Is(err, gpucore.ErrSurfaceLost) || errors.Is(err, gpucore.ErrDeviceLost) {
			return gputypes.SurfaceStatusLost, fmt.Errorf("swapchain: present: %w", err)
		}
		slogger().Warn("swapchain: present failed, scheduling resize", "err", err)
		m.resizePending = true
		return gputypes.SurfaceStatusUnknown, nil
	}

	switch status {
	case gputypes.SurfaceStatusOutdated, gputypes.SurfaceStatusSuboptimal:
		slogger().Debug("swapchain: present needs resize", "status", status)
		m.resizePending = true
	case gputypes.SurfaceStatusLost:
		return status, fmt.Errorf("swapchain: present: %w", gpucore.ErrSurfaceLost)
	}
	m.images[m.current].Layout = gpucore.LayoutUndefined
	return status, nil
}

// Abandon gives up the acquired image without presenting it. The image only
// returns to the swapchain through recreation, so a forced resize is
// scheduled.
func (m *Manager) Abandon() {
	if !m.acquired {
		return
	}
	slogger().Warn("swapchain: acquired image abandoned", "index", m.current)
	m.acquired = false
	m.resizePending = true
}

// OnResize recreates the swapchain at width x height.
//
// The size is clamped to the surface limits first. Returns false without
// recreating when either dimension is zero, or when the clamped size is
// unchanged and force is false. Otherwise the device is drained, a new
// swapchain is created with the old one as handoff, and the old images,
// views and swapchain are destroyed.
func (m *Manager) OnResize(width, height uint32, force bool) (bool, error) {
	if width == 0 || height == 0 {
		slogger().Debug("swapchain: zero-area resize ignored", "width", width, "height", height)
		return false, nil
	}
	extent := gpucore.Extent2D{Width: width, Height: height}
	if caps, err := m.dev.SurfaceCapabilities(); err == nil {
		extent = clampExtent(extent, caps)
	}
	if !force && m.id != gpucore.InvalidID && m.extent == extent {
		return false, nil
	}
	if err := m.recreate(extent); err != nil {
		return false, err
	}
	return true, nil
}

// SetVSync changes the present mode, recreating the swapchain when the
// setting changes.
func (m *Manager) SetVSync(vsync bool) error {
	if vsync == m.vsync {
		return nil
	}
	m.vsync = vsync
	caps, err := m.dev.SurfaceCapabilities()
	if err != nil {
		return fmt.Errorf("swapchain: set vsync: %w", err)
	}
	m.presentMode = choosePresentMode(caps.PresentModes, vsync)
	if m.id == gpucore.InvalidID {
		return nil
	}
	_, err = m.OnResize(m.extent.Width, m.extent.Height, true)
	return err
}

func (m *Manager) recreate(extent gpucore.Extent2D) error {
	if err := m.dev.WaitIdle(); err != nil {
		return fmt.Errorf("swapchain: wait idle: %w", err)
	}

	if caps, err := m.dev.SurfaceCapabilities(); err == nil {
		extent = clampExtent(extent, caps)
	}

	old := m.id
	id, err := m.dev.CreateSwapchain(&gpucore.SwapchainDescriptor{
		Width:        extent.Width,
		Height:       extent.Height,
		ImageCount:   m.imageCount,
		Format:       m.format,
		PresentMode:  m.presentMode,
		AlphaMode:    m.alphaMode,
		Usage:        m.cfg.Usage,
		OldSwapchain: old,
	})
	if err != nil {
		return fmt.Errorf("swapchain: create %dx%d: %w", extent.Width, extent.Height, err)
	}

	m.destroyImages()
	if old != gpucore.InvalidID {
		m.dev.DestroySwapchain(old)
	}
	m.id = id

	if err := m.buildImages(); err != nil {
		return err
	}
	if err := m.dev.WaitIdle(); err != nil {
		return fmt.Errorf("swapchain: wait idle: %w", err)
	}

	m.extent = extent
	m.current = 0
	m.acquired = false
	m.resizePending = false
	m.recreations++
	slogger().Info("swapchain: created",
		"id", id,
		"width", extent.Width,
		"height", extent.Height,
		"images", len(m.images))
	return nil
}

func (m *Manager) buildImages() error {
	ids, err := m.dev.SwapchainImages(m.id)
	if err != nil {
		return fmt.Errorf("swapchain: images: %w", err)
	}
	m.images = make([]Image, 0, len(ids))
	for i, img := range ids {
		view, err := m.dev.CreateImageView(img, m.format)
		if err != nil {
			return fmt.Errorf("swapchain: view for image %d: %w", i, err)
		}
		m.images = append(m.images, Image{
			Index:  uint32(i),
			Image:  img,
			View:   view,
			Layout: gpucore.LayoutUndefined,
		})
	}
	return nil
}

func (m *Manager) destroyImages() {
	for _, img := range m.images {
		if img.View != gpucore.InvalidID {
			m.dev.DestroyImageView(img.View)
		}
	}
	m.images = nil
}

// Transition records a layout change of the acquired image into buf and
// updates the tracked layout.
func (m *Manager) Transition(buf *command.Buffer, to gpucore.ImageLayout) error {
	if !m.acquired {
		return ErrNotAcquired
	}
	img := &m.images[m.current]
	if img.Layout == to {
		return nil
	}
	if err := buf.TransitionImage(img.Image, img.Layout, to); err != nil {
		return err
	}
	img.Layout = to
	return nil
}

// Destroy releases the swapchain. The caller must ensure the device is idle.
func (m *Manager) Destroy() {
	m.destroyImages()
	if m.id != gpucore.InvalidID {
		m.dev.DestroySwapchain(m.id)
		m.id = gpucore.InvalidID
	}
	m.acquired = false
}

// ID returns the current swapchain handle.
func (m *Manager) ID() gpucore.SwapchainID { return m.id }

// Images returns a copy of the per-image data.
func (m *Manager) Images() []Image { return slices.Clone(m.images) }

// Current returns the acquired image. ok is false when no image is acquired.
func (m *Manager) Current() (img Image, ok bool) {
	if !m.acquired {
		return Image{}, false
	}
	return m.images[m.current], true
}

// CurrentIndex returns the last acquired image index.
func (m *Manager) CurrentIndex() uint32 { return m.current }

// Extent returns the swapchain extent.
func (m *Manager) Extent() gpucore.Extent2D { return m.extent }

// Format returns the selected surface format.
func (m *Manager) Format() gputypes.TextureFormat { return m.format }

// PresentMode returns the selected present mode.
func (m *Manager) PresentMode() gputypes.PresentMode { return m.presentMode }

// ImageCount returns the requested image count.
func (m *Manager) ImageCount() uint32 { return m.imageCount }

// VSync reports the vsync setting.
func (m *Manager) VSync() bool { return m.vsync }

// ResizePending reports whether acquire or present asked for a resize that
// has not happened yet.
func (m *Manager) ResizePending() bool { return m.resizePending }

// Recreations returns how many swapchains have been created.
func (m *Manager) Recreations() int { return m.recreations }
