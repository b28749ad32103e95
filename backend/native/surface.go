// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Image counts reported for hal surfaces, which manage their own queue of
// presentable textures.
const (
	surfaceMinImages = 2
	surfaceMaxImages = 3
)

type swapchain struct {
	config hal.SurfaceConfiguration
	images []gpucore.ImageID
	next   uint32
}

// swapchainImage is one slot of the ring. texture and view are set between
// acquire and present.
type swapchainImage struct {
	swapchain gpucore.SwapchainID
	format    gputypes.TextureFormat
	texture   hal.SurfaceTexture
	view      hal.TextureView
}

// SurfaceCapabilities queries the adapter for the surface's formats and
// modes. hal does not report the surface size, so CurrentExtent is
// undefined and callers size the swapchain from the window.
func (d *Device) SurfaceCapabilities() (gpucore.SurfaceCapabilities, error) {
	if d.surface == nil || d.adapter == nil {
		return gpucore.SurfaceCapabilities{}, errNoSurface
	}
	caps := d.adapter.SurfaceCapabilities(d.surface)
	if caps == nil {
		return gpucore.SurfaceCapabilities{}, fmt.Errorf("native: adapter cannot present to surface: %w", gpucore.ErrSurfaceLost)
	}
	maxDim := d.limits.MaxTextureDimension2D
	return gpucore.SurfaceCapabilities{
		Formats:       caps.Formats,
		PresentModes:  caps.PresentModes,
		AlphaModes:    caps.AlphaModes,
		MinImageCount: surfaceMinImages,
		MaxImageCount: surfaceMaxImages,
		CurrentExtent: gpucore.Extent2D{Width: gpucore.UndefinedExtent, Height: gpucore.UndefinedExtent},
		MinExtent:     gpucore.Extent2D{Width: 1, Height: 1},
		MaxExtent:     gpucore.Extent2D{Width: maxDim, Height: maxDim},
	}, nil
}

// CreateSwapchain configures the surface and allocates desc.ImageCount
// image slots. Reconfiguring retires the old swapchain; its slots stay
// valid until DestroySwapchain.
func (d *Device) CreateSwapchain(desc *gpucore.SwapchainDescriptor) (gpucore.SwapchainID, error) {
	if d.surface == nil {
		return gpucore.InvalidID, errNoSurface
	}
	config := hal.SurfaceConfiguration{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      desc.Format,
		Usage:       desc.Usage,
		PresentMode: desc.PresentMode,
		AlphaMode:   desc.AlphaMode,
	}
	if err := d.surface.Configure(d.device, &config); err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: configure surface %dx%d: %w", desc.Width, desc.Height, mapError(err))
	}

	id := gpucore.SwapchainID(d.newID())
	sc := &swapchain{config: config}
	d.mu.Lock()
	for range max(desc.ImageCount, 1) {
		img := gpucore.ImageID(d.newID())
		d.images[img] = &swapchainImage{swapchain: id, format: desc.Format}
		sc.images = append(sc.images, img)
	}
	d.swapchains[id] = sc
	d.configured = id
	d.mu.Unlock()

	slogger().Info("native: surface configured",
		"width", desc.Width, "height", desc.Height,
		"format", desc.Format, "present_mode", desc.PresentMode, "images", len(sc.images))
	return id, nil
}

// DestroySwapchain releases the slots. The surface is unconfigured only if
// this swapchain is the one it is configured for.
func (d *Device) DestroySwapchain(id gpucore.SwapchainID) {
	d.mu.Lock()
	sc, ok := d.swapchains[id]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.swapchains, id)
	var held []*swapchainImage
	for _, img := range sc.images {
		if s := d.images[img]; s != nil && s.texture != nil {
			held = append(held, s)
		}
		delete(d.images, img)
	}
	current := d.configured == id
	if current {
		d.configured = gpucore.InvalidID
	}
	d.mu.Unlock()

	for _, s := range held {
		d.releaseAcquired(s, true)
	}
	if current {
		d.surface.Unconfigure(d.device)
	}
}

// SwapchainImages returns the slot IDs in index order.
func (d *Device) SwapchainImages(id gpucore.SwapchainID) ([]gpucore.ImageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchains[id]
	if !ok {
		return nil, unknown("swapchain", uint64(id))
	}
	return append([]gpucore.ImageID(nil), sc.images...), nil
}

// CreateImageView creates a view of a swapchain slot. The hal view behind it
// changes every frame and is resolved when a render pass begins.
func (d *Device) CreateImageView(image gpucore.ImageID, format gputypes.TextureFormat) (gpucore.ImageViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[image]; !ok {
		return gpucore.InvalidID, unknown("image", uint64(image))
	}
	id := gpucore.ImageViewID(d.newID())
	d.views[id] = &imageView{image: image, format: format}
	return id, nil
}

// DestroyImageView releases a view.
func (d *Device) DestroyImageView(id gpucore.ImageViewID) {
	d.mu.Lock()
	v, ok := d.views[id]
	if ok && v.owner == gpucore.InvalidID {
		delete(d.views, id)
	}
	d.mu.Unlock()
}

// AcquireNextImage acquires a surface texture into the next slot.
func (d *Device) AcquireNextImage(id gpucore.SwapchainID, signal gpucore.SemaphoreID, timeout time.Duration) (uint32, gputypes.SurfaceStatus, error) {
	d.mu.Lock()
	sc, ok := d.swapchains[id]
	current := d.configured == id
	d.mu.Unlock()
	if !ok {
		return 0, gputypes.SurfaceStatusUnknown, unknown("swapchain", uint64(id))
	}
	if !current {
		return 0, gputypes.SurfaceStatusOutdated, nil
	}

	acquired, err := d.surface.AcquireTexture(nil)
	if err != nil {
		status, err := surfaceStatus(err)
		slogger().Debug("native: acquire failed", "status", status, "err", err)
		return 0, status, err
	}

	view, err := d.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           "swapchain",
		Format:          sc.config.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		d.surface.DiscardTexture(acquired.Texture)
		return 0, gputypes.SurfaceStatusUnknown, fmt.Errorf("native: swapchain view: %w", mapError(err))
	}

	d.mu.Lock()
	index := sc.next % uint32(len(sc.images))
	sc.next++
	img := d.images[sc.images[index]]
	stale := *img
	img.texture = acquired.Texture
	img.view = view
	d.mu.Unlock()

	if stale.texture != nil {
		// The previous frame in this slot was never presented.
		d.releaseAcquired(&stale, true)
	}

	if acquired.Suboptimal {
		return index, gputypes.SurfaceStatusSuboptimal, nil
	}
	return index, gputypes.SurfaceStatusGood, nil
}

// Present presents the texture acquired into imageIndex.
func (d *Device) Present(id gpucore.SwapchainID, imageIndex uint32, waits []gpucore.SemaphoreID) (gputypes.SurfaceStatus, error) {
	d.mu.Lock()
	sc, ok := d.swapchains[id]
	if !ok || int(imageIndex) >= len(sc.images) {
		d.mu.Unlock()
		return gputypes.SurfaceStatusUnknown, unknown("swapchain", uint64(id))
	}
	img := d.images[sc.images[imageIndex]]
	held := *img
	img.texture = nil
	img.view = nil
	d.mu.Unlock()

	if held.texture == nil {
		return gputypes.SurfaceStatusUnknown, fmt.Errorf("native: present of unacquired image %d", imageIndex)
	}
	err := d.queue.Present(d.surface, held.texture, nil)
	d.releaseAcquired(&held, false)
	return surfaceStatus(err)
}

// releaseAcquired destroys the frame view and, when discard is set, hands
// the unpresented texture back to the surface.
func (d *Device) releaseAcquired(img *swapchainImage, discard bool) {
	if img.view != nil {
		d.device.DestroyTextureView(img.view)
	}
	if discard && img.texture != nil {
		d.surface.DiscardTexture(img.texture)
	}
}
