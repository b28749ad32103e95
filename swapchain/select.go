// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
)

// chooseFormat returns preferred if supported, else the first supported
// format. A surface that only reports Undefined accepts any format.
func chooseFormat(formats []gputypes.TextureFormat, preferred gputypes.TextureFormat) gputypes.TextureFormat {
	if len(formats) == 1 && formats[0] == gputypes.TextureFormatUndefined {
		return preferred
	}
	if slices.Contains(formats, preferred) {
		return preferred
	}
	return formats[0]
}

// choosePresentMode prefers Mailbox with vsync and Immediate without,
// falling back to FIFO, which every surface supports.
func choosePresentMode(modes []gputypes.PresentMode, vsync bool) gputypes.PresentMode {
	want := gputypes.PresentModeImmediate
	if vsync {
		want = gputypes.PresentModeMailbox
	}
	if slices.Contains(modes, want) {
		return want
	}
	return gputypes.PresentModeFifo
}

func chooseAlphaMode(modes []gputypes.CompositeAlphaMode) gputypes.CompositeAlphaMode {
	if len(modes) == 0 || slices.Contains(modes, gputypes.CompositeAlphaModeOpaque) {
		return gputypes.CompositeAlphaModeOpaque
	}
	return modes[0]
}

// chooseImageCount starts at limit, clamps to the device maximum and raises
// to the device minimum. Fewer than two images cannot double buffer.
func chooseImageCount(caps gpucore.SurfaceCapabilities, limit uint32) (uint32, error) {
	n := limit
	if caps.MaxImageCount != 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	if n < caps.MinImageCount {
		n = caps.MinImageCount
	}
	if n < 2 {
		return 0, fmt.Errorf("%w: %d images available, need at least 2", ErrSurfaceUnusable, n)
	}
	return n, nil
}

// clampExtent clamps e to the surface limits. Zero limits are ignored.
func clampExtent(e gpucore.Extent2D, caps gpucore.SurfaceCapabilities) gpucore.Extent2D {
	clamp := func(v, lo, hi uint32) uint32 {
		if hi != 0 && v > hi {
			v = hi
		}
		if v != 0 && v < lo {
			v = lo
		}
		return v
	}
	return gpucore.Extent2D{
		Width:  clamp(e.Width, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(e.Height, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}
