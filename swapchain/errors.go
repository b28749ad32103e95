// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import "errors"

var (
	// ErrSurfaceUnusable is returned by Init when the surface cannot back a
	// swapchain. It is fatal.
	ErrSurfaceUnusable = errors.New("swapchain: surface unusable")

	// ErrAcquireFailed is returned once image acquisition has failed more
	// than the configured number of times in a row.
	ErrAcquireFailed = errors.New("swapchain: image acquisition keeps failing")

	// ErrNotAcquired is returned by Present and Transition when no image is
	// currently acquired.
	ErrNotAcquired = errors.New("swapchain: no image acquired")
)
