// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Package errors for the native backend.
var (
	// ErrNoBackend is returned when no hal backend is registered under the
	// requested name.
	ErrNoBackend = errors.New("native: no hal backend available")

	// ErrNoAdapter is returned when no GPU adapter is available.
	ErrNoAdapter = errors.New("native: no GPU adapter available")

	// ErrInitInstance is returned when the hal instance cannot be created.
	ErrInitInstance = errors.New("native: create instance failed")

	// ErrInitSurface is returned when the window surface cannot be created.
	ErrInitSurface = errors.New("native: create surface failed")

	// ErrInitDevice is returned when the logical device cannot be opened.
	ErrInitDevice = errors.New("native: open device failed")

	// ErrNotRecording is returned for recording commands outside
	// BeginCommandBuffer/EndCommandBuffer or outside a render pass.
	ErrNotRecording = errors.New("native: command buffer not recording")

	// ErrCorruptCache is returned by LoadPipelineCacheData for malformed
	// blobs.
	ErrCorruptCache = errors.New("native: corrupt pipeline cache data")
)

// mapError translates hal sentinels into gpucore sentinels, keeping the
// original error in the chain.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("%w: %w", gpucore.ErrDeviceLost, err)
	case errors.Is(err, hal.ErrSurfaceLost):
		return fmt.Errorf("%w: %w", gpucore.ErrSurfaceLost, err)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("%w: %w", gpucore.ErrOutOfMemory, err)
	}
	return err
}

// surfaceStatus classifies an acquire or present error.
// Transient conditions become a status with a nil error.
func surfaceStatus(err error) (gputypes.SurfaceStatus, error) {
	switch {
	case err == nil:
		return gputypes.SurfaceStatusGood, nil
	case errors.Is(err, hal.ErrSurfaceOutdated), errors.Is(err, hal.ErrZeroArea):
		return gputypes.SurfaceStatusOutdated, nil
	case errors.Is(err, hal.ErrTimeout), errors.Is(err, hal.ErrNotReady):
		return gputypes.SurfaceStatusTimeout, nil
	case errors.Is(err, hal.ErrSurfaceLost):
		return gputypes.SurfaceStatusLost, nil
	}
	return gputypes.SurfaceStatusUnknown, mapError(err)
}

func unknown(kind string, id uint64) error {
	return fmt.Errorf("native: %s %d: %w", kind, id, gpucore.ErrUnknownHandle)
}
