package gpucore

import "errors"

// Device errors.
var (
	// ErrDeviceLost is returned when the GPU device is no longer usable.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrSurfaceLost is returned when the window surface is gone.
	ErrSurfaceLost = errors.New("gpucore: surface lost")

	// ErrOutOfMemory is returned when an allocation fails.
	ErrOutOfMemory = errors.New("gpucore: out of memory")

	// ErrUnsupported is returned for operations the backend cannot perform.
	ErrUnsupported = errors.New("gpucore: operation not supported")

	// ErrUnknownHandle is returned when an ID does not name a live object.
	ErrUnknownHandle = errors.New("gpucore: unknown handle")
)
