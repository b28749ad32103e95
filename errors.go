package gpuframe

import "errors"

var (
	// ErrFrameSkipped is returned by BeginFrame when no image could be
	// acquired this frame (swapchain out of date, acquire timeout). The
	// caller skips draw work and still calls SwapBuffer.
	ErrFrameSkipped = errors.New("gpuframe: frame skipped")

	// ErrFenceTimeout is returned by BeginFrame when the frame slot's fence
	// does not signal within the configured timeout.
	ErrFenceTimeout = errors.New("gpuframe: fence wait timed out")

	// ErrNilDevice is returned by NewContext without a device.
	ErrNilDevice = errors.New("gpuframe: device is nil")

	// ErrInvalidOption is returned by NewContext for out-of-range options.
	ErrInvalidOption = errors.New("gpuframe: invalid option")

	// ErrFrameInProgress is returned when BeginFrame, SwapBuffer,
	// RecreateSwapchain or SetVSync is called before the previous BeginFrame
	// was closed by EndFrame.
	ErrFrameInProgress = errors.New("gpuframe: frame already in progress")

	// ErrNoFrame is returned by EndFrame without a successful BeginFrame.
	ErrNoFrame = errors.New("gpuframe: no frame in progress")

	// ErrClosed is returned for any frame call after Shutdown.
	ErrClosed = errors.New("gpuframe: context is shut down")
)
