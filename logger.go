package gpuframe

import (
	"log/slog"

	"github.com/gogpu/gpuframe/backend/native"
	"github.com/gogpu/gpuframe/command"
	"github.com/gogpu/gpuframe/deletion"
	"github.com/gogpu/gpuframe/internal/logging"
	"github.com/gogpu/gpuframe/pipelinecache"
	"github.com/gogpu/gpuframe/resource"
	"github.com/gogpu/gpuframe/swapchain"
)

var logger logging.Holder

func slogger() *slog.Logger { return logger.Load() }

// SetLogger configures the logger for gpuframe and all its sub-packages,
// including the native backend and wgpu hal.
// By default, gpuframe produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by gpuframe:
//   - [slog.LevelDebug]: per-frame diagnostics (skipped frames, evictions, fence waits)
//   - [slog.LevelInfo]: lifecycle events (swapchain created, pipeline cache loaded)
//   - [slog.LevelWarn]: recovered failures (out-of-date swapchain, creation failures, stale cache blob)
//
// Example:
//
//	gpuframe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	l = logger.Load()
	command.SetLogger(l)
	swapchain.SetLogger(l)
	deletion.SetLogger(l)
	resource.SetLogger(l)
	pipelinecache.SetLogger(l)
	native.SetLogger(l)
}

// Logger returns the current logger used by gpuframe.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logger.Load()
}
