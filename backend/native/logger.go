package native

import (
	"log/slog"

	"github.com/gogpu/gpuframe/internal/logging"
	"github.com/gogpu/wgpu/hal"
)

var logger logging.Holder

func slogger() *slog.Logger { return logger.Load() }

// SetLogger sets the package logger and forwards it to the wgpu HAL layer.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	hal.SetLogger(l)
}
