package resource

import (
	"log/slog"

	"github.com/gogpu/gpuframe/internal/logging"
)

var logger logging.Holder

func slogger() *slog.Logger { return logger.Load() }

// SetLogger sets the package logger.
func SetLogger(l *slog.Logger) { logger.Store(l) }
