// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"time"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
)

// MaxBufferCount is the largest number of swapchain images requested.
const MaxBufferCount = 3

// DefaultMaxAcquireFailures is how many consecutive hard acquire failures
// are tolerated before acquisition becomes fatal.
const DefaultMaxAcquireFailures = 10

// Config configures a Manager. Zero fields take their defaults.
type Config struct {
	// PreferredFormat is used when the surface supports it.
	// Default: RGBA8UnormSrgb.
	PreferredFormat gputypes.TextureFormat

	// MaxBufferCount caps the image count. Default: MaxBufferCount.
	MaxBufferCount uint32

	// Usage is the image usage. Default: RenderAttachment.
	Usage gputypes.TextureUsage

	// AcquireTimeout bounds AcquireNextImage. Default: gpucore.Infinite.
	AcquireTimeout time.Duration

	// MaxAcquireFailures is the consecutive hard acquire failure limit.
	// Default: DefaultMaxAcquireFailures.
	MaxAcquireFailures int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.PreferredFormat == gputypes.TextureFormatUndefined {
		c.PreferredFormat = gputypes.TextureFormatRGBA8UnormSrgb
	}
	if c.MaxBufferCount == 0 {
		c.MaxBufferCount = MaxBufferCount
	}
	if c.Usage == 0 {
		c.Usage = gputypes.TextureUsageRenderAttachment
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = gpucore.Infinite
	}
	if c.MaxAcquireFailures == 0 {
		c.MaxAcquireFailures = DefaultMaxAcquireFailures
	}
	return c
}
