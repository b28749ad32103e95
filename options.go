package gpuframe

import (
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/resource"
	"github.com/gogpu/gputypes"
)

// Frames-in-flight bounds.
const (
	MinFramesInFlight     = 1
	MaxFramesInFlight     = 3
	DefaultFramesInFlight = 2
)

// Cache TTL bounds accepted by WithCacheTTL.
const (
	MinCacheTTL = 100 * time.Millisecond
	MaxCacheTTL = time.Second
)

// ContextOption configures a Context during creation.
//
// Example:
//
//	ctx, err := gpuframe.NewContext(dev, window,
//	    gpuframe.WithFramesInFlight(3),
//	    gpuframe.WithVSync(false),
//	)
type ContextOption func(*contextOptions)

// contextOptions holds optional configuration for Context creation.
type contextOptions struct {
	framesInFlight  int
	vsync           bool
	preferredFormat gputypes.TextureFormat
	cacheTTL        time.Duration
	evictionLimit   int
	fenceTimeout    time.Duration
	cacheFile       string
	noPipelineCache bool
	clock           func() time.Time
	events          gpucontext.EventSource
	extentHint      gpucore.Extent2D
}

// defaultOptions returns the default context options.
func defaultOptions() contextOptions {
	return contextOptions{
		framesInFlight:  DefaultFramesInFlight,
		vsync:           true,
		preferredFormat: gputypes.TextureFormatRGBA8UnormSrgb,
		cacheTTL:        resource.DefaultTTL,
		evictionLimit:   resource.DefaultEvictionLimit,
		fenceTimeout:    gpucore.Infinite,
		clock:           time.Now,
	}
}

func (o contextOptions) validate() error {
	if o.framesInFlight < MinFramesInFlight || o.framesInFlight > MaxFramesInFlight {
		return fmt.Errorf("%w: frames in flight %d outside [%d, %d]",
			ErrInvalidOption, o.framesInFlight, MinFramesInFlight, MaxFramesInFlight)
	}
	if o.cacheTTL < MinCacheTTL || o.cacheTTL > MaxCacheTTL {
		return fmt.Errorf("%w: cache TTL %v outside [%v, %v]", ErrInvalidOption, o.cacheTTL, MinCacheTTL, MaxCacheTTL)
	}
	if o.evictionLimit < 1 {
		return fmt.Errorf("%w: eviction limit %d", ErrInvalidOption, o.evictionLimit)
	}
	if o.fenceTimeout < 0 {
		return fmt.Errorf("%w: negative fence timeout", ErrInvalidOption)
	}
	return nil
}

// WithFramesInFlight sets how many frames the CPU may record ahead of the
// GPU, from 1 to 3. Default: 2.
func WithFramesInFlight(n int) ContextOption {
	return func(o *contextOptions) {
		o.framesInFlight = n
	}
}

// WithVSync selects Mailbox/FIFO presentation when on and Immediate/FIFO
// when off. Default: on.
func WithVSync(vsync bool) ContextOption {
	return func(o *contextOptions) {
		o.vsync = vsync
	}
}

// WithPreferredFormat sets the surface format used when the surface
// supports it. Default: RGBA8UnormSrgb.
func WithPreferredFormat(f gputypes.TextureFormat) ContextOption {
	return func(o *contextOptions) {
		o.preferredFormat = f
	}
}

// WithCacheTTL sets how long a cached resource may sit unused before it is
// evicted, from 100ms to 1s. Default: 1s.
func WithCacheTTL(ttl time.Duration) ContextOption {
	return func(o *contextOptions) {
		o.cacheTTL = ttl
	}
}

// WithEvictionLimit caps how many entries each cache evicts per frame.
// Default: 256.
func WithEvictionLimit(n int) ContextOption {
	return func(o *contextOptions) {
		o.evictionLimit = n
	}
}

// WithFenceTimeout bounds the wait for a frame slot's fence in BeginFrame.
// BeginFrame returns ErrFenceTimeout when it elapses. Default:
// gpucore.Infinite.
func WithFenceTimeout(d time.Duration) ContextOption {
	return func(o *contextOptions) {
		o.fenceTimeout = d
	}
}

// WithPipelineCacheFile overrides where the pipeline cache blob is stored.
// Default: pipelinecache.DefaultPath().
func WithPipelineCacheFile(path string) ContextOption {
	return func(o *contextOptions) {
		o.cacheFile = path
		o.noPipelineCache = false
	}
}

// WithoutPipelineCache disables loading and saving the pipeline cache blob.
func WithoutPipelineCache() ContextOption {
	return func(o *contextOptions) {
		o.noPipelineCache = true
	}
}

// WithClock sets the time source for cache eviction. Tests use it to step
// time deterministically.
func WithClock(now func() time.Time) ContextOption {
	return func(o *contextOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithEventSource subscribes the Context to window resize events.
func WithEventSource(es gpucontext.EventSource) ContextOption {
	return func(o *contextOptions) {
		o.events = es
	}
}

// WithExtentHint sets the initial swapchain size, overriding the surface
// and window sizes.
func WithExtentHint(width, height uint32) ContextOption {
	return func(o *contextOptions) {
		o.extentHint = gpucore.Extent2D{Width: width, Height: height}
	}
}
