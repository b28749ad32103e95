// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Backend names in selection priority order. "empty" is the variant the
// hal noop and software backends register under.
const (
	BackendVulkan = "vulkan"
	BackendMetal  = "metal"
	BackendDX12   = "dx12"
	BackendGL     = "gl"
	BackendEmpty  = "empty"
)

// Backends returns a registry of the hal backends linked into the binary,
// keyed by lower-case variant name and ordered Vulkan > Metal > DX12 > GL >
// Empty.
func Backends() *gpucontext.Registry[hal.Backend] {
	r := gpucontext.NewRegistry[hal.Backend](
		gpucontext.WithPriority(BackendVulkan, BackendMetal, BackendDX12, BackendGL, BackendEmpty),
	)
	for _, v := range hal.AvailableBackends() {
		r.Register(strings.ToLower(v.String()), func() hal.Backend {
			b, _ := hal.GetBackend(v)
			return b
		})
	}
	return r
}

// Options configures Open.
type Options struct {
	// Backend selects a registered backend by name. Empty picks the
	// highest-priority one.
	Backend string

	// DisplayHandle and WindowHandle are the platform handles passed to
	// hal.Instance.CreateSurface.
	DisplayHandle uintptr
	WindowHandle  uintptr

	// Headless skips surface creation. Presentation calls then fail.
	Headless bool

	// Debug enables backend debug and validation layers.
	Debug bool

	// Limits requested from the adapter. Nil means gputypes.DefaultLimits.
	Limits *gputypes.Limits
}

// Open creates an instance, surface, adapter and device on a hal backend.
func Open(opts Options) (*Device, error) {
	registry := Backends()
	name := opts.Backend
	if name == "" {
		name = registry.BestName()
	}
	backend := registry.Get(name)
	if backend == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrNoBackend, name, registry.Available())
	}

	var flags gputypes.InstanceFlags
	if opts.Debug {
		flags = gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsAll,
		Flags:    flags,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInitInstance, name, err)
	}

	var surface hal.Surface
	if !opts.Headless {
		surface, err = instance.CreateSurface(opts.DisplayHandle, opts.WindowHandle)
		if err != nil {
			instance.Destroy()
			return nil, fmt.Errorf("%w: %w", ErrInitSurface, err)
		}
	}

	exposed, err := selectAdapter(instance.EnumerateAdapters(surface))
	if err != nil {
		destroyAll(surface, instance)
		return nil, err
	}

	limits := gputypes.DefaultLimits()
	if opts.Limits != nil {
		limits = *opts.Limits
	}
	open, err := exposed.Adapter.Open(0, limits)
	if err != nil {
		exposed.Adapter.Destroy()
		destroyAll(surface, instance)
		return nil, fmt.Errorf("%w: %s: %w", ErrInitDevice, exposed.Info.Name, mapError(err))
	}

	d, err := New(Config{
		Device:  open.Device,
		Queue:   open.Queue,
		Adapter: exposed.Adapter,
		Surface: surface,
		Info:    exposed.Info,
		Limits:  &limits,
	})
	if err != nil {
		open.Device.Destroy()
		exposed.Adapter.Destroy()
		destroyAll(surface, instance)
		return nil, err
	}
	d.instance = instance

	slogger().Info("native: device opened",
		"backend", name,
		"adapter", exposed.Info.Name,
		"type", exposed.Info.DeviceType,
		"driver", exposed.Info.Driver)
	return d, nil
}

// selectAdapter prefers discrete GPUs, then integrated, then anything.
func selectAdapter(adapters []hal.ExposedAdapter) (hal.ExposedAdapter, error) {
	if len(adapters) == 0 {
		return hal.ExposedAdapter{}, ErrNoAdapter
	}
	rank := func(t gputypes.DeviceType) int {
		switch t {
		case gputypes.DeviceTypeDiscreteGPU:
			return 0
		case gputypes.DeviceTypeIntegratedGPU:
			return 1
		case gputypes.DeviceTypeVirtualGPU:
			return 2
		case gputypes.DeviceTypeCPU:
			return 3
		default:
			return 4
		}
	}
	best := slices.MinFunc(adapters, func(a, b hal.ExposedAdapter) int {
		return rank(a.Info.DeviceType) - rank(b.Info.DeviceType)
	})
	for _, a := range adapters {
		if a.Adapter != best.Adapter {
			a.Adapter.Destroy()
		}
	}
	return best, nil
}

func destroyAll(surface hal.Surface, instance hal.Instance) {
	if surface != nil {
		surface.Destroy()
	}
	instance.Destroy()
}

// IsInitError reports whether err came from device bootstrap.
func IsInitError(err error) bool {
	return errors.Is(err, ErrNoBackend) || errors.Is(err, ErrNoAdapter) ||
		errors.Is(err, ErrInitInstance) || errors.Is(err, ErrInitSurface) ||
		errors.Is(err, ErrInitDevice)
}
