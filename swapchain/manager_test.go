// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpuframe/command"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/gputest"
	"github.com/gogpu/gputypes"
)

func newManager(t *testing.T, dev *gputest.Device) (*Manager, *command.Semaphore) {
	t.Helper()
	m := New(dev, Config{})
	if err := m.Init(false, nil, gpucore.Extent2D{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sem, err := command.NewSemaphore(dev, gpucore.SemaphoreBinary)
	if err != nil {
		t.Fatal(err)
	}
	return m, sem
}

func TestChooseFormat(t *testing.T) {
	pref := gputypes.TextureFormatRGBA8UnormSrgb
	tests := []struct {
		name    string
		formats []gputypes.TextureFormat
		want    gputypes.TextureFormat
	}{
		{"preferred available", []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, pref}, pref},
		{"fallback to first", []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb}, gputypes.TextureFormatBGRA8Unorm},
		{"undefined means any", []gputypes.TextureFormat{gputypes.TextureFormatUndefined}, pref},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseFormat(tt.formats, pref); got != tt.want {
				t.Errorf("chooseFormat = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []gputypes.PresentMode{gputypes.PresentModeFifo, gputypes.PresentModeMailbox, gputypes.PresentModeImmediate}
	fifo := []gputypes.PresentMode{gputypes.PresentModeFifo}
	tests := []struct {
		name  string
		modes []gputypes.PresentMode
		vsync bool
		want  gputypes.PresentMode
	}{
		{"vsync mailbox", all, true, gputypes.PresentModeMailbox},
		{"vsync fifo fallback", fifo, true, gputypes.PresentModeFifo},
		{"no vsync immediate", all, false, gputypes.PresentModeImmediate},
		{"no vsync fifo fallback", fifo, false, gputypes.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := choosePresentMode(tt.modes, tt.vsync); got != tt.want {
				t.Errorf("choosePresentMode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
		want     uint32
		wantErr  bool
	}{
		{"within range", 2, 8, 3, false},
		{"clamped to max", 2, 2, 2, false},
		{"raised to min", 4, 8, 4, false},
		{"unbounded max", 1, 0, 3, false},
		{"single image", 1, 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := gpucore.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
			got, err := chooseImageCount(caps, MaxBufferCount)
			if tt.wantErr {
				if !errors.Is(err, ErrSurfaceUnusable) {
					t.Fatalf("err = %v, want ErrSurfaceUnusable", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("count = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	dev := gputest.New()
	m, _ := newManager(t, dev)

	if got := m.Extent(); got != (gpucore.Extent2D{Width: 800, Height: 600}) {
		t.Errorf("Extent = %v", got)
	}
	if m.Format() != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("Format = %v", m.Format())
	}
	if m.PresentMode() != gputypes.PresentModeImmediate {
		t.Errorf("PresentMode = %v", m.PresentMode())
	}
	if len(m.Images()) != 3 {
		t.Errorf("images = %d, want 3", len(m.Images()))
	}
	if dev.Count("CreateSwapchain") != 1 {
		t.Errorf("CreateSwapchain calls = %d", dev.Count("CreateSwapchain"))
	}
	for _, img := range m.Images() {
		if img.View == gpucore.InvalidID || img.Layout != gpucore.LayoutUndefined {
			t.Errorf("image %d not initialized: %+v", img.Index, img)
		}
	}
}

func TestInitUnusableSurface(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*gputest.Device)
	}{
		{"capabilities error", func(d *gputest.Device) {
			d.Fail = map[string]error{"SurfaceCapabilities": gpucore.ErrSurfaceLost}
		}},
		{"no formats", func(d *gputest.Device) { d.Caps.Formats = nil }},
		{"single image", func(d *gputest.Device) { d.Caps.MinImageCount, d.Caps.MaxImageCount = 1, 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.New()
			tt.setup(dev)
			err := New(dev, Config{}).Init(true, nil, gpucore.Extent2D{})
			if !errors.Is(err, ErrSurfaceUnusable) {
				t.Fatalf("Init = %v, want ErrSurfaceUnusable", err)
			}
			if dev.Count("CreateSwapchain") != 0 {
				t.Error("swapchain created on unusable surface")
			}
		})
	}
}

func TestInitExtentFromWindow(t *testing.T) {
	dev := gputest.New()
	dev.SetExtent(gpucore.UndefinedExtent, gpucore.UndefinedExtent)
	m := New(dev, Config{})
	win := gpucontext.NullWindowProvider{W: 400, H: 300, SF: 2}
	if err := m.Init(true, win, gpucore.Extent2D{}); err != nil {
		t.Fatal(err)
	}
	if got := m.Extent(); got != (gpucore.Extent2D{Width: 800, Height: 600}) {
		t.Errorf("Extent = %v, want 800x600", got)
	}
	if m.PresentMode() != gputypes.PresentModeMailbox {
		t.Errorf("PresentMode = %v, want Mailbox", m.PresentMode())
	}
}

func TestInitZeroExtentDefers(t *testing.T) {
	dev := gputest.New()
	dev.SetExtent(0, 0)
	m, sem := newManager(t, dev)

	if dev.Count("CreateSwapchain") != 0 {
		t.Fatal("swapchain created for a zero-area surface")
	}
	_, status, err := m.AcquireNextImage(sem)
	if err != nil || status != gputypes.SurfaceStatusOutdated {
		t.Fatalf("Acquire = %v, %v; want Outdated", status, err)
	}
	if !m.ResizePending() {
		t.Error("ResizePending = false")
	}

	dev.SetExtent(640, 480)
	if ok, err := m.OnResize(640, 480, false); !ok || err != nil {
		t.Fatalf("OnResize = %v, %v", ok, err)
	}
	if m.ResizePending() {
		t.Error("ResizePending after recreation")
	}
}

func TestOnResizeIdempotent(t *testing.T) {
	dev := gputest.New()
	m, _ := newManager(t, dev)

	first, err := m.OnResize(1024, 768, false)
	if err != nil || !first {
		t.Fatalf("first OnResize = %v, %v", first, err)
	}
	second, err := m.OnResize(1024, 768, false)
	if err != nil || second {
		t.Fatalf("second OnResize = %v, %v; want false", second, err)
	}
	if got := dev.Count("CreateSwapchain"); got != 2 {
		t.Errorf("CreateSwapchain calls = %d, want 2 (init + one resize)", got)
	}

	forced, err := m.OnResize(1024, 768, true)
	if err != nil || !forced {
		t.Fatalf("forced OnResize = %v, %v", forced, err)
	}
}

func TestOnResizeZeroArea(t *testing.T) {
	dev := gputest.New()
	m, _ := newManager(t, dev)
	dev.ClearCalls()

	for _, size := range [][2]uint32{{0, 600}, {800, 0}, {0, 0}} {
		ok, err := m.OnResize(size[0], size[1], true)
		if ok || err != nil {
			t.Errorf("OnResize(%d, %d) = %v, %v", size[0], size[1], ok, err)
		}
	}
	if calls := dev.Calls(); len(calls) != 0 {
		t.Errorf("zero-area resize touched the device: %v", calls)
	}
}

func TestOnResizeClampedIdempotent(t *testing.T) {
	dev := gputest.New()
	dev.Caps.MaxExtent = gpucore.Extent2D{Width: 4096, Height: 4096}
	m, _ := newManager(t, dev)

	first, err := m.OnResize(5000, 3000, false)
	if err != nil || !first {
		t.Fatalf("first OnResize = %v, %v", first, err)
	}
	if e := m.Extent(); e != (gpucore.Extent2D{Width: 4096, Height: 3000}) {
		t.Fatalf("Extent = %v, want 4096x3000", e)
	}
	second, err := m.OnResize(5000, 3000, false)
	if err != nil || second {
		t.Fatalf("second OnResize = %v, %v; want false", second, err)
	}
	if got := dev.Count("CreateSwapchain"); got != 2 {
		t.Errorf("CreateSwapchain calls = %d, want 2 (init + one resize)", got)
	}
}

func TestOnResizeOldSwapchainHandoff(t *testing.T) {
	dev := gputest.New()
	m, _ := newManager(t, dev)
	old := m.ID()
	oldViews := m.Images()
	dev.ClearCalls()

	if _, err := m.OnResize(1280, 720, false); err != nil {
		t.Fatal(err)
	}
	desc, ok := dev.Swapchain(m.ID())
	if !ok {
		t.Fatal("new swapchain not alive")
	}
	if desc.OldSwapchain != old {
		t.Errorf("OldSwapchain = %d, want %d", desc.OldSwapchain, old)
	}

	created := dev.Index("CreateSwapchain", uint64(m.ID()), 0)
	destroyed := dev.Index("DestroySwapchain", uint64(old), 0)
	if created < 0 || destroyed < 0 || destroyed < created {
		t.Errorf("old swapchain must be destroyed after the new one exists: %v", dev.Calls())
	}
	if dev.Index("WaitIdle", 0, 0) > created {
		t.Error("device not drained before recreation")
	}
	for _, img := range oldViews {
		if dev.Index("DestroyImageView", uint64(img.View), 0) < 0 {
			t.Errorf("old view %d not destroyed", img.View)
		}
	}
}

func TestAcquireOutOfDateRecreates(t *testing.T) {
	dev := gputest.New()
	m, sem := newManager(t, dev)
	dev.AcquireScript = func(n int) (gputypes.SurfaceStatus, error) {
		if n == 1 {
			dev.SetExtent(1280, 720)
			return gputypes.SurfaceStatusOutdated, nil
		}
		return gputypes.SurfaceStatusGood, nil
	}

	_, status, err := m.AcquireNextImage(sem)
	if err != nil || status != gputypes.SurfaceStatusOutdated {
		t.Fatalf("Acquire = %v, %v; want Outdated, nil", status, err)
	}
	if got := m.Extent(); got != (gpucore.Extent2D{Width: 1280, Height: 720}) {
		t.Errorf("Extent = %v, want 1280x720", got)
	}
	if m.Recreations() != 2 {
		t.Errorf("Recreations = %d, want 2", m.Recreations())
	}
	if _, ok := m.Current(); ok {
		t.Error("no image should be acquired after out-of-date")
	}

	idx, status, err := m.AcquireNextImage(sem)
	if err != nil || status != gputypes.SurfaceStatusGood || idx != 0 {
		t.Fatalf("retry = %d, %v, %v", idx, status, err)
	}
}

func TestAcquireFailureLimit(t *testing.T) {
	dev := gputest.New()
	m, sem := newManager(t, dev)
	boom := errors.New("driver hiccup")
	dev.AcquireScript = func(int) (gputypes.SurfaceStatus, error) {
		return gputypes.SurfaceStatusUnknown, boom
	}

	for i := 1; i <= DefaultMaxAcquireFailures; i++ {
		if _, _, err := m.AcquireNextImage(sem); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	_, _, err := m.AcquireNextImage(sem)
	if !errors.Is(err, ErrAcquireFailed) {
		t.Fatalf("attempt %d: %v, want ErrAcquireFailed", DefaultMaxAcquireFailures+1, err)
	}
}

func TestAcquireSuccessResetsFailures(t *testing.T) {
	dev := gputest.New()
	m, sem := newManager(t, dev)
	dev.AcquireScript = func(n int) (gputypes.SurfaceStatus, error) {
		if n%5 == 0 {
			return gputypes.SurfaceStatusGood, nil
		}
		return gputypes.SurfaceStatusUnknown, errors.New("flaky")
	}
	for i := 0; i < 40; i++ {
		if _, _, err := m.AcquireNextImage(sem); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
}

func TestAcquireSurfaceLostIsFatal(t *testing.T) {
	dev := gputest.New()
	m, sem := newManager(t, dev)
	dev.AcquireScript = func(int) (gputypes.SurfaceStatus, error) {
		return gputypes.SurfaceStatusLost, gpucore.ErrSurfaceLost
	}
	if _, _, err := m.AcquireNextImage(sem); !errors.Is(err, gpucore.ErrSurfaceLost) {
		t.Fatalf("err = %v, want ErrSurfaceLost", err)
	}
}

func TestPresent(t *testing.T) {
	tests := []struct {
		name       string
		status     gputypes.SurfaceStatus
		wantResize bool
	}{
		{"good", gputypes.SurfaceStatusGood, false},
		{"suboptimal", gputypes.SurfaceStatusSuboptimal, true},
		{"outdated", gputypes.SurfaceStatusOutdated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.New()
			m, sem := newManager(t, dev)
			dev.PresentScript = func(int) (gputypes.SurfaceStatus, error) { return tt.status, nil }

			if _, _, err := m.AcquireNextImage(sem); err != nil {
				t.Fatal(err)
			}
			status, err := m.Present(sem)
			if err != nil {
				t.Fatalf("Present: %v", err)
			}
			if status != tt.status {
				t.Errorf("status = %v", status)
			}
			if m.ResizePending() != tt.wantResize {
				t.Errorf("ResizePending = %v, want %v", m.ResizePending(), tt.wantResize)
			}
		})
	}
}

func TestPresentWithoutAcquire(t *testing.T) {
	m, _ := newManager(t, gputest.New())
	if _, err := m.Present(); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("Present = %v, want ErrNotAcquired", err)
	}
}

func TestAbandon(t *testing.T) {
	dev := gputest.New()
	m, sem := newManager(t, dev)

	m.Abandon()
	if m.ResizePending() {
		t.Fatal("Abandon without an acquired image scheduled a resize")
	}
	if _, _, err := m.AcquireNextImage(sem); err != nil {
		t.Fatal(err)
	}
	m.Abandon()
	if _, ok := m.Current(); ok {
		t.Error("image still acquired after Abandon")
	}
	if !m.ResizePending() {
		t.Error("Abandon did not schedule a resize")
	}
	if _, err := m.Present(sem); !errors.Is(err, ErrNotAcquired) {
		t.Errorf("Present after Abandon = %v, want ErrNotAcquired", err)
	}

	ok, err := m.OnResize(m.Extent().Width, m.Extent().Height, m.ResizePending())
	if err != nil || !ok {
		t.Fatalf("OnResize = %v, %v", ok, err)
	}
	if m.ResizePending() {
		t.Error("ResizePending after recreation")
	}
}

func TestTransitionTracksLayout(t *testing.T) {
	dev := gputest.New()
	m, sem := newManager(t, dev)
	pool, err := command.NewPool(dev, "p")
	if err != nil {
		t.Fatal(err)
	}
	buf, err := pool.Allocate(gpucore.LevelPrimary, "b")
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Begin(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.AcquireNextImage(sem); err != nil {
		t.Fatal(err)
	}

	if err := m.Transition(buf, gpucore.LayoutColorAttachment); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(buf, gpucore.LayoutColorAttachment); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(buf, gpucore.LayoutPresentSrc); err != nil {
		t.Fatal(err)
	}
	if got := dev.Count("TransitionImage"); got != 2 {
		t.Errorf("TransitionImage calls = %d, want 2", got)
	}
	img, _ := m.Current()
	if img.Layout != gpucore.LayoutPresentSrc {
		t.Errorf("Layout = %v", img.Layout)
	}
}

func TestSetVSync(t *testing.T) {
	dev := gputest.New()
	m, _ := newManager(t, dev)
	if err := m.SetVSync(false); err != nil {
		t.Fatal(err)
	}
	if dev.Count("CreateSwapchain") != 1 {
		t.Fatal("unchanged vsync recreated the swapchain")
	}
	if err := m.SetVSync(true); err != nil {
		t.Fatal(err)
	}
	if dev.Count("CreateSwapchain") != 2 {
		t.Error("vsync change did not recreate the swapchain")
	}
	desc, _ := dev.Swapchain(m.ID())
	if desc.PresentMode != gputypes.PresentModeMailbox {
		t.Errorf("PresentMode = %v, want Mailbox", desc.PresentMode)
	}
}

func TestDestroy(t *testing.T) {
	dev := gputest.New()
	m, sem := newManager(t, dev)
	m.Destroy()
	sem.Destroy()
	if leaks := dev.Leaks(); len(leaks) != 0 {
		t.Errorf("leaked: %v", leaks)
	}
}
