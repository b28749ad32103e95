// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !gpuframe_debug

package command

import (
	"errors"
	"testing"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/gputest"
)

func TestFenceShortCircuitsWhenSignaled(t *testing.T) {
	dev := gputest.New()
	f, err := NewFence(dev, true)
	if err != nil {
		t.Fatal(err)
	}
	dev.ClearCalls()

	for i := 0; i < 3; i++ {
		if !f.IsSignaled() {
			t.Fatal("IsSignaled = false for a fence created signaled")
		}
		if ok, err := f.Wait(gpucore.Infinite); !ok || err != nil {
			t.Fatalf("Wait = %v, %v", ok, err)
		}
	}
	if calls := dev.Calls(); len(calls) != 0 {
		t.Errorf("known-signaled fence reached the device: %v", calls)
	}
}

func TestFenceQueriesUntilSignaled(t *testing.T) {
	dev := gputest.New()
	f, err := NewFence(dev, false)
	if err != nil {
		t.Fatal(err)
	}

	if f.IsSignaled() {
		t.Fatal("new unsignaled fence reports signaled")
	}
	if got := dev.Count("FenceStatus"); got != 1 {
		t.Fatalf("FenceStatus calls = %d, want 1", got)
	}

	dev.CompleteFence(f.ID())
	if !f.IsSignaled() {
		t.Fatal("IsSignaled = false after completion")
	}
	f.IsSignaled()
	if got := dev.Count("FenceStatus"); got != 2 {
		t.Errorf("FenceStatus calls = %d, want 2", got)
	}
}

func TestFenceWaitTimeout(t *testing.T) {
	dev := gputest.New()
	dev.AutoComplete = false
	f, err := NewFence(dev, false)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := f.Wait(0)
	if ok || err != nil {
		t.Fatalf("Wait = %v, %v; want false, nil", ok, err)
	}
	ok, err = f.WaitAndReset(0)
	if ok || err != nil {
		t.Fatalf("WaitAndReset = %v, %v; want false, nil", ok, err)
	}
	if dev.Count("ResetFence") != 0 {
		t.Error("WaitAndReset reset a fence that never signaled")
	}
}

func TestFenceWaitAndReset(t *testing.T) {
	dev := gputest.New()
	f, err := NewFence(dev, true)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := f.WaitAndReset(gpucore.Infinite)
	if !ok || err != nil {
		t.Fatalf("WaitAndReset = %v, %v", ok, err)
	}
	if dev.Signaled(f.ID()) {
		t.Error("device fence still signaled after reset")
	}
	if dev.Count("WaitForFence") != 0 {
		t.Error("known-signaled fence should not be waited on")
	}
}

func TestFenceResetWhilePending(t *testing.T) {
	dev := gputest.New()
	dev.AutoComplete = false
	pool, err := NewPool(dev, "p")
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
	if err := buf.End(); err != nil {
		t.Fatal(err)
	}
	if err := buf.Execute(0, nil, false); err != nil {
		t.Fatal(err)
	}

	if err := buf.Fence().Reset(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Reset of pending fence = %v, want ErrInvalidState", err)
	}
	dev.CompleteFence(buf.Fence().ID())
	if err := buf.Fence().Reset(); err != nil {
		t.Fatalf("Reset after completion: %v", err)
	}
}

func TestTimelineSemaphore(t *testing.T) {
	dev := gputest.New()
	s, err := NewSemaphore(dev, gpucore.SemaphoreTimeline)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	if ok, err := s.Wait(1, 0); ok || err != nil {
		t.Fatalf("Wait(1) before signal = %v, %v", ok, err)
	}
	if err := s.Signal(5); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Wait(3, 0); !ok || err != nil {
		t.Fatalf("Wait(3) after Signal(5) = %v, %v", ok, err)
	}
	if v, err := s.Value(); v != 5 || err != nil {
		t.Errorf("Value = %d, %v; want 5", v, err)
	}
}

func TestBinarySemaphoreRejectsTimelineOps(t *testing.T) {
	dev := gputest.New()
	s, err := NewSemaphore(dev, gpucore.SemaphoreBinary)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Signal(1); !errors.Is(err, ErrNotTimeline) {
		t.Errorf("Signal = %v, want ErrNotTimeline", err)
	}
	if _, err := s.Value(); !errors.Is(err, ErrNotTimeline) {
		t.Errorf("Value = %v, want ErrNotTimeline", err)
	}
	s.Destroy()
	s.Destroy()
	if got := dev.Count("DestroySemaphore"); got != 1 {
		t.Errorf("DestroySemaphore calls = %d, want 1", got)
	}
}

func TestNilDevice(t *testing.T) {
	if _, err := NewFence(nil, false); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewFence(nil) = %v", err)
	}
	if _, err := NewSemaphore(nil, gpucore.SemaphoreBinary); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewSemaphore(nil) = %v", err)
	}
	if _, err := NewPool(nil, ""); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewPool(nil) = %v", err)
	}
}
