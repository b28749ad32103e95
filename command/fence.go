// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"fmt"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
)

// Fence is a CPU-observable completion signal.
//
// The wrapper remembers the last observed state. Once a fence is known to be
// signaled, IsSignaled and Wait return immediately until the next Reset.
type Fence struct {
	dev      gpucore.Device
	id       gpucore.FenceID
	signaled bool

	// pending is set while a submission that will signal the fence is
	// outstanding.
	pending bool
}

// NewFence creates a fence, optionally in the signaled state.
func NewFence(dev gpucore.Device, signaled bool) (*Fence, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	id, err := dev.CreateFence(signaled)
	if err != nil {
		return nil, fmt.Errorf("command: create fence: %w", err)
	}
	return &Fence{dev: dev, id: id, signaled: signaled}, nil
}

// ID returns the device handle.
func (f *Fence) ID() gpucore.FenceID {
	return f.id
}

// Pending reports whether a submission that signals this fence has not yet
// been observed complete.
func (f *Fence) Pending() bool {
	return f.pending && !f.signaled
}

// IsSignaled reports whether the fence is signaled. The device is only
// queried when the fence is not already known to be signaled.
func (f *Fence) IsSignaled() bool {
	if f.signaled {
		return true
	}
	ok, err := f.dev.FenceStatus(f.id)
	if err != nil {
		slogger().Warn("command: fence status query failed", "fence", f.id, "err", err)
		return false
	}
	f.observe(ok)
	return ok
}

// Wait blocks until the fence is signaled or timeout elapses.
// Use gpucore.Infinite to wait without a deadline.
// Returns false with a nil error on timeout.
func (f *Fence) Wait(timeout time.Duration) (bool, error) {
	if f.signaled {
		return true, nil
	}
	ok, err := f.dev.WaitForFence(f.id, timeout)
	if err != nil {
		return false, fmt.Errorf("command: wait fence %d: %w", f.id, err)
	}
	f.observe(ok)
	return ok, nil
}

// Reset returns the fence to the unsignaled state.
//
// Resetting a fence whose submission is still outstanding is an error.
func (f *Fence) Reset() error {
	if f.pending && !f.IsSignaled() {
		return misuse(ErrInvalidState, "reset of fence %d with outstanding submission", f.id)
	}
	if err := f.dev.ResetFence(f.id); err != nil {
		return fmt.Errorf("command: reset fence %d: %w", f.id, err)
	}
	f.signaled = false
	f.pending = false
	return nil
}

// WaitAndReset waits for the fence (unless already known signaled) and then
// resets it. Returns false without resetting on timeout.
func (f *Fence) WaitAndReset(timeout time.Duration) (bool, error) {
	ok, err := f.Wait(timeout)
	if err != nil || !ok {
		return false, err
	}
	return true, f.Reset()
}

// Destroy releases the fence.
func (f *Fence) Destroy() {
	if f.id == gpucore.InvalidID {
		return
	}
	f.dev.DestroyFence(f.id)
	f.id = gpucore.InvalidID
}

// submitted marks the fence as covering a new submission.
func (f *Fence) submitted() {
	f.signaled = false
	f.pending = true
}

func (f *Fence) observe(signaled bool) {
	if signaled {
		f.signaled = true
		f.pending = false
	}
}
