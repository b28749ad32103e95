// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"fmt"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
)

// State is a command buffer's recording state.
type State uint8

// Command buffer states.
const (
	StateIdle State = iota
	StateRecording
	StateEnded
	StateSubmitted
	StateFreed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateEnded:
		return "Ended"
	case StateSubmitted:
		return "Submitted"
	case StateFreed:
		return "Freed"
	default:
		return "Unknown"
	}
}

// Buffer is a command buffer with tracked recording state.
//
// A primary buffer owns a completion fence (created signaled) and a binary
// semaphore signaled when its submission completes. Secondary buffers own
// neither; they are executed from a primary buffer.
type Buffer struct {
	dev   gpucore.Device
	pool  *Pool
	id    gpucore.CommandBufferID
	level gpucore.CommandBufferLevel
	label string
	state State

	fence  *Fence
	signal *Semaphore
}

func newBuffer(p *Pool, level gpucore.CommandBufferLevel, label string) (*Buffer, error) {
	id, err := p.dev.AllocateCommandBuffer(p.id, level, label)
	if err != nil {
		return nil, fmt.Errorf("command: allocate %s buffer %q: %w", level, label, err)
	}
	b := &Buffer{dev: p.dev, pool: p, id: id, level: level, label: label}
	if level == gpucore.LevelSecondary {
		return b, nil
	}

	b.fence, err = NewFence(p.dev, true)
	if err != nil {
		p.dev.FreeCommandBuffer(p.id, id)
		return nil, err
	}
	b.signal, err = NewSemaphore(p.dev, gpucore.SemaphoreBinary)
	if err != nil {
		b.fence.Destroy()
		p.dev.FreeCommandBuffer(p.id, id)
		return nil, err
	}
	return b, nil
}

// ID returns the device handle.
func (b *Buffer) ID() gpucore.CommandBufferID { return b.id }

// Level returns the buffer level.
func (b *Buffer) Level() gpucore.CommandBufferLevel { return b.level }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// State returns the current state.
func (b *Buffer) State() State { return b.state }

// Fence returns the completion fence, or nil for secondary buffers.
func (b *Buffer) Fence() *Fence { return b.fence }

// SignalSemaphore returns the semaphore signaled when the submission
// completes, or nil for secondary buffers.
func (b *Buffer) SignalSemaphore() *Semaphore { return b.signal }

func (b *Buffer) expect(op string, want State) error {
	if b.state == StateFreed {
		return misuse(ErrFreed, "%s on buffer %q", op, b.label)
	}
	if b.state != want {
		return misuse(ErrInvalidState, "%s on buffer %q in state %s, want %s", op, b.label, b.state, want)
	}
	return nil
}

// Begin starts recording a primary buffer.
func (b *Buffer) Begin() error {
	if err := b.expect("Begin", StateIdle); err != nil {
		return err
	}
	if b.level != gpucore.LevelPrimary {
		return misuse(ErrInvalidState, "Begin on secondary buffer %q, use BeginSecondary", b.label)
	}
	if err := b.dev.BeginCommandBuffer(b.id, nil); err != nil {
		return fmt.Errorf("command: begin %q: %w", b.label, err)
	}
	b.state = StateRecording
	return nil
}

// BeginSecondary starts recording a secondary buffer that will execute
// inside the inherited render pass.
func (b *Buffer) BeginSecondary(inheritance gpucore.Inheritance) error {
	if err := b.expect("BeginSecondary", StateIdle); err != nil {
		return err
	}
	if b.level != gpucore.LevelSecondary {
		return misuse(ErrInvalidState, "BeginSecondary on primary buffer %q", b.label)
	}
	if err := b.dev.BeginCommandBuffer(b.id, &inheritance); err != nil {
		return fmt.Errorf("command: begin secondary %q: %w", b.label, err)
	}
	b.state = StateRecording
	return nil
}

// End finishes recording.
func (b *Buffer) End() error {
	if err := b.expect("End", StateRecording); err != nil {
		return err
	}
	if err := b.dev.EndCommandBuffer(b.id); err != nil {
		return fmt.Errorf("command: end %q: %w", b.label, err)
	}
	b.state = StateEnded
	return nil
}

// Execute submits an ended primary buffer.
//
// The completion fence is reset first and handed to the submission. When
// waitSemaphore is non-nil the GPU waits on it at waitStage before running
// the commands. The buffer's own semaphore is signaled on completion. With
// waitOnFence set, Execute blocks until the fence signals.
func (b *Buffer) Execute(waitStage gpucore.PipelineStage, waitSemaphore *Semaphore, waitOnFence bool) error {
	if err := b.expect("Execute", StateEnded); err != nil {
		return err
	}
	if b.level != gpucore.LevelPrimary {
		return misuse(ErrInvalidState, "Execute on secondary buffer %q, use ExecuteSecondary", b.label)
	}
	if err := b.fence.Reset(); err != nil {
		return err
	}

	info := &gpucore.SubmitInfo{
		CommandBuffers:  []gpucore.CommandBufferID{b.id},
		SignalSemaphore: b.signal.ID(),
		Fence:           b.fence.ID(),
	}
	if waitSemaphore != nil {
		info.WaitSemaphore = waitSemaphore.ID()
		info.WaitStage = waitStage
	}
	if err := b.dev.Submit(info); err != nil {
		return fmt.Errorf("command: submit %q: %w", b.label, err)
	}
	b.fence.submitted()
	b.state = StateSubmitted

	if waitOnFence {
		if _, err := b.Wait(gpucore.Infinite); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteSecondary records execution of this ended secondary buffer into a
// recording primary buffer.
func (b *Buffer) ExecuteSecondary(primary *Buffer) error {
	if err := b.expect("ExecuteSecondary", StateEnded); err != nil {
		return err
	}
	if b.level != gpucore.LevelSecondary {
		return misuse(ErrInvalidState, "ExecuteSecondary on primary buffer %q", b.label)
	}
	if err := primary.expect("ExecuteSecondary target", StateRecording); err != nil {
		return err
	}
	if err := b.dev.ExecuteCommands(primary.id, []gpucore.CommandBufferID{b.id}); err != nil {
		return fmt.Errorf("command: execute %q in %q: %w", b.label, primary.label, err)
	}
	return nil
}

// Wait blocks until the buffer's submission completes or timeout elapses.
// A buffer that is not Submitted has nothing to wait for.
// On completion the buffer returns to Idle.
func (b *Buffer) Wait(timeout time.Duration) (bool, error) {
	if b.state != StateSubmitted {
		return true, nil
	}
	ok, err := b.fence.Wait(timeout)
	if err != nil || !ok {
		return false, err
	}
	b.state = StateIdle
	return true, nil
}

// drain waits out a Submitted buffer before it is recycled.
func (b *Buffer) drain() error {
	if b.state != StateSubmitted {
		return nil
	}
	slogger().Debug("command: draining submitted buffer", "label", b.label)
	if err := b.dev.WaitIdle(); err != nil {
		return fmt.Errorf("command: wait idle before recycling %q: %w", b.label, err)
	}
	ok, err := b.Wait(gpucore.Infinite)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: fence of %q not signaled after device idle", ErrInvalidState, b.label)
	}
	return nil
}

// Reset discards recorded commands and returns the buffer to Idle.
// A Submitted buffer is waited on first.
func (b *Buffer) Reset() error {
	if b.state == StateFreed {
		return misuse(ErrFreed, "Reset on buffer %q", b.label)
	}
	if err := b.drain(); err != nil {
		return err
	}
	if err := b.dev.ResetCommandBuffer(b.id); err != nil {
		return fmt.Errorf("command: reset %q: %w", b.label, err)
	}
	b.state = StateIdle
	return nil
}

// Free returns the buffer to its pool and releases its fence and semaphore.
// A Submitted buffer is waited on first. Freeing twice is an error.
func (b *Buffer) Free() error {
	if b.state == StateFreed {
		return misuse(ErrFreed, "Free on buffer %q", b.label)
	}
	if err := b.drain(); err != nil {
		return err
	}
	b.dev.FreeCommandBuffer(b.pool.id, b.id)
	if b.fence != nil {
		b.fence.Destroy()
	}
	b.signal.Destroy()
	b.state = StateFreed
	b.pool.forget(b)
	return nil
}

// === Recording ===

// TransitionImage records a layout transition.
func (b *Buffer) TransitionImage(image gpucore.ImageID, from, to gpucore.ImageLayout) error {
	if err := b.expect("TransitionImage", StateRecording); err != nil {
		return err
	}
	b.dev.TransitionImage(b.id, image, from, to)
	return nil
}

// BeginRenderPass starts a render pass.
func (b *Buffer) BeginRenderPass(info *gpucore.RenderPassBeginInfo) error {
	if err := b.expect("BeginRenderPass", StateRecording); err != nil {
		return err
	}
	if err := b.dev.BeginRenderPass(b.id, info); err != nil {
		return fmt.Errorf("command: begin render pass in %q: %w", b.label, err)
	}
	return nil
}

// EndRenderPass ends the current render pass.
func (b *Buffer) EndRenderPass() error {
	if err := b.expect("EndRenderPass", StateRecording); err != nil {
		return err
	}
	b.dev.EndRenderPass(b.id)
	return nil
}

// BindPipeline binds a graphics pipeline.
func (b *Buffer) BindPipeline(pipeline gpucore.PipelineID) error {
	if err := b.expect("BindPipeline", StateRecording); err != nil {
		return err
	}
	b.dev.BindPipeline(b.id, pipeline)
	return nil
}

// Draw records a non-indexed draw.
func (b *Buffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if err := b.expect("Draw", StateRecording); err != nil {
		return err
	}
	b.dev.Draw(b.id, vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}
