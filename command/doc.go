// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package command wraps command pools, command buffers, fences and
// semaphores with host-side state tracking.
//
// A [Buffer] enforces the recording state machine
//
//	Idle      -> Begin()/BeginSecondary() -> Recording
//	Recording -> End()                    -> Ended
//	Ended     -> Execute()                -> Submitted
//	Submitted -> Wait() (fence signaled)  -> Idle
//	any       -> Reset()                  -> Idle
//	any       -> Free()                   -> Freed
//
// Reset and Free on a Submitted buffer first wait for the device to go idle
// and then for the buffer's fence, so a buffer is never recycled while the
// GPU may still read it.
//
// Misuse (End without Begin, Execute of a buffer that was not ended, a
// second Free) returns an error wrapping [ErrInvalidState] or [ErrFreed].
// Builds tagged gpuframe_debug panic instead.
//
// A [Fence] caches its signaled state so repeated IsSignaled and Wait calls
// on a known-signaled fence never reach the driver.
//
// Nothing in this package is safe for concurrent use. All calls are made
// from the single submission goroutine.
package command
