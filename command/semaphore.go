// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"fmt"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
)

// Semaphore orders GPU queue operations.
//
// Binary semaphores are used once per signal/wait pair. Timeline semaphores
// carry a counter the host can signal, wait on and read.
type Semaphore struct {
	dev  gpucore.Device
	id   gpucore.SemaphoreID
	kind gpucore.SemaphoreKind
}

// NewSemaphore creates a semaphore of the given kind.
func NewSemaphore(dev gpucore.Device, kind gpucore.SemaphoreKind) (*Semaphore, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	id, err := dev.CreateSemaphore(kind)
	if err != nil {
		return nil, fmt.Errorf("command: create %s semaphore: %w", kind, err)
	}
	return &Semaphore{dev: dev, id: id, kind: kind}, nil
}

// ID returns the device handle. A nil semaphore has the invalid ID.
func (s *Semaphore) ID() gpucore.SemaphoreID {
	if s == nil {
		return gpucore.InvalidID
	}
	return s.id
}

// Kind returns the semaphore kind.
func (s *Semaphore) Kind() gpucore.SemaphoreKind {
	return s.kind
}

// Signal sets a timeline semaphore's counter to value.
func (s *Semaphore) Signal(value uint64) error {
	if s.kind != gpucore.SemaphoreTimeline {
		return ErrNotTimeline
	}
	if err := s.dev.SignalSemaphore(s.id, value); err != nil {
		return fmt.Errorf("command: signal semaphore %d: %w", s.id, err)
	}
	return nil
}

// Wait blocks until a timeline semaphore reaches value or timeout elapses.
func (s *Semaphore) Wait(value uint64, timeout time.Duration) (bool, error) {
	if s.kind != gpucore.SemaphoreTimeline {
		return false, ErrNotTimeline
	}
	ok, err := s.dev.WaitSemaphore(s.id, value, timeout)
	if err != nil {
		return false, fmt.Errorf("command: wait semaphore %d: %w", s.id, err)
	}
	return ok, nil
}

// Value returns a timeline semaphore's current counter.
func (s *Semaphore) Value() (uint64, error) {
	if s.kind != gpucore.SemaphoreTimeline {
		return 0, ErrNotTimeline
	}
	return s.dev.SemaphoreValue(s.id)
}

// Destroy releases the semaphore.
func (s *Semaphore) Destroy() {
	if s == nil || s.id == gpucore.InvalidID {
		return
	}
	s.dev.DestroySemaphore(s.id)
	s.id = gpucore.InvalidID
}
