// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpuframe/gpucore"
)

// Pool allocates command buffers and owns them until they are freed.
type Pool struct {
	dev     gpucore.Device
	id      gpucore.CommandPoolID
	label   string
	buffers []*Buffer
}

// NewPool creates a command pool.
func NewPool(dev gpucore.Device, label string) (*Pool, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	id, err := dev.CreateCommandPool(label)
	if err != nil {
		return nil, fmt.Errorf("command: create pool %q: %w", label, err)
	}
	return &Pool{dev: dev, id: id, label: label}, nil
}

// ID returns the device handle.
func (p *Pool) ID() gpucore.CommandPoolID { return p.id }

// Len returns the number of live buffers allocated from the pool.
func (p *Pool) Len() int { return len(p.buffers) }

// Allocate allocates a buffer. Primary buffers get their own completion
// fence and signal semaphore.
func (p *Pool) Allocate(level gpucore.CommandBufferLevel, label string) (*Buffer, error) {
	b, err := newBuffer(p, level, label)
	if err != nil {
		return nil, err
	}
	p.buffers = append(p.buffers, b)
	return b, nil
}

// Destroy frees every live buffer and releases the pool.
func (p *Pool) Destroy() error {
	var firstErr error
	for len(p.buffers) > 0 {
		b := p.buffers[len(p.buffers)-1]
		if err := b.Free(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			p.forget(b)
		}
	}
	if p.id != gpucore.InvalidID {
		p.dev.DestroyCommandPool(p.id)
		p.id = gpucore.InvalidID
	}
	return firstErr
}

func (p *Pool) forget(b *Buffer) {
	if i := slices.Index(p.buffers, b); i >= 0 {
		p.buffers = slices.Delete(p.buffers, i, i+1)
	}
}
