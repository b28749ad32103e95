// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpuframe/internal/assert"
)

var (
	// ErrInvalidState is returned when an operation is not legal in the
	// buffer's (or fence's) current state.
	ErrInvalidState = errors.New("command: invalid state")

	// ErrFreed is returned for any use of a freed buffer, including a
	// second Free.
	ErrFreed = errors.New("command: buffer already freed")

	// ErrNotTimeline is returned when a timeline operation is called on a
	// binary semaphore.
	ErrNotTimeline = errors.New("command: not a timeline semaphore")

	// ErrNilDevice is returned when a constructor is given a nil device.
	ErrNilDevice = errors.New("command: device is nil")
)

// misuse builds a state error and reports it to the debug assertion hook.
func misuse(sentinel error, format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
	assert.Fail(err)
	return err
}
