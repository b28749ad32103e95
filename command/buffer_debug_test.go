// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build gpuframe_debug

package command

import (
	"errors"
	"testing"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/gputest"
)

// mustPanic runs fn and returns the error it panicked with.
func mustPanic(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("misuse did not panic")
		}
		e, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %T is not an error", r)
		}
		err = e
	}()
	fn()
	return nil
}

func TestMisusePanicsInDebugBuild(t *testing.T) {
	tests := []struct {
		name string
		op   func(*testing.T, *Buffer)
		want error
	}{
		{"end without begin", func(_ *testing.T, b *Buffer) { _ = b.End() }, ErrInvalidState},
		{"execute while recording", func(t *testing.T, b *Buffer) {
			if err := b.Begin(); err != nil {
				t.Fatal(err)
			}
			_ = b.Execute(0, nil, false)
		}, ErrInvalidState},
		{"free twice", func(t *testing.T, b *Buffer) {
			if err := b.Free(); err != nil {
				t.Fatal(err)
			}
			_ = b.Free()
		}, ErrFreed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.New()
			pool, err := NewPool(dev, "debug")
			if err != nil {
				t.Fatalf("NewPool: %v", err)
			}
			buf, err := pool.Allocate(gpucore.LevelPrimary, "frame")
			if err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			got := mustPanic(t, func() { tt.op(t, buf) })
			if !errors.Is(got, tt.want) {
				t.Errorf("panic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFenceResetOutstandingPanicsInDebugBuild(t *testing.T) {
	dev := gputest.New()
	dev.AutoComplete = false
	f, err := NewFence(dev, false)
	if err != nil {
		t.Fatal(err)
	}
	f.submitted()
	got := mustPanic(t, func() { _ = f.Reset() })
	if !errors.Is(got, ErrInvalidState) {
		t.Errorf("panic = %v, want ErrInvalidState", got)
	}
}
