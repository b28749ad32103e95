// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpucore.Device on top of github.com/gogpu/wgpu/hal.
//
// The hal layer owns queue-level synchronization, so the explicit objects
// gpucore exposes are mapped as follows:
//
//   - Fences track the submission index returned by hal.Queue.Submit and are
//     signaled once hal.Queue.PollCompleted reaches it.
//   - Semaphores are host bookkeeping. hal binds the swapchain acquire and
//     present semaphores internally; timeline semaphores are host counters.
//   - Each command buffer owns a hal.CommandEncoder. Secondary command buffers
//     are not supported.
//   - A swapchain is a configured hal.Surface plus a ring of image slots.
//     The surface texture acquired for a slot is viewed for the duration of
//     the frame and released on present.
//   - Render passes and framebuffers are host descriptors resolved into a
//     hal.RenderPassDescriptor when a pass begins.
//   - WGSL shaders are compiled to SPIR-V with naga. The compiled words are
//     kept by source hash and form the pipeline cache payload.
//
// Devices are opened with Open, which selects a registered hal backend by
// priority (see Backends), or wrapped around an existing hal device with New.
package native
