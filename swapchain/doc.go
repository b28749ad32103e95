// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package swapchain owns the chain of presentable images and drives the
// acquire/present cycle.
//
// Out-of-date and suboptimal results are recovered locally: acquire
// recreates the swapchain at the current surface size, present marks a
// pending resize. Neither is returned as an error. A zero-area surface
// (minimized window) never recreates; the caller polls until it is non-zero.
//
// Recreation drains the device, passes the old swapchain to the new one as
// the handoff, and then destroys the old views and swapchain.
package swapchain
