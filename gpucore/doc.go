// Package gpucore defines the device boundary of gpuframe.
//
// Every gpuframe component talks to the GPU through the [Device] interface
// using opaque uint64 handles ([FenceID], [SwapchainID], [PipelineID], ...).
// Nothing in gpuframe owns a global device: a Device value is passed
// explicitly to each component that needs one, which also makes the whole
// frame loop testable against a scripted device (see package gputest).
//
// # Implementations
//
//	               +------------------+
//	               |  gpuframe.Context |
//	               +---------+--------+
//	                         |
//	              +----------v----------+
//	              |   gpucore.Device    |
//	              +----+-----------+----+
//	                   |           |
//	      +------------v---+   +---v-------------+
//	      | backend/native |   |    gputest      |
//	      |  (wgpu hal)    |   | (call recorder) |
//	      +----------------+   +-----------------+
//
// # Handles
//
// Handles are plain integers. The zero value [InvalidID] never names a live
// object. A handle becomes invalid after the matching Destroy call and must
// not be reused by the caller.
//
// # Status codes
//
// Acquire and present report transient swapchain conditions with
// gputypes.SurfaceStatus (Good, Suboptimal, Timeout, Outdated, Lost) and keep
// the error return for hard failures only.
package gpucore
