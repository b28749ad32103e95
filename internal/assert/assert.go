//go:build !gpuframe_debug

// Package assert reports API misuse.
//
// Release builds only return the misuse error to the caller. Builds tagged
// gpuframe_debug panic with it, so misuse is fatal during development.
package assert

// Enabled reports whether misuse panics.
const Enabled = false

// Fail reports a misuse error.
func Fail(err error) {}
