//go:build gpuframe_debug

package assert

// Enabled reports whether misuse panics.
const Enabled = true

// Fail panics with err.
func Fail(err error) {
	panic(err)
}
