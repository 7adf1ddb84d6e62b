// +build debug

// Package assert provides debug-build-only invariant checks, following the
// teacher's pkg/dsp/debug build-tag split: the debug variant panics, the
// release variant (assert_release.go) is a no-op, so the checks cost
// nothing in a production build and catch broken invariants (spec.md §7.3)
// during development.
package assert

import "fmt"

// Check panics with a formatted message if cond is false.
func Check(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// NoAllocation is a no-op hook call site marking a point in the audio path
// that must not allocate; debug builds have nothing extra to check here
// beyond what the Go race detector and `go test -bench -benchmem` already
// catch, but the call site documents the invariant and gives a place to
// hang future instrumentation.
func NoAllocation() {}
