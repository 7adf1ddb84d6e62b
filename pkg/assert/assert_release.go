// +build !debug

package assert

// Check is a no-op in release builds.
func Check(cond bool, format string, args ...interface{}) {}

// NoAllocation is a no-op in release builds.
func NoAllocation() {}
