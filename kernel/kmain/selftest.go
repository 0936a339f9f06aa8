//go:build !ktest

package kmain

// registerSelfTests is a no-op outside test builds.
func registerSelfTests() {}
