//go:build ktest

package kernel

// BuildMode is the mode the kernel image was built for.
const BuildMode = ModeTest
