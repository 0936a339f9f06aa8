//go:build !ktest

package kernel

// BuildMode is the mode the kernel image was built for. Images built with
// the ktest tag run the self tests instead.
const BuildMode = ModeNormal
