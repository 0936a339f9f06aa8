package tty

import "github.com/seonWKim/blog-os/device"

var (
	// activeVT is the terminal handed out by the probe. It is statically
	// allocated as no allocator is available during boot.
	activeVT = VT{cursorX: 1, cursorY: 1}

	// HWProbes lists the probe functions that the hal package uses to
	// detect TTY devices.
	HWProbes = []device.ProbeFn{
		probeForVT,
	}
)

func probeForVT() device.Driver {
	return &activeVT
}
