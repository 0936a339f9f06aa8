package uart

import "github.com/seonWKim/blog-os/device"

var (
	// com1 is statically allocated as no allocator is available while
	// probing.
	com1 = Port{base: COM1, divisor: DefaultDivisor}

	// HWProbes is the list of probe functions that the hal package uses to
	// detect serial ports.
	HWProbes = []device.ProbeFn{
		probeForCOM1,
	}
)

// probeForCOM1 detects the first serial port. Ports that are not fitted
// float their line status register to 0xff.
func probeForCOM1() device.Driver {
	if portReadByteFn(COM1+regLineStat) == 0xff {
		return nil
	}

	return &com1
}
