package console

import (
	"github.com/seonWKim/blog-os/device"
	"github.com/seonWKim/blog-os/kernel/hal/multiboot"
)

var (
	getFramebufferInfoFn = multiboot.GetFramebufferInfo

	// activeConsole backs the driver returned by the probe. No allocator
	// is available while probing so the console is statically allocated.
	activeConsole VgaTextConsole

	// HWProbes is the list of probe functions that the hal package uses to
	// detect console hardware.
	HWProbes = []device.ProbeFn{
		probeForVgaTextConsole,
	}
)

// probeForVgaTextConsole returns a text console using the EGA framebuffer
// reported by the boot loader. If the loader did not report a framebuffer
// the default VGA mode 0x3 settings are used. A linear (pixel) framebuffer
// cannot host a text console so no driver is returned in that case.
func probeForVgaTextConsole() device.Driver {
	var (
		cols, rows = DefaultColumns, DefaultRows
		fbAddr     = DefaultFramebufferAddr
	)

	if fbInfo := getFramebufferInfoFn(); fbInfo != nil {
		if fbInfo.Type != multiboot.FramebufferTypeEGA {
			return nil
		}

		cols, rows, fbAddr = fbInfo.Width, fbInfo.Height, uintptr(fbInfo.PhysAddr)
	}

	activeConsole = VgaTextConsole{
		width:        cols,
		height:       rows,
		fbAddr:       fbAddr,
		clearChar:    uint16(' '),
		defaultColor: NewColorCode(LightGray, Black),
	}

	return &activeConsole
}
