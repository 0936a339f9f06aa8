// Package hal probes for the hardware the kernel needs during boot and wires
// the detected drivers together: the display terminal becomes the Printf
// output sink and, together with the diagnostic channel, the panic sinks.
package hal

import (
	"io"

	"github.com/seonWKim/blog-os/device"
	"github.com/seonWKim/blog-os/device/tty"
	"github.com/seonWKim/blog-os/device/uart"
	"github.com/seonWKim/blog-os/device/video/console"
	"github.com/seonWKim/blog-os/kernel/hal/multiboot"
	"github.com/seonWKim/blog-os/kernel/kfmt"
)

// maxDrivers is the capacity of the active driver table.
const maxDrivers = 8

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole console.Device
	activeTTY     tty.Device
	diagChannel   *uart.Port

	// ttyLinked is set once activeTTY has been attached to activeConsole.
	ttyLinked bool

	// activeDrivers tracks all initialized device drivers.
	activeDrivers [maxDrivers]device.Driver
	driverCount   int
}

// prefixBuffer is a fixed-size io.Writer used for rendering the per-driver
// log prefix without an allocator. Output that does not fit is dropped.
type prefixBuffer struct {
	data [64]byte
	len  int
}

func (b *prefixBuffer) Write(p []byte) (int, error) {
	n := copy(b.data[b.len:], p)
	b.len += n
	return len(p), nil
}

func (b *prefixBuffer) Reset()        { b.len = 0 }
func (b *prefixBuffer) Bytes() []byte { return b.data[:b.len] }

// mirrorWriter duplicates writes to two sinks.
type mirrorWriter struct {
	primary, secondary io.Writer
}

func (w *mirrorWriter) Write(p []byte) (int, error) {
	w.secondary.Write(p)
	return w.primary.Write(p)
}

var (
	devices   managedDevices
	prefixBuf prefixBuffer
	mirror    mirrorWriter

	cmdLineValueFn = multiboot.CmdLineValue

	// probeLists is scanned in order. Consoles come first so that the
	// terminal can attach to one as soon as it is detected.
	probeLists = [][]device.ProbeFn{
		console.HWProbes,
		tty.HWProbes,
		uart.HWProbes,
	}
)

// ActiveTTY returns the currently active TTY or nil if no TTY has been
// attached to a console.
func ActiveTTY() tty.Device {
	if !devices.ttyLinked {
		return nil
	}

	return devices.activeTTY
}

// ActiveConsole returns the currently active console.
func ActiveConsole() console.Device {
	return devices.activeConsole
}

// DiagnosticChannel returns the writer for host-visible diagnostic output.
// If no serial port was detected, output is sent to the Printf sink instead.
func DiagnosticChannel() io.Writer {
	if devices.diagChannel == nil {
		return kfmt.Output
	}

	return devices.diagChannel
}

// ActiveDrivers returns the drivers that were successfully initialized.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers[:devices.driverCount]
}

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers.
func DetectHardware() {
	for _, probeList := range probeLists {
		probe(probeList)
	}

	kfmt.SetPanicSinks(panicDisplaySink(), DiagnosticChannel())

	if value, ok := cmdLineValueFn("console"); ok && string(value) == "serial" && devices.diagChannel != nil {
		mirrorToDiagnosticChannel()
	}
}

// panicDisplaySink returns the writer for normal-mode panic reports: the
// attached TTY, else the serial port. A nil value makes the panic policy
// fall back to the Printf sink.
func panicDisplaySink() io.Writer {
	switch {
	case devices.ttyLinked:
		return devices.activeTTY
	case devices.diagChannel != nil:
		return devices.diagChannel
	default:
		return nil
	}
}

// mirrorToDiagnosticChannel sends Printf output to the diagnostic channel in
// addition to the display terminal.
func mirrorToDiagnosticChannel() {
	display := kfmt.OutputSink()
	if display == nil {
		kfmt.SetOutputSink(devices.diagChannel)
		return
	}

	mirror.primary, mirror.secondary = display, devices.diagChannel
	kfmt.SetOutputSink(&mirror)
}

// probe executes each probe function and invokes onDriverInit for each
// successfully initialized driver.
func probe(probeFns []device.ProbeFn) {
	var w = kfmt.PrefixWriter{Sink: kfmt.Output}

	for _, probeFn := range probeFns {
		drv := probeFn()
		if drv == nil {
			continue
		}

		prefixBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&prefixBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = prefixBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		onDriverInit(drv)

		if devices.driverCount < maxDrivers {
			devices.activeDrivers[devices.driverCount] = drv
			devices.driverCount++
		}
	}
}

// onDriverInit is invoked by probe() whenever a piece of hardware is detected
// and successfully initialized.
func onDriverInit(drv device.Driver) {
	switch drvImpl := drv.(type) {
	case console.Device:
		if devices.activeConsole != nil {
			return
		}

		devices.activeConsole = drvImpl
		if devices.activeTTY != nil {
			linkTTYToConsole()
		}
	case tty.Device:
		if devices.activeTTY != nil {
			return
		}

		devices.activeTTY = drvImpl
		if devices.activeConsole != nil {
			linkTTYToConsole()
		}
	case *uart.Port:
		if devices.diagChannel == nil {
			devices.diagChannel = drvImpl
		}
	}
}

// linkTTYToConsole connects the active TTY device to the active console
// device and makes it the Printf output sink.
func linkTTYToConsole() {
	devices.activeTTY.AttachTo(devices.activeConsole)
	devices.ttyLinked = true
	kfmt.SetOutputSink(devices.activeTTY)
}
