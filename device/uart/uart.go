// Package uart implements the diagnostic channel: a polled driver for a
// 16550-compatible serial port. Its output is visible to the process
// hosting the virtual machine (e.g. qemu -serial stdio) even when the
// emulated display cannot be inspected.
package uart

import (
	"io"

	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/cpu"
	"github.com/seonWKim/blog-os/kernel/kfmt"
	"github.com/seonWKim/blog-os/kernel/sync"
)

const (
	// COM1 is the I/O base of the first serial port.
	COM1 uint16 = 0x3f8

	// DefaultDivisor programs the port for 38400 baud (115200 / 3).
	DefaultDivisor uint16 = 3

	// Register offsets from the port base.
	regData      = 0 // DLL when DLAB is set
	regIntEnable = 1 // DLM when DLAB is set
	regFIFOCtrl  = 2
	regLineCtrl  = 3
	regModemCtrl = 4
	regLineStat  = 5

	lineCtrlDLAB = 0x80
	lineCtrl8N1  = 0x03

	// Enable FIFO, clear RX/TX queues, 14 byte threshold.
	fifoCtrlEnable = 0xc7

	// DTR, RTS and OUT2 asserted.
	modemCtrlReady = 0x0b

	// RTS, OUT1, OUT2 and loopback mode.
	modemCtrlLoopback = 0x1e

	// DTR, RTS, OUT1 and OUT2 asserted; normal operation.
	modemCtrlNormal = 0x0f

	// loopbackProbe is echoed back by the port while in loopback mode.
	loopbackProbe = 0xae

	// lineStatTxEmpty is set when the transmit holding register can accept
	// another byte.
	lineStatTxEmpty = 1 << 5

	// maxTxPolls bounds the wait for the transmit holding register. A port
	// that never drains must not hang the kernel.
	maxTxPolls = 1 << 16
)

var (
	// These functions are mocked by tests and are automatically inlined by
	// the compiler.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte

	errLoopbackFailed = &kernel.Error{Module: "uart", Message: "loopback self-test failed"}
)

// Port is a polled 16550 serial port. Writes are unbuffered: each byte is
// handed to the transmit holding register before Write returns.
type Port struct {
	lock sync.Spinlock

	base    uint16
	divisor uint16
}

// NewPort returns a port driver for the UART at I/O base.
func NewPort(base uint16) *Port {
	return &Port{base: base, divisor: DefaultDivisor}
}

// Base returns the I/O base of the port.
func (p *Port) Base() uint16 {
	return p.base
}

// WriteByte transmits b. It implements io.ByteWriter.
func (p *Port) WriteByte(b byte) error {
	p.lock.Acquire()
	p.transmit(b)
	p.lock.Release()
	return nil
}

// Write transmits data in order. It implements io.Writer.
func (p *Port) Write(data []byte) (int, error) {
	p.lock.Acquire()
	defer p.lock.Release()

	for _, b := range data {
		p.transmit(b)
	}

	return len(data), nil
}

// WriteString transmits s in order. It implements io.StringWriter.
func (p *Port) WriteString(s string) (int, error) {
	p.lock.Acquire()
	defer p.lock.Release()

	for i := 0; i < len(s); i++ {
		p.transmit(s[i])
	}

	return len(s), nil
}

func (p *Port) transmit(b byte) {
	for i := 0; i < maxTxPolls; i++ {
		if portReadByteFn(p.base+regLineStat)&lineStatTxEmpty != 0 {
			break
		}
	}

	portWriteByteFn(p.base+regData, b)
}

// DriverName returns the name of this driver.
func (p *Port) DriverName() string {
	return "uart16550"
}

// DriverVersion returns the version of this driver.
func (p *Port) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit programs the port for 8N1 at the configured baud rate and
// verifies it with a loopback round trip.
func (p *Port) DriverInit(w io.Writer) *kernel.Error {
	portWriteByteFn(p.base+regIntEnable, 0)
	portWriteByteFn(p.base+regLineCtrl, lineCtrlDLAB)
	portWriteByteFn(p.base+regData, uint8(p.divisor))
	portWriteByteFn(p.base+regIntEnable, uint8(p.divisor>>8))
	portWriteByteFn(p.base+regLineCtrl, lineCtrl8N1)
	portWriteByteFn(p.base+regFIFOCtrl, fifoCtrlEnable)
	portWriteByteFn(p.base+regModemCtrl, modemCtrlReady)

	portWriteByteFn(p.base+regModemCtrl, modemCtrlLoopback)
	portWriteByteFn(p.base+regData, loopbackProbe)
	if portReadByteFn(p.base+regData) != loopbackProbe {
		return errLoopbackFailed
	}

	portWriteByteFn(p.base+regModemCtrl, modemCtrlNormal)

	kfmt.Fprintf(w, "port 0x%x, %d baud\n", p.base, 115200/uint32(p.divisor))
	return nil
}
