// Package qemu implements the isa-debug-exit convention that lets the kernel
// terminate the hosting virtual machine with a status code.
//
// QEMU must be started with
//
//	-device isa-debug-exit,iobase=0xf4,iosize=0x04
//
// Writing value v to the port makes QEMU exit with status (v << 1) | 1.
package qemu

import "github.com/seonWKim/blog-os/kernel/cpu"

// ExitCode is the value written to the exit port.
type ExitCode uint32

// The exit codes understood by the host test runner.
const (
	ExitSuccess ExitCode = 0x10
	ExitFailed  ExitCode = 0x11
)

// DefaultExitPort is the I/O port of the isa-debug-exit device.
const DefaultExitPort uint16 = 0xf4

var (
	// portWriteDwordFn is mocked by tests and is automatically inlined by
	// the compiler.
	portWriteDwordFn = cpu.PortWriteDword

	exitPort = DefaultExitPort
	exited   bool
)

// String implements fmt.Stringer for ExitCode.
func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HostStatus returns the process exit status that QEMU reports to its
// parent when the kernel exits with code c.
func (c ExitCode) HostStatus() int {
	return int(c)<<1 | 1
}

// SetExitPort overrides the port used by Exit.
func SetExitPort(port uint16) {
	exitPort = port
}

// Exit signals code to the hosting VM. Only the first call with ExitSuccess
// or ExitFailed performs the port write; any later call and any other code
// is a no-op. When running on real hardware (or under a VM without the exit
// device) the write is ignored and Exit returns.
func Exit(code ExitCode) {
	if exited || (code != ExitSuccess && code != ExitFailed) {
		return
	}

	exited = true
	portWriteDwordFn(exitPort, uint32(code))
}

// Exited returns true if an exit code has already been signaled.
func Exited() bool {
	return exited
}
