package kfmt

import (
	"io"

	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/cpu"
	"github.com/seonWKim/blog-os/kernel/qemu"
)

var (
	// These functions are mocked by tests and are automatically inlined by
	// the compiler.
	idleFn              = cpu.IdleLoop
	disableInterruptsFn = cpu.DisableInterrupts
	exitFn              = qemu.Exit

	panicMode = kernel.BuildMode

	// panicking is set by the first call to Panic.
	panicking bool

	displaySink io.Writer
	diagSink    io.Writer

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// SetPanicSinks registers the writers used for reporting panics. Faults
// in normal mode are written to display; faults in test mode are written
// to diag. A nil display writer falls back to the Printf output sink.
func SetPanicSinks(display, diag io.Writer) {
	displaySink, diagSink = display, diag
}

// SetPanicMode selects the panic reporting policy. It defaults to the mode
// the kernel was built for.
func SetPanicMode(mode kernel.Mode) {
	panicMode = mode
}

// Panicking returns true if Panic has been invoked.
func Panicking() bool {
	return panicking
}

// Panic reports the supplied error (if not nil) and halts the CPU. Calls to
// Panic never return. Panic also works as a redirection target for calls to
// panic() (resolved via runtime.gopanic).
//
// In normal mode the report is written to the display. In test mode it is
// written to the diagnostic channel and the hosting VM is terminated with
// qemu.ExitFailed so that the test runner can detect the failure.
//
// Once a panic is in progress, further calls skip reporting and go straight
// to the idle loop.
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	if panicking {
		idleFn()
		return
	}
	panicking = true
	disableInterruptsFn()

	var err *kernel.Error
	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	switch panicMode {
	case kernel.ModeTest:
		reportTestFailure(diagSink, err)
		exitFn(qemu.ExitFailed)
	default:
		w := displaySink
		if w == nil {
			w = outputSink
		}
		reportPanic(w, err)
	}

	idleFn()
}

// panicString serves as a redirect target for runtime.throw
//
//go:redirect-from runtime.throw
func panicString(msg string) {
	Panic(msg)
}

// Assert panics with err if cond is false.
func Assert(cond bool, err *kernel.Error) {
	if !cond {
		Panic(err)
	}
}

func reportPanic(w io.Writer, err *kernel.Error) {
	Fprintf(w, "\n-----------------------------------\n")
	if err != nil {
		Fprintf(w, "[%s] unrecoverable error: %s\n", err.Module, err.Message)
		if err.HasLocation() {
			Fprintf(w, "  at %s:%d\n", err.File, err.Line)
		}
	}
	Fprintf(w, "*** kernel panic: system halted ***")
	Fprintf(w, "\n-----------------------------------\n")
}

func reportTestFailure(w io.Writer, err *kernel.Error) {
	Fprintf(w, "[failed]\n\n")
	if err == nil {
		Fprintf(w, "Error: unknown cause\n\n")
		return
	}

	Fprintf(w, "Error: [%s] %s\n", err.Module, err.Message)
	if err.HasLocation() {
		Fprintf(w, "  at %s:%d\n", err.File, err.Line)
	}
	Fprintf(w, "\n")
}
