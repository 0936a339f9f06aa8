// Package ktest implements the in-kernel test harness. Tests are registered
// into a fixed-capacity table and executed in registration order. Progress
// is reported through a writer (normally the diagnostic channel) and, once
// every test has returned, the hosting VM is told that the run succeeded.
//
// A failing test panics. The panic policy in test mode reports the failure
// and terminates the VM with qemu.ExitFailed, so the harness never regains
// control after a failure.
package ktest

import (
	"io"

	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/kfmt"
	"github.com/seonWKim/blog-os/kernel/qemu"
)

// MaxTests is the capacity of the test registry.
const MaxTests = 64

// Test is a named, zero-argument test procedure. A test fails by panicking.
type Test struct {
	Name string
	Fn   func()
}

// State describes the progress of a harness run.
type State uint8

// The states of a harness run.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

// String implements fmt.Stringer for State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

var (
	// These functions are mocked by tests.
	exitFn  = qemu.Exit
	panicFn = kfmt.Panic

	registry   [MaxTests]Test
	numTests   int
	runState   State
	currentIdx = -1

	errRegistryFull = &kernel.Error{Module: "ktest", Message: "test registry is full"}
	errNilTest      = &kernel.Error{Module: "ktest", Message: "registered test has no body"}
)

// Register appends a test to the registry. Registering more than MaxTests
// tests or a test without a body is a programming error and panics.
func Register(name string, fn func()) {
	switch {
	case fn == nil:
		panicFn(errNilTest)
		return
	case numTests == MaxTests:
		panicFn(errRegistryFull)
		return
	}

	registry[numTests] = Test{Name: name, Fn: fn}
	numTests++
}

// Registered returns the registered tests in registration order.
func Registered() []Test {
	return registry[:numTests]
}

// CurrentState returns the state of the harness.
func CurrentState() State {
	return runState
}

// Current returns the index of the running test or -1 if no test is running.
func Current() int {
	if runState != StateRunning {
		return -1
	}

	return currentIdx
}

// Run executes tests in order, writing one status line per test to w. After
// the last test returns it signals qemu.ExitSuccess to the hosting VM.
//
// The output format is:
//
//	Running <N> tests
//	<name>...	[ok]
//	...
func Run(w io.Writer, tests []Test) {
	runState = StateRunning
	kfmt.Fprintf(w, "Running %d tests\n", len(tests))

	for i, test := range tests {
		currentIdx = i
		kfmt.Fprintf(w, "%s...\t", test.Name)
		test.Fn()
		kfmt.Fprintf(w, "[ok]\n")
	}

	currentIdx = -1
	runState = StateCompleted
	exitFn(qemu.ExitSuccess)
}
