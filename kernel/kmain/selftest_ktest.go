//go:build ktest

package kmain

import (
	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/hal"
	"github.com/seonWKim/blog-os/kernel/hal/multiboot"
	"github.com/seonWKim/blog-os/kernel/kfmt"
	"github.com/seonWKim/blog-os/kernel/ktest"
)

const printlnOutputLine = "Some test string that fits on a single line"

var (
	selfTestsRegistered bool

	errTrivial       = &kernel.Error{Module: "selftest", Message: "1 != 1"}
	errNoTerminal    = &kernel.Error{Module: "selftest", Message: "no display terminal attached"}
	errOutputMissing = &kernel.Error{Module: "selftest", Message: "printed line not found in the framebuffer"}
	errNoBootInfo    = &kernel.Error{Module: "selftest", Message: "boot information missing"}
)

// registerSelfTests adds the kernel self tests to the harness registry.
func registerSelfTests() {
	if selfTestsRegistered {
		return
	}
	selfTestsRegistered = true

	ktest.Register("kmain::trivial_assertion", testTrivialAssertion)
	ktest.Register("kmain::println_simple", testPrintlnSimple)
	ktest.Register("kmain::println_many", testPrintlnMany)
	ktest.Register("kmain::println_output", testPrintlnOutput)
	ktest.Register("kmain::boot_info_present", testBootInfoPresent)
}

func testTrivialAssertion() {
	kfmt.Assert(1 == 1, errTrivial)
}

func testPrintlnSimple() {
	kfmt.Printf("test_println_simple output\n")
}

// testPrintlnMany prints more lines than the display holds so the terminal
// has to scroll.
func testPrintlnMany() {
	for i := 0; i < 200; i++ {
		kfmt.Printf("test_println_many output %d\n", i)
	}
}

// testPrintlnOutput prints a line and reads it back from the framebuffer.
func testPrintlnOutput() {
	term, cons := hal.ActiveTTY(), hal.ActiveConsole()
	kfmt.Assert(term != nil && cons != nil, errNoTerminal)

	kfmt.Printf("\n%s", printlnOutputLine)

	_, y := term.CursorPosition()
	for i := 0; i < len(printlnOutputLine); i++ {
		ch, _ := cons.Read(uint32(i+1), y)
		kfmt.Assert(ch == printlnOutputLine[i], errOutputMissing)
	}

	kfmt.Printf("\n")
}

func testBootInfoPresent() {
	kfmt.Assert(multiboot.Present(), errNoBootInfo)
}
