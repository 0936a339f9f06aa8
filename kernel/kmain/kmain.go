package kmain

import (
	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/cpu"
	"github.com/seonWKim/blog-os/kernel/hal"
	"github.com/seonWKim/blog-os/kernel/hal/multiboot"
	"github.com/seonWKim/blog-os/kernel/kfmt"
	"github.com/seonWKim/blog-os/kernel/ktest"
)

var (
	// These functions are mocked by tests and are automatically inlined by
	// the compiler.
	idleFn           = cpu.IdleLoop
	readCR0Fn        = cpu.ReadCR0
	readCR3Fn        = cpu.ReadCR3
	vendorStringFn   = cpu.VendorString
	detectHardwareFn = hal.DetectHardware
	runTestsFn       = ktest.Run
	panicFn          = kfmt.Panic

	buildMode = kernel.BuildMode

	vendorBuf [12]byte

	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and a minimal g0 struct that allows Go code to
// use the 4K stack allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader.
//
// Kmain is not expected to return. In test builds it runs the registered
// kernel tests, which terminate the VM, before idling.
//
//go:noinline
func Kmain(multibootInfoPtr uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	cr3 := readCR3Fn()
	cr0 := readCR0Fn()

	detectHardwareFn()
	printBanner(cr0, cr3)

	if buildMode == kernel.ModeTest {
		registerSelfTests()
		runTestsFn(hal.DiagnosticChannel(), ktest.Registered())
	}

	idleFn()

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// printBanner writes the startup message and a summary of the machine
// state to the Printf sink.
func printBanner(cr0, cr3 uint64) {
	kfmt.Printf("Hello World!\n")
	kfmt.Printf("[kmain] build mode: %s, cpu: %s\n", buildMode.String(), vendorStringFn(&vendorBuf))
	kfmt.Printf("[kmain] cr3: 0x%16x, paging: %t, protected mode: %t\n",
		cr3, cr0&cpu.CR0Paging != 0, cr0&cpu.CR0ProtectedMode != 0)

	if !multiboot.Present() {
		kfmt.Printf("[kmain] no boot information available\n")
		return
	}

	if name := multiboot.BootLoaderName(); name != nil {
		kfmt.Printf("[kmain] booted by: %s\n", name)
	}

	kfmt.Printf("[kmain] system memory map:\n")
	multiboot.VisitMemRegions(func(entry multiboot.MemoryMapEntry) bool {
		kfmt.Printf("  [0x%10x - 0x%10x], size: %10d, type: %s\n",
			entry.PhysAddress, entry.PhysAddress+entry.Length, entry.Length, entry.Type.String())
		return true
	})
	kfmt.Printf("[kmain] available memory: %dKb\n", multiboot.AvailableMemory()/1024)
}
