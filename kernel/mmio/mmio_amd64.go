// Package mmio provides the only primitives that the kernel uses to touch
// memory-mapped device memory.
//
// Device memory is observed and modified by hardware independently of the
// program, so accesses must never be cached in registers, merged, reordered
// or eliminated by the compiler. The Go compiler treats calls to assembly
// routines as opaque, which gives each Store/Load call the semantics of a
// volatile access.
package mmio

// Store16 writes v to the 16-bit word located at addr.
func Store16(addr uintptr, v uint16)

// Load16 reads the 16-bit word located at addr.
func Load16(addr uintptr) uint16
