package cpu

var (
	cpuidFn = ID
)

// Control register bits reported by the bootstrap code.
const (
	// CR0ProtectedMode is set when the CPU runs in protected mode.
	CR0ProtectedMode = uint64(1 << 0)

	// CR0WriteProtect is set when supervisor writes to read-only pages fault.
	CR0WriteProtect = uint64(1 << 16)

	// CR0Paging is set when paging is enabled.
	CR0Paging = uint64(1 << 31)
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt arrives.
func Halt()

// IdleLoop halts the CPU in an endless loop. Calls to IdleLoop never return.
func IdleLoop()

// ReadCR0 returns the value stored in the CR0 register.
func ReadCR0() uint64

// ReadCR3 returns the value stored in the CR3 register, namely the physical
// address of the active level-4 page table plus its flag bits.
func ReadCR3() uint64

// ID returns information about the CPU and its features. It
// is implemented as a CPUID instruction with EAX=leaf and
// returns the values in EAX, EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}

// VendorString writes the 12-byte CPU vendor identifier into buf and returns
// it. The caller supplies the buffer so no allocation takes place.
func VendorString(buf *[12]byte) []byte {
	_, ebx, ecx, edx := cpuidFn(0)
	for i, reg := range [3]uint32{ebx, edx, ecx} {
		buf[i*4+0] = byte(reg)
		buf[i*4+1] = byte(reg >> 8)
		buf[i*4+2] = byte(reg >> 16)
		buf[i*4+3] = byte(reg >> 24)
	}

	return buf[:]
}

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortWriteDword writes a uint32 value to the requested port.
func PortWriteDword(port uint16, val uint32)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
