package kernel

// Mode selects how the kernel behaves once it has finished booting and how
// unrecoverable errors are reported.
type Mode uint8

const (
	// ModeNormal reports faults on the display and idles forever.
	ModeNormal Mode = iota

	// ModeTest runs the registered self tests, reports through the
	// diagnostic channel and terminates the hosting VM.
	ModeTest
)

// String implements fmt.Stringer for Mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeTest:
		return "test"
	default:
		return "unknown"
	}
}
