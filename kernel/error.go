package kernel

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure. No allocator is
// available to the kernel so errors.New cannot be used.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// File and Line optionally record where the error was raised. A zero
	// Line means that no location is attached.
	File string
	Line int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// HasLocation returns true if a source location is attached to the error.
func (e *Error) HasLocation() bool {
	return e.File != "" && e.Line > 0
}
