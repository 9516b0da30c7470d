// Package kernel contains the types shared by every layer of the uOS kernel.
package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error values so that reporting one never needs the allocator;
// callers compare them by identity.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// String returns the error prefixed with the module that raised it.
func (e *Error) String() string {
	if e.Module == "" {
		return e.Message
	}

	return "[" + e.Module + "] " + e.Message
}
