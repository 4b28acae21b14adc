package loader

// Mapper creates and releases the executable mapping of a segment.
type Mapper interface {
	// Map maps length bytes of fd starting at offset as private, readable,
	// writable and executable memory.
	Map(fd int, offset int64, length int) ([]byte, error)

	// Unmap releases a mapping returned by Map.
	Unmap(segment []byte) error
}

// Executor transfers control to code inside a mapped segment.
type Executor interface {
	// Call runs the code at segment[entryOffset] as a function taking no
	// arguments and returning a C int. It returns only if that code returns.
	Call(segment []byte, entryOffset uint32) (int32, error)
}

// DefaultMapper returns the mmap-backed Mapper for this platform.
func DefaultMapper() Mapper {
	return mmapMapper{}
}

// DefaultExecutor returns the Executor that calls native code on this platform.
func DefaultExecutor() Executor {
	return trampolineExecutor{}
}
