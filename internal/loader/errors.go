package loader

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrOpen indicates the target could not be opened.
	ErrOpen = errors.New("cannot open ELF file")

	// ErrRead indicates an I/O error other than end of file while reading metadata.
	ErrRead = errors.New("cannot read ELF file")

	// ErrTruncatedHeader indicates the file is shorter than an ELF header.
	ErrTruncatedHeader = errors.New("truncated ELF header")

	// ErrTruncatedTable indicates the program header table runs past end of file.
	ErrTruncatedTable = errors.New("truncated program header table")

	// ErrInvalidHeader indicates strict header validation failed.
	ErrInvalidHeader = errors.New("invalid ELF header")

	// ErrNoLoadableSegment indicates the program header table has no PT_LOAD entry.
	ErrNoLoadableSegment = errors.New("no PT_LOAD segment found")

	// ErrEntryOutsideSegment indicates p_vaddr does not fall inside the mapped segment.
	ErrEntryOutsideSegment = errors.New("entry offset outside mapped segment")

	// ErrUndecodableEntry indicates the first instruction at the entry is not valid x86.
	ErrUndecodableEntry = errors.New("entry point does not decode as x86 code")

	// ErrMapping indicates the kernel refused the segment mapping.
	ErrMapping = errors.New("cannot map segment")

	// ErrUnmap indicates the segment could not be unmapped after the entry returned.
	ErrUnmap = errors.New("cannot unmap segment")

	// ErrClose indicates the ELF file descriptor could not be closed.
	ErrClose = errors.New("cannot close ELF file")

	// ErrUnsupportedHost indicates this build cannot transfer control to foreign code.
	ErrUnsupportedHost = errors.New("calling a mapped entry point is not supported on this platform")
)

// Operation names reported in LoadError.Op.
const (
	OpOpen       = "open"
	OpReadHeader = "read header"
	OpValidate   = "validate header"
	OpReadTable  = "read program headers"
	OpSelect     = "select segment"
	OpMap        = "mmap"
	OpInspect    = "inspect entry"
	OpCall       = "call"
	OpUnmap      = "munmap"
	OpClose      = "close"
)

// LoadError records the operation that failed, the class of failure and its cause.
type LoadError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause to errors.Is.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
