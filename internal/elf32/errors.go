package elf32

import (
	"debug/elf"
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrTruncatedHeader indicates fewer than HeaderSize bytes were available at offset 0.
	ErrTruncatedHeader = errors.New("truncated ELF header")

	// ErrTruncatedTable indicates the program header table extends past end of file.
	ErrTruncatedTable = errors.New("truncated program header table")

	// ErrBadMagic indicates the file does not start with "\x7fELF".
	ErrBadMagic = errors.New("bad ELF magic")

	// ErrNotELF32 indicates the header's class is not ELFCLASS32.
	ErrNotELF32 = errors.New("not a 32-bit ELF file")

	// ErrNotLittleEndian indicates the header's data encoding is not ELFDATA2LSB.
	ErrNotLittleEndian = errors.New("not a little-endian ELF file")

	// ErrBadProgramHeaderSize indicates e_phentsize differs from ProgramHeaderSize.
	ErrBadProgramHeaderSize = errors.New("unexpected program header entry size")
)

// UnsupportedArchitectureError indicates the ELF machine is not EM_386.
type UnsupportedArchitectureError struct {
	Machine elf.Machine
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf("unsupported ELF architecture: %s", e.Machine)
}
