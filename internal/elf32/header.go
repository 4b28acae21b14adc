package elf32

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the size in bytes of an Elf32_Ehdr.
	HeaderSize = 52

	// ProgramHeaderSize is the size in bytes of an Elf32_Phdr.
	ProgramHeaderSize = 32

	// identSize is the length of e_ident.
	identSize = elf.EI_NIDENT
)

// byteOrder is the only data encoding the i386 ABI defines.
var byteOrder = binary.LittleEndian

// Header is a decoded Elf32_Ehdr.
type Header struct {
	Ident     [identSize]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// ProgramHeader is a decoded Elf32_Phdr.
type ProgramHeader struct {
	Type   uint32
	Offset uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  uint32
	Align  uint32
}

// DecodeHeader decodes an Elf32_Ehdr from b, which must hold at least HeaderSize bytes.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncatedHeader, len(b), HeaderSize)
	}

	var h Header
	copy(h.Ident[:], b[0:identSize])
	h.Type = byteOrder.Uint16(b[16:18])
	h.Machine = byteOrder.Uint16(b[18:20])
	h.Version = byteOrder.Uint32(b[20:24])
	h.Entry = byteOrder.Uint32(b[24:28])
	h.Phoff = byteOrder.Uint32(b[28:32])
	h.Shoff = byteOrder.Uint32(b[32:36])
	h.Flags = byteOrder.Uint32(b[36:40])
	h.Ehsize = byteOrder.Uint16(b[40:42])
	h.Phentsize = byteOrder.Uint16(b[42:44])
	h.Phnum = byteOrder.Uint16(b[44:46])
	h.Shentsize = byteOrder.Uint16(b[46:48])
	h.Shnum = byteOrder.Uint16(b[48:50])
	h.Shstrndx = byteOrder.Uint16(b[50:52])
	return h, nil
}

// Encode writes h in its on-disk layout.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:identSize], h.Ident[:])
	byteOrder.PutUint16(b[16:18], h.Type)
	byteOrder.PutUint16(b[18:20], h.Machine)
	byteOrder.PutUint32(b[20:24], h.Version)
	byteOrder.PutUint32(b[24:28], h.Entry)
	byteOrder.PutUint32(b[28:32], h.Phoff)
	byteOrder.PutUint32(b[32:36], h.Shoff)
	byteOrder.PutUint32(b[36:40], h.Flags)
	byteOrder.PutUint16(b[40:42], h.Ehsize)
	byteOrder.PutUint16(b[42:44], h.Phentsize)
	byteOrder.PutUint16(b[44:46], h.Phnum)
	byteOrder.PutUint16(b[46:48], h.Shentsize)
	byteOrder.PutUint16(b[48:50], h.Shnum)
	byteOrder.PutUint16(b[50:52], h.Shstrndx)
	return b
}

// TableSize returns the number of bytes the program header table occupies.
func (h Header) TableSize() int64 {
	return int64(h.Phnum) * ProgramHeaderSize
}

// Validate checks the identification fields a loader for i386 relies on.
func (h Header) Validate() error {
	if !bytes.Equal(h.Ident[:elf.EI_CLASS], []byte(elf.ELFMAG)) {
		return fmt.Errorf("%w: % x", ErrBadMagic, h.Ident[:elf.EI_CLASS])
	}
	if class := elf.Class(h.Ident[elf.EI_CLASS]); class != elf.ELFCLASS32 {
		return fmt.Errorf("%w: %s", ErrNotELF32, class)
	}
	if data := elf.Data(h.Ident[elf.EI_DATA]); data != elf.ELFDATA2LSB {
		return fmt.Errorf("%w: %s", ErrNotLittleEndian, data)
	}
	if m := elf.Machine(h.Machine); m != elf.EM_386 {
		return &UnsupportedArchitectureError{Machine: m}
	}
	if h.Phentsize != ProgramHeaderSize {
		return fmt.Errorf("%w: %d", ErrBadProgramHeaderSize, h.Phentsize)
	}
	return nil
}

// DecodeProgramHeader decodes an Elf32_Phdr from b, which must hold at least ProgramHeaderSize bytes.
func DecodeProgramHeader(b []byte) (ProgramHeader, error) {
	if len(b) < ProgramHeaderSize {
		return ProgramHeader{}, fmt.Errorf("%w: entry has %d bytes, need %d", ErrTruncatedTable, len(b), ProgramHeaderSize)
	}
	return ProgramHeader{
		Type:   byteOrder.Uint32(b[0:4]),
		Offset: byteOrder.Uint32(b[4:8]),
		Vaddr:  byteOrder.Uint32(b[8:12]),
		Paddr:  byteOrder.Uint32(b[12:16]),
		Filesz: byteOrder.Uint32(b[16:20]),
		Memsz:  byteOrder.Uint32(b[20:24]),
		Flags:  byteOrder.Uint32(b[24:28]),
		Align:  byteOrder.Uint32(b[28:32]),
	}, nil
}

// Encode writes p in its on-disk layout.
func (p ProgramHeader) Encode() []byte {
	b := make([]byte, ProgramHeaderSize)
	byteOrder.PutUint32(b[0:4], p.Type)
	byteOrder.PutUint32(b[4:8], p.Offset)
	byteOrder.PutUint32(b[8:12], p.Vaddr)
	byteOrder.PutUint32(b[12:16], p.Paddr)
	byteOrder.PutUint32(b[16:20], p.Filesz)
	byteOrder.PutUint32(b[20:24], p.Memsz)
	byteOrder.PutUint32(b[24:28], p.Flags)
	byteOrder.PutUint32(b[28:32], p.Align)
	return b
}

// IsLoadable reports whether p is a PT_LOAD segment.
func (p ProgramHeader) IsLoadable() bool {
	return elf.ProgType(p.Type) == elf.PT_LOAD
}

// TypeName returns the symbolic segment type, e.g. "PT_LOAD".
func (p ProgramHeader) TypeName() string {
	return elf.ProgType(p.Type).String()
}
