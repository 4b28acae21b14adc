// Package elf32testing provides helpers that synthesise 32-bit ELF images for tests.
package elf32testing

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isseis/go-elf-loader/internal/elf32"
)

// ReturnConst returns i386 code for "mov eax, v; ret".
func ReturnConst(v uint32) []byte {
	return []byte{0xb8, byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24), 0xc3}
}

// Fibonacci10 is i386 code that iterates a=b, b=a+b ten times from (0, 1)
// and returns a, i.e. 55. Every instruction decodes identically in 64-bit mode.
//
//	      xor  eax, eax
//	      mov  ecx, 1
//	      mov  edx, 10
//	loop: xchg eax, ecx
//	      add  ecx, eax
//	      dec  edx
//	      jnz  loop
//	      ret
var Fibonacci10 = []byte{
	0x31, 0xc0,
	0xb9, 0x01, 0x00, 0x00, 0x00,
	0xba, 0x0a, 0x00, 0x00, 0x00,
	0x91,
	0x01, 0xc1,
	0xff, 0xca,
	0x75, 0xf9,
	0xc3,
}

// Segment describes one program header the Builder should emit.
type Segment struct {
	Type  elf.ProgType
	Vaddr uint32
	Memsz uint32
	// Offset defaults to 0 so that the segment maps the file from its start.
	Offset uint32
}

// Builder assembles an ELF32 image: header, program header table, then code.
type Builder struct {
	Machine  elf.Machine
	Class    elf.Class
	Segments []Segment
	Code     []byte
}

// NewBuilder returns a Builder for an i386 executable with the given code.
func NewBuilder(code []byte) *Builder {
	return &Builder{
		Machine: elf.EM_386,
		Class:   elf.ELFCLASS32,
		Code:    code,
	}
}

// CodeOffset is the file offset at which Code is placed.
func (b *Builder) CodeOffset() uint32 {
	return uint32(elf32.HeaderSize + len(b.Segments)*elf32.ProgramHeaderSize)
}

// AddLoad appends a PT_LOAD segment covering the whole image whose entry is the code.
func (b *Builder) AddLoad() *Builder {
	b.Segments = append(b.Segments, Segment{Type: elf.PT_LOAD})
	return b
}

// Add appends an arbitrary segment.
func (b *Builder) Add(s Segment) *Builder {
	b.Segments = append(b.Segments, s)
	return b
}

// Header returns the ELF header the image will carry.
func (b *Builder) Header() elf32.Header {
	var h elf32.Header
	copy(h.Ident[:], elf.ELFMAG)
	h.Ident[elf.EI_CLASS] = byte(b.Class)
	h.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	h.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	h.Type = uint16(elf.ET_EXEC)
	h.Machine = uint16(b.Machine)
	h.Version = uint32(elf.EV_CURRENT)
	h.Entry = b.CodeOffset()
	h.Phoff = elf32.HeaderSize
	h.Ehsize = elf32.HeaderSize
	h.Phentsize = elf32.ProgramHeaderSize
	h.Phnum = uint16(len(b.Segments))
	return h
}

// Bytes renders the image. Segments with zero Vaddr/Memsz are filled in so
// that Vaddr points at the code and Memsz spans the whole file.
func (b *Builder) Bytes() []byte {
	codeOff := b.CodeOffset()
	total := codeOff + uint32(len(b.Code))

	out := b.Header().Encode()
	for _, s := range b.Segments {
		p := elf32.ProgramHeader{
			Type:   uint32(s.Type),
			Offset: s.Offset,
			Vaddr:  s.Vaddr,
			Memsz:  s.Memsz,
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Align:  0x1000,
		}
		if s.Type == elf.PT_LOAD {
			if p.Vaddr == 0 {
				p.Vaddr = codeOff
			}
			if p.Memsz == 0 {
				p.Memsz = total
			}
			p.Filesz = p.Memsz
		}
		out = append(out, p.Encode()...)
	}
	return append(out, b.Code...)
}

// WriteFile writes the image into t.TempDir and returns its path.
func (b *Builder) WriteFile(t *testing.T) string {
	t.Helper()
	return WriteBytes(t, "prog.elf", b.Bytes())
}

// WriteBytes writes raw bytes into t.TempDir under name and returns the path.
func WriteBytes(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o700))
	return path
}
