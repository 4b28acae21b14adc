package elf32

import (
	"errors"
	"fmt"
	"io"
)

// ReadHeader reads the ELF header from offset 0 of r.
// A short read is always ErrTruncatedHeader; no partial header is returned.
func ReadHeader(r io.ReaderAt) (Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := r.ReadAt(buf, 0)
	if n < HeaderSize {
		if err == nil || errors.Is(err, io.EOF) {
			return Header{}, fmt.Errorf("%w: read %d of %d bytes", ErrTruncatedHeader, n, HeaderSize)
		}
		return Header{}, fmt.Errorf("failed to read ELF header: %w", err)
	}
	return DecodeHeader(buf)
}

// ReadProgramHeaders reads h.Phnum contiguous program header entries starting at h.Phoff.
func ReadProgramHeaders(r io.ReaderAt, h Header) ([]ProgramHeader, error) {
	size := h.TableSize()
	if size == 0 {
		return []ProgramHeader{}, nil
	}

	buf := make([]byte, size)
	n, err := r.ReadAt(buf, int64(h.Phoff))
	if int64(n) < size {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: read %d of %d bytes at offset %#x", ErrTruncatedTable, n, size, h.Phoff)
		}
		return nil, fmt.Errorf("failed to read program header table: %w", err)
	}

	phdrs := make([]ProgramHeader, h.Phnum)
	for i := range phdrs {
		off := i * ProgramHeaderSize
		p, err := DecodeProgramHeader(buf[off : off+ProgramHeaderSize])
		if err != nil {
			return nil, err
		}
		phdrs[i] = p
	}
	return phdrs, nil
}

// ReadMetadata reads the header and then the program header table it describes.
func ReadMetadata(r io.ReaderAt) (Header, []ProgramHeader, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	phdrs, err := ReadProgramHeaders(r, h)
	if err != nil {
		return Header{}, nil, err
	}
	return h, phdrs, nil
}
