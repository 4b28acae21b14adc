// Package elf32 decodes the fixed-layout records of a 32-bit little-endian ELF
// executable: the file header and the program header table.
//
// Records are decoded field by field from their documented byte offsets rather
// than by overlaying Go structs on raw memory, so the on-disk layout does not
// depend on the host's struct alignment.
//
// # Usage
//
//	f, _ := os.Open("/path/to/prog")
//	hdr, phdrs, err := elf32.ReadMetadata(f)
//
// # Limitations
//
//   - Only the fields needed to locate and map a segment are interpreted.
//   - ReadHeader performs no validation; call Header.Validate to reject files
//     that are not ELFCLASS32/ELFDATA2LSB/EM_386.
package elf32
