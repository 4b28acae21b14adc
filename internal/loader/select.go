package loader

import "github.com/isseis/go-elf-loader/internal/elf32"

// SelectLoadable returns the index of the first PT_LOAD entry in table order.
// Size, address and flags play no part in the choice.
func SelectLoadable(phdrs []elf32.ProgramHeader) (int, error) {
	for i, p := range phdrs {
		if p.IsLoadable() {
			return i, nil
		}
	}
	return -1, ErrNoLoadableSegment
}
