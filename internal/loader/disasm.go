package loader

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// x86ProtectedMode is the decoder bit width for i386 code.
const x86ProtectedMode = 32

// disassemble decodes up to count instructions of code, labelling each with
// its offset from the start of the segment. An error is returned only when the
// first instruction cannot be decoded; later failures end the listing.
// Truncated or unknown opcodes count as failures even though x86asm reports
// them as a one-byte prefix pseudo-instruction without an error.
func disassemble(code []byte, entryOffset uint32, count int) ([]string, error) {
	if entryOffset >= uint32(len(code)) {
		return nil, fmt.Errorf("entry offset %#x beyond %d readable bytes", entryOffset, len(code))
	}

	var listing []string
	pc := uint64(entryOffset)
	rest := code[entryOffset:]
	for len(listing) < count && len(rest) > 0 {
		inst, err := x86asm.Decode(rest, x86ProtectedMode)
		if err == nil && inst.Op == 0 {
			err = x86asm.ErrUnrecognized
		}
		if err != nil {
			if len(listing) == 0 {
				return nil, fmt.Errorf("at %#x: %w", pc, err)
			}
			break
		}
		listing = append(listing, fmt.Sprintf("0x%04x: %s", pc, x86asm.IntelSyntax(inst, pc, nil)))
		pc += uint64(inst.Len)
		rest = rest[inst.Len:]
	}
	return listing, nil
}
