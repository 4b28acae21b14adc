package loader

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isseis/go-elf-loader/internal/elf32"
)

func TestSelectLoadable(t *testing.T) {
	load := func(memsz uint32) elf32.ProgramHeader {
		return elf32.ProgramHeader{Type: uint32(elf.PT_LOAD), Memsz: memsz}
	}
	other := func(pt elf.ProgType) elf32.ProgramHeader {
		return elf32.ProgramHeader{Type: uint32(pt)}
	}

	tests := []struct {
		name    string
		phdrs   []elf32.ProgramHeader
		want    int
		wantErr error
	}{
		{name: "empty table", phdrs: nil, want: -1, wantErr: ErrNoLoadableSegment},
		{name: "no PT_LOAD", phdrs: []elf32.ProgramHeader{other(elf.PT_DYNAMIC), other(elf.PT_NOTE)}, want: -1, wantErr: ErrNoLoadableSegment},
		{name: "single", phdrs: []elf32.ProgramHeader{load(8)}, want: 0},
		{name: "first wins over larger", phdrs: []elf32.ProgramHeader{other(elf.PT_PHDR), load(8), load(4096)}, want: 1},
		{name: "first wins over smaller", phdrs: []elf32.ProgramHeader{load(4096), load(8)}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectLoadable(tt.phdrs)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
