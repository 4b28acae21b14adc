package loader

import "github.com/isseis/go-elf-loader/internal/safefileio"

// DefaultDisassembleCount is the number of entry instructions logged when Options leaves it unset.
const DefaultDisassembleCount = 4

// Options configures a Loader. The zero value is the permissive loader with
// the platform mapper and executor.
type Options struct {
	// Strict validates the ELF identification fields, requires p_vaddr < p_memsz
	// and requires the entry to decode as x86 before control is transferred.
	Strict bool

	// RejectSymlinks refuses a target whose final path component is a symlink.
	// Ignored when FileSystem is set.
	RejectSymlinks bool

	// DryRun stops after the segment is mapped and inspected; the entry is never called.
	DryRun bool

	// DisassembleCount is the number of entry instructions to decode for the
	// log and Result.Instructions. Zero means DefaultDisassembleCount; negative disables.
	DisassembleCount int

	FileSystem safefileio.FileSystem
	Mapper     Mapper
	Executor   Executor
}

func (o Options) withDefaults() Options {
	if o.FileSystem == nil {
		o.FileSystem = safefileio.NewFileSystem(safefileio.FileSystemConfig{RejectSymlinks: o.RejectSymlinks})
	}
	if o.Mapper == nil {
		o.Mapper = DefaultMapper()
	}
	if o.Executor == nil {
		o.Executor = DefaultExecutor()
	}
	if o.DisassembleCount == 0 {
		o.DisassembleCount = DefaultDisassembleCount
	}
	return o
}
