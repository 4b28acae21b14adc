package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/isseis/go-elf-loader/internal/elf32"
)

// ReturnValueFormat is the report line written for a returned entry point.
const ReturnValueFormat = "User _start return value = %d\n"

// Result describes a completed load.
type Result struct {
	// ReturnValue is the int the entry point returned. Zero for a dry run.
	ReturnValue int32

	// SegmentIndex is the position of the selected PT_LOAD entry in the table.
	SegmentIndex int

	// Segment is a copy of the selected program header.
	Segment elf32.ProgramHeader

	// EntryOffset is p_vaddr, the offset into the mapping that was called.
	EntryOffset uint32

	// Instructions is the decoded listing at the entry, if disassembly ran.
	Instructions []string

	// State is the last state the load reached.
	State State

	// CleanupErr holds unmap or close failures. They do not fail the load.
	CleanupErr error
}

// WriteReport writes the report line for res to w.
func WriteReport(w io.Writer, res Result) error {
	_, err := fmt.Fprintf(w, ReturnValueFormat, res.ReturnValue)
	return err
}

// Loader loads and runs ELF32 executables. A Loader holds only configuration;
// every Load call has its own state, so calls are independent.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Loader. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// loadContext owns everything one Load call acquires.
type loadContext struct {
	path   string
	logger *slog.Logger
	mapper Mapper
	state  State

	file    *os.File
	size    int64
	header  elf32.Header
	phdrs   []elf32.ProgramHeader
	segment []byte
}

func (c *loadContext) advance(s State) {
	c.state = s
	c.logger.Debug("Loader state changed", slog.String("state", s.String()))
}

func (c *loadContext) fail(op string, kind, err error) error {
	return &LoadError{Op: op, Path: c.path, Kind: kind, Err: err}
}

// release unmaps the segment and closes the file, whichever were acquired.
// Each resource is released at most once.
func (c *loadContext) release() error {
	var errs []error
	if c.segment != nil {
		if err := c.mapper.Unmap(c.segment); err != nil {
			errs = append(errs, c.fail(OpUnmap, ErrUnmap, err))
		}
		c.segment = nil
	}
	if c.file != nil {
		if err := c.file.Close(); err != nil {
			errs = append(errs, c.fail(OpClose, ErrClose, err))
		}
		c.file = nil
	}
	c.header = elf32.Header{}
	c.phdrs = nil
	return errors.Join(errs...)
}

// Load opens path, maps its first PT_LOAD segment and calls base+p_vaddr.
//
// ctx is consulted between steps up to the call; the loaded code itself
// cannot be cancelled. Apart from ctx.Err(), errors are *LoadError values.
// Cleanup failures are reported in Result.CleanupErr and do not turn a
// successful run into an error.
func (l *Loader) Load(ctx context.Context, path string) (res Result, err error) {
	c := &loadContext{
		path:   path,
		logger: l.logger.With(slog.String("path", path)),
		mapper: l.opts.Mapper,
		state:  StateUnopened,
	}
	res.SegmentIndex = -1

	defer func() {
		res.CleanupErr = c.release()
		if res.CleanupErr != nil {
			c.logger.Warn("Cleanup after load failed", slog.Any("error", res.CleanupErr))
		} else if err == nil {
			c.advance(StateCleaned)
		}
		res.State = c.state
	}()

	if err := ctx.Err(); err != nil {
		return res, err
	}

	file, info, err := l.opts.FileSystem.OpenExecutable(path)
	if err != nil {
		return res, c.fail(OpOpen, ErrOpen, err)
	}
	c.file = file
	c.size = info.Size()

	if err := l.readMetadata(c); err != nil {
		return res, err
	}

	idx, err := SelectLoadable(c.phdrs)
	if err != nil {
		return res, c.fail(OpSelect, ErrNoLoadableSegment, nil)
	}
	seg := c.phdrs[idx]
	res.SegmentIndex = idx
	res.Segment = seg
	res.EntryOffset = seg.Vaddr
	c.advance(StateSegmentSelected)
	c.logger.Debug("Selected loadable segment",
		slog.Int("index", idx),
		slog.String("p_offset", fmt.Sprintf("%#x", seg.Offset)),
		slog.String("p_vaddr", fmt.Sprintf("%#x", seg.Vaddr)),
		slog.Uint64("p_memsz", uint64(seg.Memsz)))

	if l.opts.Strict && seg.Vaddr >= seg.Memsz {
		return res, c.fail(OpSelect, ErrEntryOutsideSegment,
			fmt.Errorf("p_vaddr %#x, p_memsz %#x", seg.Vaddr, seg.Memsz))
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	if err := l.mapSegment(c, seg); err != nil {
		return res, err
	}

	insts, err := l.inspectEntry(c, seg)
	if err != nil {
		return res, err
	}
	res.Instructions = insts

	if l.opts.DryRun {
		c.logger.Info("Dry run: entry point not called",
			slog.Int("segment", idx),
			slog.String("entry_offset", fmt.Sprintf("%#x", seg.Vaddr)))
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	c.advance(StateExecuting)
	c.logger.Info("Transferring control to entry point", slog.String("entry_offset", fmt.Sprintf("%#x", seg.Vaddr)))
	value, err := l.opts.Executor.Call(c.segment, seg.Vaddr)
	if err != nil {
		return res, c.fail(OpCall, err, nil)
	}
	c.advance(StateReturned)
	res.ReturnValue = value
	c.logger.Info("Entry point returned", slog.Int("return_value", int(value)))

	return res, nil
}

func (l *Loader) readMetadata(c *loadContext) error {
	hdr, err := elf32.ReadHeader(c.file)
	if err != nil {
		if errors.Is(err, elf32.ErrTruncatedHeader) {
			return c.fail(OpReadHeader, ErrTruncatedHeader, err)
		}
		return c.fail(OpReadHeader, ErrRead, err)
	}
	c.header = hdr
	c.advance(StateHeaderRead)
	c.logger.Debug("Read ELF header",
		slog.String("machine", fmt.Sprintf("%#x", hdr.Machine)),
		slog.String("entry", fmt.Sprintf("%#x", hdr.Entry)),
		slog.String("e_phoff", fmt.Sprintf("%#x", hdr.Phoff)),
		slog.Int("e_phnum", int(hdr.Phnum)))

	if l.opts.Strict {
		if err := hdr.Validate(); err != nil {
			return c.fail(OpValidate, ErrInvalidHeader, err)
		}
	}

	phdrs, err := elf32.ReadProgramHeaders(c.file, hdr)
	if err != nil {
		if errors.Is(err, elf32.ErrTruncatedTable) {
			return c.fail(OpReadTable, ErrTruncatedTable, err)
		}
		return c.fail(OpReadTable, ErrRead, err)
	}
	c.phdrs = phdrs
	c.advance(StateTableRead)
	return nil
}

func (l *Loader) mapSegment(c *loadContext, seg elf32.ProgramHeader) error {
	if uint64(seg.Memsz) > math.MaxInt {
		return c.fail(OpMap, ErrMapping, fmt.Errorf("p_memsz %#x exceeds address space", seg.Memsz))
	}

	segment, err := c.mapper.Map(int(c.file.Fd()), int64(seg.Offset), int(seg.Memsz))
	if err != nil {
		return c.fail(OpMap, ErrMapping, err)
	}
	c.segment = segment
	c.advance(StateMapped)
	return nil
}

// inspectEntry decodes the instructions at the entry. Only the part of the
// mapping backed by the file is read; touching pages past end of file faults.
func (l *Loader) inspectEntry(c *loadContext, seg elf32.ProgramHeader) ([]string, error) {
	count := l.opts.DisassembleCount
	if l.opts.Strict && count < 1 {
		count = 1
	}
	if count < 1 {
		return nil, nil
	}

	readable := int64(len(c.segment))
	if backed := c.size - int64(seg.Offset); backed < readable {
		readable = max(backed, 0)
	}

	insts, err := disassemble(c.segment[:readable], seg.Vaddr, count)
	if err != nil {
		if l.opts.Strict {
			return nil, c.fail(OpInspect, ErrUndecodableEntry, err)
		}
		c.logger.Debug("Entry point not disassembled", slog.Any("error", err))
		return nil, nil
	}
	for _, inst := range insts {
		c.logger.Debug("Entry instruction", slog.String("inst", inst))
	}
	return insts, nil
}
