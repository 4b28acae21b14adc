//go:build test

package loader

import (
	"bytes"
	"context"
	"debug/elf"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-elf-loader/internal/elf32"
	"github.com/isseis/go-elf-loader/internal/elf32/elf32testing"
)

func newTestLoader(opts Options, mapper *fakeMapper, exec *fakeExecutor) *Loader {
	opts.Mapper = mapper
	opts.Executor = exec
	return New(opts, nil)
}

func TestLoad_ReturnsEntryValue(t *testing.T) {
	b := elf32testing.NewBuilder(elf32testing.ReturnConst(55)).AddLoad()
	path := b.WriteFile(t)
	mapper := newFakeMapper(readImage(path))
	exec := &fakeExecutor{ret: 55}

	res, err := newTestLoader(Options{Strict: true}, mapper, exec).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, int32(55), res.ReturnValue)
	assert.Equal(t, 0, res.SegmentIndex)
	assert.Equal(t, b.CodeOffset(), res.EntryOffset)
	assert.Equal(t, b.CodeOffset(), exec.entryOffset)
	assert.Equal(t, StateCleaned, res.State)
	assert.NoError(t, res.CleanupErr)
	assert.Equal(t, 1, mapper.unmapped)

	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))
	assert.Equal(t, "User _start return value = 55\n", out.String())
}

func TestLoad_Failures(t *testing.T) {
	valid := elf32testing.NewBuilder(elf32testing.ReturnConst(1)).AddLoad()

	pastEOF := valid.Header()
	pastEOF.Phoff = 0x4000

	tooMany := valid.Header()
	tooMany.Phnum = 200

	noLoad := elf32testing.NewBuilder(elf32testing.ReturnConst(1)).
		Add(elf32testing.Segment{Type: elf.PT_NOTE}).
		Add(elf32testing.Segment{Type: elf.PT_DYNAMIC})

	tests := []struct {
		name      string
		image     []byte
		wantKind  error
		wantOp    string
		wantState State
	}{
		{
			name:      "empty file",
			image:     nil,
			wantKind:  ErrTruncatedHeader,
			wantOp:    OpReadHeader,
			wantState: StateUnopened,
		},
		{
			name:      "shorter than header",
			image:     valid.Bytes()[:elf32.HeaderSize-1],
			wantKind:  ErrTruncatedHeader,
			wantOp:    OpReadHeader,
			wantState: StateUnopened,
		},
		{
			name:      "table offset past EOF",
			image:     append(pastEOF.Encode(), valid.Bytes()[elf32.HeaderSize:]...),
			wantKind:  ErrTruncatedTable,
			wantOp:    OpReadTable,
			wantState: StateHeaderRead,
		},
		{
			name:      "table count past EOF",
			image:     append(tooMany.Encode(), valid.Bytes()[elf32.HeaderSize:]...),
			wantKind:  ErrTruncatedTable,
			wantOp:    OpReadTable,
			wantState: StateHeaderRead,
		},
		{
			name:      "no loadable segment",
			image:     noLoad.Bytes(),
			wantKind:  ErrNoLoadableSegment,
			wantOp:    OpSelect,
			wantState: StateTableRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := elf32testing.WriteBytes(t, "prog.elf", tt.image)
			mapper := newFakeMapper(tt.image)
			exec := &fakeExecutor{}

			res, err := newTestLoader(Options{}, mapper, exec).Load(context.Background(), path)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.wantOp, loadErr.Op)
			assert.Equal(t, path, loadErr.Path)
			assert.Equal(t, tt.wantState, res.State)
			assert.Empty(t, mapper.mapCalls, "no mapping may be attempted")
			assert.Zero(t, exec.called)
		})
	}
}

func TestLoad_OpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.elf")

	_, err := newTestLoader(Options{}, newFakeMapper(nil), &fakeExecutor{}).Load(context.Background(), path)

	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_SelectsFirstLoadableSegment(t *testing.T) {
	// The first PT_LOAD is smaller and sits behind a non-loadable entry;
	// the second one is larger. Table order alone decides.
	b := elf32testing.NewBuilder(elf32testing.ReturnConst(3)).
		Add(elf32testing.Segment{Type: elf.PT_INTERP}).
		AddLoad().
		Add(elf32testing.Segment{Type: elf.PT_LOAD, Offset: 0x1000, Vaddr: 0x10, Memsz: 0x10000})
	path := b.WriteFile(t)
	mapper := newFakeMapper(readImage(path))
	exec := &fakeExecutor{ret: 3}

	res, err := newTestLoader(Options{Strict: true}, mapper, exec).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SegmentIndex)
	assert.Equal(t, []int64{0}, mapper.mapCalls)
	assert.Equal(t, int(res.Segment.Memsz), mapper.lastLen)
	assert.Equal(t, b.CodeOffset(), exec.entryOffset)
}

func TestLoad_MappingError(t *testing.T) {
	path := elf32testing.NewBuilder(elf32testing.ReturnConst(1)).AddLoad().WriteFile(t)
	mapper := newFakeMapper(readImage(path))
	mapper.mapErr = os.ErrPermission
	exec := &fakeExecutor{}

	res, err := newTestLoader(Options{}, mapper, exec).Load(context.Background(), path)

	assert.ErrorIs(t, err, ErrMapping)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, StateSegmentSelected, res.State)
	assert.Zero(t, mapper.unmapped, "nothing was mapped")
	assert.Zero(t, exec.called)
}

func TestLoad_UnmapErrorIsReportedNotFatal(t *testing.T) {
	path := elf32testing.NewBuilder(elf32testing.ReturnConst(9)).AddLoad().WriteFile(t)
	mapper := newFakeMapper(readImage(path))
	mapper.unmapErr = errUnmapFailed

	res, err := newTestLoader(Options{}, mapper, &fakeExecutor{ret: 9}).Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, int32(9), res.ReturnValue)
	assert.ErrorIs(t, res.CleanupErr, ErrUnmap)
	assert.ErrorIs(t, res.CleanupErr, errUnmapFailed)
	assert.Equal(t, StateReturned, res.State)
}

func TestLoad_ExecutorErrorStillUnmaps(t *testing.T) {
	path := elf32testing.NewBuilder(elf32testing.ReturnConst(1)).AddLoad().WriteFile(t)
	mapper := newFakeMapper(readImage(path))
	exec := &fakeExecutor{err: ErrUnsupportedHost}

	res, err := newTestLoader(Options{}, mapper, exec).Load(context.Background(), path)

	assert.ErrorIs(t, err, ErrUnsupportedHost)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, OpCall, loadErr.Op)
	assert.Equal(t, StateExecuting, res.State)
	assert.Equal(t, 1, mapper.unmapped)
}

func TestLoad_StrictValidation(t *testing.T) {
	arm := elf32testing.NewBuilder(elf32testing.ReturnConst(1)).AddLoad()
	arm.Machine = elf.EM_ARM
	armImage := arm.Bytes()

	outside := elf32testing.NewBuilder(elf32testing.ReturnConst(1)).
		Add(elf32testing.Segment{Type: elf.PT_LOAD, Vaddr: 0x100, Memsz: 0x80})

	// Entry inside p_memsz but past the bytes the file provides.
	code := elf32testing.ReturnConst(1)
	short := elf32testing.NewBuilder(code).
		Add(elf32testing.Segment{Type: elf.PT_LOAD, Vaddr: 0x200, Memsz: 0x400})

	// "mov eax, imm32" cut after its first immediate byte.
	truncated := elf32testing.NewBuilder([]byte{0xb8, 0x01}).AddLoad()

	tests := []struct {
		name     string
		image    []byte
		wantKind error
		wantOp   string
	}{
		{name: "wrong machine", image: armImage, wantKind: ErrInvalidHeader, wantOp: OpValidate},
		{name: "entry past p_memsz", image: outside.Bytes(), wantKind: ErrEntryOutsideSegment, wantOp: OpSelect},
		{name: "entry past file data", image: short.Bytes(), wantKind: ErrUndecodableEntry, wantOp: OpInspect},
		{name: "truncated entry instruction", image: truncated.Bytes(), wantKind: ErrUndecodableEntry, wantOp: OpInspect},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/strict", func(t *testing.T) {
			path := elf32testing.WriteBytes(t, "prog.elf", tt.image)
			mapper := newFakeMapper(tt.image)
			exec := &fakeExecutor{}

			_, err := newTestLoader(Options{Strict: true}, mapper, exec).Load(context.Background(), path)

			assert.ErrorIs(t, err, tt.wantKind)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.wantOp, loadErr.Op)
			assert.Zero(t, exec.called)
			assert.Equal(t, len(mapper.mapCalls), mapper.unmapped)
		})

		t.Run(tt.name+"/permissive", func(t *testing.T) {
			path := elf32testing.WriteBytes(t, "prog.elf", tt.image)
			exec := &fakeExecutor{ret: 1}

			_, err := newTestLoader(Options{}, newFakeMapper(tt.image), exec).Load(context.Background(), path)

			require.NoError(t, err)
			assert.Equal(t, 1, exec.called)
		})
	}
}

func TestLoad_DryRun(t *testing.T) {
	b := elf32testing.NewBuilder(elf32testing.Fibonacci10).AddLoad()
	path := b.WriteFile(t)
	mapper := newFakeMapper(readImage(path))
	exec := &fakeExecutor{}

	res, err := newTestLoader(Options{Strict: true, DryRun: true, DisassembleCount: 3}, mapper, exec).
		Load(context.Background(), path)
	require.NoError(t, err)

	assert.Zero(t, exec.called)
	assert.Equal(t, 1, mapper.unmapped)
	assert.Equal(t, StateCleaned, res.State)
	require.Len(t, res.Instructions, 3)
	assert.Contains(t, res.Instructions[0], "xor eax, eax")
	assert.Contains(t, res.Instructions[1], "mov ecx, 0x1")
}

func TestLoad_CanceledContext(t *testing.T) {
	path := elf32testing.NewBuilder(elf32testing.ReturnConst(1)).AddLoad().WriteFile(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mapper := newFakeMapper(readImage(path))

	_, err := newTestLoader(Options{}, mapper, &fakeExecutor{}).Load(ctx, path)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, mapper.mapCalls)
}

func TestLoad_RunsAreIndependent(t *testing.T) {
	path := elf32testing.NewBuilder(elf32testing.ReturnConst(4)).AddLoad().WriteFile(t)
	mapper := newFakeMapper(readImage(path))
	exec := &fakeExecutor{ret: 4}
	l := newTestLoader(Options{}, mapper, exec)

	first, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	second, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, exec.called)
	assert.Equal(t, 2, mapper.unmapped)
}
