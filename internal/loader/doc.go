// Package loader maps the first loadable segment of a 32-bit ELF executable
// into executable memory and calls its entry point.
//
// A load is one linear pass through the states
//
//	Unopened → HeaderRead → TableRead → SegmentSelected → Mapped → Executing → Returned → Cleaned
//
// owned by a per-call context. Resources acquired along the way (the file
// descriptor and the mapping) are released by a deferred cleanup on every exit
// path, including errors.
//
// # Usage
//
//	l := loader.New(loader.Options{Strict: true}, slog.Default())
//	res, err := l.Load(ctx, "/path/to/prog")
//	fmt.Printf("User _start return value = %d\n", res.ReturnValue)
//
// # Limitations
//
//   - Only the first PT_LOAD segment is mapped; relocations, dynamic linking
//     and stack/argument setup are not performed.
//   - The segment is mapped at an address chosen by the kernel and the entry
//     is reached at base+p_vaddr, so the program must be position independent.
//   - Once the entry point is called nothing can interrupt it. If it never
//     returns, or exits the process itself, cleanup does not run.
package loader
