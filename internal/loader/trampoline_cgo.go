//go:build linux && cgo && (386 || amd64)

package loader

/*
#include <stdint.h>

typedef int (*elfload_entry_fn)(void);

static int elfload_call(uintptr_t addr) {
	return ((elfload_entry_fn)addr)();
}
*/
import "C"

import "unsafe"

type trampolineExecutor struct{}

// Call is the trust boundary of the loader. The target address comes straight
// from the file (base + p_vaddr); nothing here checks that it lies inside the
// segment or that it holds valid instructions. The call runs on the cgo stack
// of the current thread and blocks until the loaded code returns.
func (trampolineExecutor) Call(segment []byte, entryOffset uint32) (int32, error) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(segment)))
	ret := C.elfload_call(C.uintptr_t(base + uintptr(entryOffset)))
	return int32(ret), nil
}
