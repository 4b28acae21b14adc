//go:build test

package loader

import (
	"errors"
	"os"
	"sync"
)

var errUnmapFailed = errors.New("munmap failed")

// fakeMapper serves mappings from an in-memory copy of the image.
type fakeMapper struct {
	mu       sync.Mutex
	image    []byte
	mapErr   error
	unmapErr error
	mapCalls []int64
	unmapped int
	lastLen  int
}

func newFakeMapper(image []byte) *fakeMapper {
	return &fakeMapper{image: image}
}

func (m *fakeMapper) Map(_ int, offset int64, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mapCalls = append(m.mapCalls, offset)
	m.lastLen = length
	if m.mapErr != nil {
		return nil, m.mapErr
	}
	seg := make([]byte, length)
	if offset < int64(len(m.image)) {
		copy(seg, m.image[offset:])
	}
	return seg, nil
}

func (m *fakeMapper) Unmap([]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmapped++
	return m.unmapErr
}

// fakeExecutor records the call instead of running code.
type fakeExecutor struct {
	ret         int32
	err         error
	called      int
	entryOffset uint32
	segmentLen  int
}

func (e *fakeExecutor) Call(segment []byte, entryOffset uint32) (int32, error) {
	e.called++
	e.entryOffset = entryOffset
	e.segmentLen = len(segment)
	return e.ret, e.err
}

func readImage(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	return b
}
