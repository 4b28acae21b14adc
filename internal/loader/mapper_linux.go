//go:build linux

package loader

import "golang.org/x/sys/unix"

const segmentProt = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC

type mmapMapper struct{}

func (mmapMapper) Map(fd int, offset int64, length int) ([]byte, error) {
	return unix.Mmap(fd, offset, length, segmentProt, unix.MAP_PRIVATE)
}

func (mmapMapper) Unmap(segment []byte) error {
	return unix.Munmap(segment)
}
