//go:build !linux

package loader

type mmapMapper struct{}

func (mmapMapper) Map(int, int64, int) ([]byte, error) {
	return nil, ErrUnsupportedHost
}

func (mmapMapper) Unmap([]byte) error {
	return nil
}
