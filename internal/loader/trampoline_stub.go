//go:build !(linux && cgo && (386 || amd64))

package loader

type trampolineExecutor struct{}

func (trampolineExecutor) Call([]byte, uint32) (int32, error) {
	return 0, ErrUnsupportedHost
}
