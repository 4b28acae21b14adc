package safefileio

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// isNoFollowError reports whether err is what O_NOFOLLOW yields on a symlink.
func isNoFollowError(err error) bool {
	var e *os.PathError
	if !errors.As(err, &e) {
		return false
	}
	return errors.Is(e.Err, unix.ELOOP) || errors.Is(e.Err, unix.EMLINK)
}
