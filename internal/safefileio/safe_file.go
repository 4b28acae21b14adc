package safefileio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MaxFileSize is the largest file OpenExecutable accepts (4 GiB, the limit of 32-bit ELF offsets).
const MaxFileSize = 1 << 32

// FileSystem abstracts the open operations used by the loader and the log writer.
type FileSystem interface {
	// SafeOpenFile opens name with flag and perm and verifies the result is a regular file.
	SafeOpenFile(name string, flag int, perm os.FileMode) (*os.File, error)

	// OpenExecutable opens path read-only for loading and returns its file info.
	OpenExecutable(path string) (*os.File, os.FileInfo, error)
}

// FileSystemConfig controls the behaviour of the default FileSystem.
type FileSystemConfig struct {
	// RejectSymlinks opens with O_NOFOLLOW so a symlink as the final path component fails.
	RejectSymlinks bool
}

type osFS struct {
	rejectSymlinks bool
}

// NewFileSystem returns the os-backed FileSystem.
func NewFileSystem(cfg FileSystemConfig) FileSystem {
	return &osFS{rejectSymlinks: cfg.RejectSymlinks}
}

// SafeOpenFile implements FileSystem.
func (fs *osFS) SafeOpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	absPath, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	// O_NONBLOCK keeps the open from waiting on a FIFO writer; it is cleared
	// again once the descriptor is known to be a regular file.
	keepNonblock := flag&unix.O_NONBLOCK != 0
	flag |= unix.O_CLOEXEC | unix.O_NONBLOCK
	if fs.rejectSymlinks {
		flag |= unix.O_NOFOLLOW
	}

	// #nosec G304 - the descriptor is validated with fstat below
	file, err := os.OpenFile(absPath, flag, perm)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrExist):
			return nil, ErrFileExists
		case fs.rejectSymlinks && isNoFollowError(err):
			return nil, fmt.Errorf("%w: %s", ErrIsSymlink, absPath)
		default:
			return nil, err
		}
	}

	if _, err := validateFile(file, absPath); err != nil {
		closeQuietly(file)
		return nil, err
	}
	if !keepNonblock {
		if err := clearNonblock(file); err != nil {
			closeQuietly(file)
			return nil, err
		}
	}
	return file, nil
}

func clearNonblock(file *os.File) error {
	rc, err := file.SyscallConn()
	if err != nil {
		return fmt.Errorf("failed to access descriptor: %w", err)
	}
	var setErr error
	if err := rc.Control(func(fd uintptr) {
		setErr = unix.SetNonblock(int(fd), false)
	}); err != nil {
		return fmt.Errorf("failed to access descriptor: %w", err)
	}
	if setErr != nil {
		return fmt.Errorf("failed to clear O_NONBLOCK: %w", setErr)
	}
	return nil
}

// OpenExecutable implements FileSystem.
func (fs *osFS) OpenExecutable(path string) (*os.File, os.FileInfo, error) {
	file, err := fs.SafeOpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		closeQuietly(file)
		return nil, nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.Size() > MaxFileSize {
		closeQuietly(file)
		return nil, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), int64(MaxFileSize))
	}
	return file, info, nil
}

// validateFile checks if the file is a regular file and returns its FileInfo.
// The check uses the descriptor, not the path, so it cannot race with a rename.
func validateFile(file *os.File, filePath string) (os.FileInfo, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotRegularFile, filePath, fileInfo.Mode().Type())
	}

	return fileInfo, nil
}

func closeQuietly(file *os.File) {
	if err := file.Close(); err != nil {
		slog.Warn("error closing file", slog.String("path", file.Name()), slog.Any("error", err))
	}
}
