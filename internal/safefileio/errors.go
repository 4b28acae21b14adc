// Package safefileio provides file opening helpers that refuse symlinks on
// request and verify the opened descriptor refers to a regular file.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the specified path is a symbolic link, which is not allowed.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrNotRegularFile indicates the descriptor refers to a directory, device, FIFO or socket.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrFileTooLarge indicates that the file is too large.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileExists indicates that the file already exists.
	ErrFileExists = errors.New("file exists")
)
