package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isseis/go-elf-loader/internal/loader"
)

func TestHandleLoadFailure(t *testing.T) {
	var stderr, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	err := &loader.LoadError{Op: loader.OpMap, Path: "/tmp/prog", Kind: loader.ErrMapping, Err: os.ErrPermission}

	HandleLoadFailure(&stderr, logger, err, "01RUN")

	assert.Equal(t,
		"Error: mmap failed\n"+
			"  Details: mmap /tmp/prog: cannot map segment: permission denied\n"+
			"  Run ID: 01RUN\n",
		stderr.String())
	assert.Contains(t, logs.String(), "operation=mmap")
}

func TestHandleLoadFailure_OtherError(t *testing.T) {
	var stderr bytes.Buffer

	HandleLoadFailure(&stderr, nil, errors.New("usage"), "")

	assert.Equal(t, "Error: elfload failed\n  Details: usage\n", stderr.String())
}
