package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/isseis/go-elf-loader/internal/loader"
)

// HandleLoadFailure writes the diagnostic block for err to w and logs it.
// The first line names the operation that failed.
func HandleLoadFailure(w io.Writer, logger *slog.Logger, err error, runID string) {
	op := "elfload"
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		op = loadErr.Op
	}

	// Build the block in one piece so it is written with a single call.
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s failed\n", op)
	fmt.Fprintf(&b, "  Details: %v\n", err)
	if runID != "" {
		fmt.Fprintf(&b, "  Run ID: %s\n", runID)
	}
	fmt.Fprint(w, b.String())

	if logger != nil {
		logger.Error("Load failed",
			slog.String("operation", op),
			slog.Any("error", err))
	}
}
