package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/isseis/go-elf-loader/internal/safefileio"
	"github.com/isseis/go-elf-loader/internal/terminal"
)

const (
	logFilePerm = 0o600
	logDirPerm  = 0o750
)

// ErrEmptyLogDirectory is returned by ValidateLogDir for an empty path.
var ErrEmptyLogDirectory = errors.New("log directory is empty")

// Config holds everything Setup needs.
type Config struct {
	Level  slog.Level
	LogDir string
	RunID  string

	// Console receives human-facing log output. Defaults to os.Stderr.
	Console io.Writer

	// Detector decides between text and JSON console output. Defaults to
	// a terminal.InteractiveDetector on stderr.
	Detector terminal.InteractiveDetector

	// Now is used for the log file timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Setup builds the run's logger. The returned close function flushes and
// closes the per-run log file, if one was opened; it is never nil.
func Setup(cfg Config) (*slog.Logger, func() error, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	detector := cfg.Detector
	if detector == nil {
		detector = terminal.NewInteractiveDetector(terminal.DetectorOptions{})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var consoleHandler slog.Handler
	if detector.IsInteractive() {
		consoleHandler = slog.NewTextHandler(console, opts)
	} else {
		consoleHandler = slog.NewJSONHandler(console, opts)
	}

	closeFn := func() error { return nil }
	var fileHandler slog.Handler
	if cfg.LogDir != "" {
		f, err := openRunLog(cfg.LogDir, cfg.RunID, now())
		if err != nil {
			return nil, closeFn, err
		}
		fileHandler = slog.NewJSONHandler(f, opts).WithAttrs([]slog.Attr{
			slog.String("hostname", hostname()),
			slog.Int("pid", os.Getpid()),
		})
		closeFn = f.Close
	}

	logger := slog.New(NewMultiHandler(consoleHandler, fileHandler)).
		With(slog.String("run_id", cfg.RunID))
	return logger, closeFn, nil
}

func openRunLog(dir, runID string, ts time.Time) (*os.File, error) {
	if err := ValidateLogDir(dir); err != nil {
		return nil, fmt.Errorf("invalid log directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.json", hostname(), ts.UTC().Format("20060102T150405Z"), runID)
	fs := safefileio.NewFileSystem(safefileio.FileSystemConfig{RejectSymlinks: true})
	f, err := fs.SafeOpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, logFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// ValidateLogDir creates dir if needed and checks that it is a directory.
func ValidateLogDir(dir string) error {
	if dir == "" {
		return ErrEmptyLogDirectory
	}
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return fmt.Errorf("cannot create log directory %s: %w", dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat log directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", dir)
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
