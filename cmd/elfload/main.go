// Package main provides elfload, which maps the first loadable segment of a
// 32-bit ELF executable, calls its entry point and prints the returned value.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/isseis/go-elf-loader/internal/config"
	"github.com/isseis/go-elf-loader/internal/loader"
	"github.com/isseis/go-elf-loader/internal/logging"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// ErrUsage is reported when the positional argument is missing or repeated.
var ErrUsage = errors.New("exactly one ELF file path is required")

func main() {
	runID := logging.GenerateRunID()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, runID))
}

// flags holds the command line; only flags the user set override the config.
type flags struct {
	configPath string
	logLevel   string
	logDir     string
	permissive bool
	dryRun     bool
	disasm     int
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, []string, error) {
	f := &flags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("elfload", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: elfload [flags] <elf-file>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&f.configPath, "config", "", "path to TOML config file")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&f.logDir, "log-dir", "", "directory for the per-run JSON log")
	fs.BoolVar(&f.permissive, "permissive", false, "skip ELF header, entry bounds and entry decode checks")
	fs.BoolVar(&f.dryRun, "dry-run", false, "map and inspect the entry point without calling it")
	fs.IntVar(&f.disasm, "disasm", 0, "number of entry instructions to decode (0 disables)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, nil, ErrUsage
	}
	return f, fs.Args(), nil
}

func (f *flags) apply(cfg *config.Config) error {
	if f.set["log-level"] {
		if err := cfg.Log.Level.UnmarshalText([]byte(f.logLevel)); err != nil {
			return err
		}
	}
	if f.set["log-dir"] {
		cfg.Log.Dir = f.logDir
	}
	if f.set["permissive"] {
		cfg.Loader.Strict = !f.permissive
	}
	if f.set["disasm"] {
		cfg.Loader.Disassemble = f.disasm
	}
	return cfg.Validate()
}

func run(args []string, stdout, stderr io.Writer, runID string) int {
	f, paths, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		logging.HandleLoadFailure(stderr, nil, err, runID)
		return exitFailure
	}

	cfg, err := config.NewLoader().Load(f.configPath)
	if err == nil {
		err = f.apply(cfg)
	}
	if err != nil {
		logging.HandleLoadFailure(stderr, nil, fmt.Errorf("configuration: %w", err), runID)
		return exitFailure
	}

	level, _ := cfg.Log.Level.ToSlogLevel()
	logger, closeLog, err := logging.Setup(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		RunID:   runID,
		Console: stderr,
	})
	if err != nil {
		logging.HandleLoadFailure(stderr, nil, fmt.Errorf("logging: %w", err), runID)
		return exitFailure
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.LoaderOptions()
	opts.DryRun = f.dryRun
	res, err := loader.New(opts, logger).Load(ctx, paths[0])
	if err != nil {
		logging.HandleLoadFailure(stderr, logger, err, runID)
		return exitFailure
	}
	if res.CleanupErr != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", res.CleanupErr)
	}

	if f.dryRun {
		printPlan(stdout, res)
		return exitSuccess
	}
	if err := loader.WriteReport(stdout, res); err != nil {
		return exitFailure
	}
	return exitSuccess
}

func printPlan(w io.Writer, res loader.Result) {
	seg := res.Segment
	fmt.Fprintf(w, "Segment %d: %s offset=%#x vaddr=%#x memsz=%#x\n",
		res.SegmentIndex, seg.TypeName(), seg.Offset, seg.Vaddr, seg.Memsz)
	fmt.Fprintf(w, "Entry offset: %#x\n", res.EntryOffset)
	for _, inst := range res.Instructions {
		fmt.Fprintf(w, "  %s\n", inst)
	}
}
