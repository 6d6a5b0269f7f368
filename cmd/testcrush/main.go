// Command testcrush drives an assembly test-program compaction run: it
// loads a TOML configuration, opens the configured assembly sources, and
// runs either the A0 (single-instruction random) or A1xx (block-wise
// B/F/R) compaction driver against them.
//
// Grounded on _examples/gmofishsauce-wut4/lang/ya/main.go's flag-based
// driver shape (flag.Usage, stderr-prefixed error reporting, os.Exit(1)
// on failure) and _examples/gmofishsauce-wut4/emul/main.go's counted
// verbosity flag idiom.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	_ "go.uber.org/automaxprocs"

	"github.com/cad-polito-it/testcrush/internal/archive"
	"github.com/cad-polito-it/testcrush/internal/asmfile"
	"github.com/cad-polito-it/testcrush/internal/compaction"
	"github.com/cad-polito-it/testcrush/internal/config"
	"github.com/cad-polito-it/testcrush/internal/isa"
	"github.com/cad-polito-it/testcrush/internal/tclog"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		mode       string
		configPath string
		verbosity  int
		logFile    string
	)

	fs := flag.NewFlagSet("testcrush", flag.ContinueOnError)
	fs.StringVar(&mode, "m", "a0", "compaction mode: a0 or a1xx")
	fs.StringVar(&mode, "compaction_mode", "a0", "compaction mode: a0 or a1xx")
	fs.StringVar(&configPath, "c", "", "path to the TOML configuration file")
	fs.StringVar(&configPath, "configuration", "", "path to the TOML configuration file")
	fs.StringVar(&logFile, "l", "", "path to an additional indented log file")
	fs.StringVar(&logFile, "logfile", "", "path to an additional indented log file")
	fs.Func("v", "increase log verbosity (repeatable)", func(string) error { verbosity++; return nil })
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: testcrush -c <config.toml> [-m a0|a1xx] [-v] [-l logfile]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	if _, err := memlimit.SetGoMemLimitWithOpts(memlimit.WithRatio(0.9)); err != nil {
		fmt.Fprintf(os.Stderr, "testcrush: automemlimit: %v\n", err)
	}

	logger, closeLog, err := tclog.New(verbosity, logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "testcrush: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	if configPath == "" {
		fs.Usage()
		return 1
	}

	if err := mainRun(context.Background(), mode, configPath, logger); err != nil {
		logger.Error("run failed", "error", err)
		var cfgErr *config.ConfigError
		var toolErr *compaction.ToolingError
		if errors.As(err, &cfgErr) || errors.As(err, &toolErr) {
			return 1
		}
		return 1
	}
	return 0
}

func mainRun(ctx context.Context, mode, configPath string, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*compaction.InvariantError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := settings.ValidatePolicies(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	set, err := isa.Load(settings.ISA.ISAFile)
	if err != nil {
		return fmt.Errorf("loading ISA %q: %w", settings.ISA.ISAFile, err)
	}

	// spec.md §4.2: A0 always partitions into chunks of 1 (single-instruction
	// candidates); only A1xx uses the configured segment dimension.
	chunkSize := 1
	if mode == "a1xx" {
		chunkSize = settings.A1xx.SegmentDimension
		if chunkSize < 1 {
			chunkSize = 1
		}
	}

	handlers := make(map[string]*asmfile.Handler, len(settings.AssemblySources.Sources))
	rng := rand.New(rand.NewSource(1))
	for _, src := range settings.AssemblySources.Sources {
		h, err := asmfile.Open(src, set, chunkSize, asmfile.WithRand(rng))
		if err != nil {
			return fmt.Errorf("opening assembly source %q: %w", src, err)
		}
		handlers[filepath.Base(src)] = h
	}

	backupDir := filepath.Dir(configPath)
	var sources []string
	for _, h := range handlers {
		sources = append(sources, h.GetAsmSource())
	}
	if _, err := archive.Zip(backupDir, fmt.Sprintf("backup_%d", time.Now().Unix()), sources); err != nil {
		logger.Warn("backup archive failed", "error", err)
	}

	statsPath := filepath.Join(backupDir, fmt.Sprintf("%s_stats.csv", mode))

	switch mode {
	case "a0":
		stats, err := compaction.NewStatsWriter(statsPath, false)
		if err != nil {
			return fmt.Errorf("opening stats writer: %w", err)
		}
		driver := compaction.NewA0Driver(settings, handlers, stats, rng)
		runErr := driver.Run(ctx)
		if postErr := driver.PostRun(); postErr != nil && runErr == nil {
			runErr = postErr
		}
		return runErr
	case "a1xx":
		stats, err := compaction.NewStatsWriter(statsPath, true)
		if err != nil {
			return fmt.Errorf("opening stats writer: %w", err)
		}
		driver := compaction.NewA1xxDriver(settings, handlers, stats, rng)
		runErr := driver.Run(ctx)
		if postErr := driver.PostRun(); postErr != nil && runErr == nil {
			runErr = postErr
		}
		return runErr
	default:
		return fmt.Errorf("unknown compaction mode %q (want a0 or a1xx)", mode)
	}
}
