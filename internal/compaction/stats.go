// Grounded on encoding/csv usage in
// _examples/ja7ad-consumption/cmd/consumption/main.go and
// original_source/src/testcrush/a0.py / a1xx.py's
// CSVCompactionStatistics. Per spec.md §9's Open Question resolution,
// this is a non-singleton, one-writer-per-run type, not a process-wide
// singleton like the Python original's metaclass version.
package compaction

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// StatRow is one completed iteration's statistics, per spec.md §3.
// BlockIndex is only meaningful (and only emitted) for A1xx.
type StatRow struct {
	AsmSource       string
	RemovedCodeline string // joined line numbers/text for the trial
	Compiles        bool
	LsimOK          bool
	LsimReason      string // populated when !LsimOK
	TAT             int    // valid iff LsimOK
	HasTAT          bool
	FsimOK          bool
	FsimReason      string // populated when !FsimOK
	Coverage        float64
	HasCoverage     bool
	Verdict         string // "Proceed" | "Restore"
	BlockIndex      int
	HasBlockIndex   bool
}

// StatsWriter appends one CSV row per completed iteration, flushing after
// every write for crash safety, per spec.md §5.
type StatsWriter struct {
	f            *os.File
	w            *csv.Writer
	includeBlock bool
}

// NewStatsWriter creates (truncating) the CSV file at path and writes its
// header row. includeBlock adds the A1xx-only block_index column.
func NewStatsWriter(path string, includeBlock bool) (*StatsWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("compaction: creating stats file %q: %w", path, err)
	}
	w := csv.NewWriter(f)

	header := []string{"asm_source", "removed_codeline", "compiles", "lsim_ok", "tat", "fsim_ok", "coverage", "verdict"}
	if includeBlock {
		header = append([]string{"block_index"}, header...)
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &StatsWriter{f: f, w: w, includeBlock: includeBlock}, nil
}

// Write emits one row and flushes immediately.
func (sw *StatsWriter) Write(row StatRow) error {
	compiles := "NO"
	if row.Compiles {
		compiles = "YES"
	}
	lsim := "NO"
	if !row.Compiles {
		lsim = ""
	} else if row.LsimOK {
		lsim = "YES"
	} else {
		lsim = "NO-" + row.LsimReason
	}
	tat := ""
	if row.HasTAT {
		tat = strconv.Itoa(row.TAT)
	}
	fsim := ""
	if row.Compiles && row.LsimOK {
		if row.FsimOK {
			fsim = "YES"
		} else {
			fsim = "NO-" + row.FsimReason
		}
	}
	cov := ""
	if row.HasCoverage {
		cov = strconv.FormatFloat(row.Coverage, 'f', -1, 64)
	}

	fields := []string{row.AsmSource, row.RemovedCodeline, compiles, lsim, tat, fsim, cov, row.Verdict}
	if sw.includeBlock {
		block := ""
		if row.HasBlockIndex {
			block = strconv.Itoa(row.BlockIndex)
		}
		fields = append([]string{block}, fields...)
	}

	if err := sw.w.Write(fields); err != nil {
		return err
	}
	sw.w.Flush()
	return sw.w.Error()
}

// Close flushes and closes the underlying file.
func (sw *StatsWriter) Close() error {
	sw.w.Flush()
	return sw.f.Close()
}
