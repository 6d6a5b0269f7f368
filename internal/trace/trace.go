// Package trace converts a textual processor execution trace into a
// columnar, queryable table.
//
// Grounded on original_source/src/testcrush/grammars/transformers.py's
// TraceTransformerCV32E40P (decoded-instruction whitespace collapsing,
// optional register/memory cell defaulting to `""`) and stylistically on
// _examples/gmofishsauce-wut4/emul/trace.go's per-cycle tracer. The trace
// database itself is an in-memory columnar table rather than SQLite (no
// SQLite driver appears anywhere in the retrieval pack, and spec.md §4.5
// explicitly allows "an in-memory table with (column, row-index) access"
// as a substitute for a durable file).
package trace

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// cv32e40pLine matches one line of a CV32E40P-style trace:
// time cycle pc instr "decoded instruction" [reg/mem]. The reg/mem
// segment starts at the first whitespace-separated token containing '='
// or ':' (e.g. "x1=0x1"); everything before it is the decoded
// instruction, internal whitespace included.
var cv32e40pLine = regexp.MustCompile(
	`^\s*(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(.*?)(?:\s+(\S+[=:].*))?\s*$`)

// ParseCV32E40P converts a CV32E40P textual trace into header+rows
// matching spec.md §4.5: columns Time, Cycle, PC, Instr, Decoded
// instruction, Register and memory contents. Decoded-instruction internal
// whitespace is collapsed to a single space; an absent register/memory
// segment defaults to "".
func ParseCV32E40P(r *bufio.Scanner) (header []string, rows [][]string, err error) {
	header = []string{"Time", "Cycle", "PC", "Instr", "Decoded instruction", "Register and memory contents"}

	lineNo := 0
	for r.Scan() {
		lineNo++
		line := r.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := cv32e40pLine.FindStringSubmatch(line)
		if m == nil {
			return nil, nil, fmt.Errorf("trace: line %d: does not match CV32E40P trace grammar", lineNo)
		}
		decoded := strings.Join(strings.Fields(m[5]), " ")
		regMem := m[6]
		rows = append(rows, []string{m[1], m[2], m[3], m[4], decoded, regMem})
	}
	if err := r.Err(); err != nil {
		return nil, nil, err
	}
	return header, rows, nil
}

// DB is an in-memory columnar view of a trace, row identity being the
// 1-based arrival index.
type DB struct {
	columns []string
	colIdx  map[string]int
	rows    [][]string
}

// NewDB builds a DB from a header+rows pair as produced by ParseCV32E40P.
// If a DB already exists at the same conceptual location the caller is
// replacing, it is simply discarded and overwritten (spec.md §4.5).
func NewDB(header []string, rows [][]string) *DB {
	colIdx := make(map[string]int, len(header))
	for i, c := range header {
		colIdx[c] = i
	}
	return &DB{columns: header, colIdx: colIdx, rows: rows}
}

// ErrNoRow is returned by Query when no row matches the where-clause.
var ErrNoRow = fmt.Errorf("trace: no matching row")

// ErrAmbiguous is returned by Query when more than one row matches and
// allowMultiple is false.
var ErrAmbiguous = fmt.Errorf("trace: ambiguous match")

// Query implements spec.md §4.5's windowed query: locate every row whose
// columns equal where; for each match at row index r, return the values
// of selectCol at rows [r-history+1, r] in ascending order. history<=0
// defaults to 1 (just the matched row). With allowMultiple false, more
// than one match is ErrAmbiguous and exactly one window is returned;
// with allowMultiple true, one window per match is returned, in match
// order.
func (db *DB) Query(selectCol string, where map[string]string, history int, allowMultiple bool) ([][]string, error) {
	if history <= 0 {
		history = 1
	}
	selIdx, ok := db.colIdx[selectCol]
	if !ok {
		return nil, fmt.Errorf("trace: unknown select column %q", selectCol)
	}

	var matches []int // 0-based row indices
	for i, row := range db.rows {
		if rowMatches(row, db.colIdx, where) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNoRow
	}
	if len(matches) > 1 && !allowMultiple {
		return nil, ErrAmbiguous
	}

	var windows [][]string
	for _, r := range matches {
		start := r - history + 1
		if start < 0 {
			start = 0
		}
		var window []string
		for i := start; i <= r; i++ {
			window = append(window, db.rows[i][selIdx])
		}
		windows = append(windows, window)
	}
	return windows, nil
}

func rowMatches(row []string, colIdx map[string]int, where map[string]string) bool {
	for col, want := range where {
		idx, ok := colIdx[col]
		if !ok || row[idx] != want {
			return false
		}
	}
	return true
}

// NumRows returns the current row count.
func (db *DB) NumRows() int { return len(db.rows) }

// Columns returns the column names in order.
func (db *DB) Columns() []string { return db.columns }
