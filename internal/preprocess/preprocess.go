// Package preprocess combines the trace database, DWARF lookup, and
// fault report to prune compaction candidates down to the lines that lie
// within a fault-injection execution window.
//
// Grounded on original_source/src/testcrush/a1xx.py's Preprocessor class
// (_create_trace_db/query_trace_db/get_chunked_codelines/prune_candidates)
// and a0.py's PreprocessorA0 subclass, generalized per spec.md §4.5 to
// serve both A0 (flat candidate list) and A1xx (chunked candidate list)
// call sites from one implementation.
package preprocess

import (
	"fmt"

	"github.com/cad-polito-it/testcrush/internal/codeline"
	"github.com/cad-polito-it/testcrush/internal/dwarfline"
	"github.com/cad-polito-it/testcrush/internal/fault"
	"github.com/cad-polito-it/testcrush/internal/trace"
)

// AttrKeys names the simulator-side fault attributes that carry a trace
// timestamp and PC, and the trace DB column each maps to (spec.md §4.5
// step 1: "key names are configured").
type AttrKeys struct {
	TimeAttr   string
	PCAttr     string
	TimeColumn string
	PCColumn   string
}

// RelevantLine identifies one (asm-file, 0-based line) pair inside a
// fault-injection execution window.
type RelevantLine struct {
	AsmFile string
	Line    int
}

// Preprocessor builds once per golden run and prunes a handler's
// candidate set down to RelevantLines.
type Preprocessor struct {
	db       *trace.DB
	resolver *dwarfline.Resolver
	history  int
	keys     AttrKeys

	warnOnce map[string]bool
}

// New constructs a Preprocessor over an already-populated trace DB and
// DWARF resolver.
func New(db *trace.DB, resolver *dwarfline.Resolver, history int, keys AttrKeys) *Preprocessor {
	if history <= 0 {
		history = 5
	}
	return &Preprocessor{db: db, resolver: resolver, history: history, keys: keys, warnOnce: make(map[string]bool)}
}

// Run implements spec.md §4.5 "Preprocessor" steps 1-4: collect
// {time, pc} pairs from prime faults carrying the configured attributes,
// query the trace DB for each pair's PC window, resolve every PC via
// DWARF, and return the deduplicated set of relevant (file, line) pairs
// restricted to knownAsmFiles.
func (p *Preprocessor) Run(faults []*fault.Fault, knownAsmFiles map[string]bool) ([]RelevantLine, error) {
	seen := make(map[RelevantLine]bool)
	var out []RelevantLine

	for _, f := range faults {
		if !f.IsPrime() {
			continue
		}
		t, okT := f.GetAttribute(p.keys.TimeAttr)
		pc, okPC := f.GetAttribute(p.keys.PCAttr)
		if !okT || !okPC {
			continue
		}

		windows, err := p.db.Query(p.keys.PCColumn, map[string]string{p.keys.TimeColumn: t}, p.history, true)
		if err != nil {
			if err == trace.ErrNoRow {
				continue
			}
			return nil, fmt.Errorf("preprocess: querying trace db for time=%s: %w", t, err)
		}

		for _, window := range windows {
			for _, hexPC := range window {
				_ = pc // pc from the fault is informational; the window is keyed by time
				file, line, ok := p.resolver.Lookup(hexPC)
				if !ok {
					p.warnOnceFor("unresolved-pc:" + hexPC)
					continue
				}
				if !knownAsmFiles[file] {
					p.warnOnceFor("unknown-file:" + file)
					continue
				}
				rl := RelevantLine{AsmFile: file, Line: line - 1} // 1-based DWARF line -> 0-based Codeline
				if !seen[rl] {
					seen[rl] = true
					out = append(out, rl)
				}
			}
		}
	}
	return out, nil
}

func (p *Preprocessor) warnOnceFor(cause string) {
	p.warnOnce[cause] = true
}

// Warnings returns the distinct warning causes accumulated by Run, for
// the caller's logger to emit once per cause, per spec.md §7.
func (p *Preprocessor) Warnings() []string {
	out := make([]string, 0, len(p.warnOnce))
	for k := range p.warnOnce {
		out = append(out, k)
	}
	return out
}

// PruneFlat returns, from a flat candidate list, only the Codelines whose
// (asmFile, line) pair is in relevant — the A0 candidate shape.
func PruneFlat(asmFile string, candidates []codeline.Codeline, relevant []RelevantLine) []codeline.Codeline {
	want := relevantSet(asmFile, relevant)
	var out []codeline.Codeline
	for _, c := range candidates {
		if want[c.LineNo] {
			out = append(out, c)
		}
	}
	return out
}

// PruneChunked re-chunks a pruned candidate list into blocks of
// segmentDimension, the A1xx candidate shape, per spec.md §4.5 step 5.
func PruneChunked(asmFile string, candidates []codeline.Codeline, relevant []RelevantLine, segmentDimension int) [][]codeline.Codeline {
	flat := PruneFlat(asmFile, candidates, relevant)
	if segmentDimension < 1 {
		segmentDimension = 1
	}
	var chunks [][]codeline.Codeline
	for i := 0; i < len(flat); i += segmentDimension {
		end := i + segmentDimension
		if end > len(flat) {
			end = len(flat)
		}
		chunks = append(chunks, flat[i:end])
	}
	return chunks
}

func relevantSet(asmFile string, relevant []RelevantLine) map[int]bool {
	out := make(map[int]bool)
	for _, r := range relevant {
		if r.AsmFile == asmFile {
			out[r.Line] = true
		}
	}
	return out
}
