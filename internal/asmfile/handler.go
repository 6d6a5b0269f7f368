// Package asmfile implements an in-place, undo-capable editor of one
// assembly source file, maintaining a line-number-accurate index of
// removal candidates across arbitrary remove/restore sequences.
//
// Grounded on original_source/src/testcrush/asm.py's AssemblyHandler
// class (chunked candidates, changelog stack, atomic rewrite-then-rename),
// with the atomic rewrite performed via github.com/google/renameio/v2
// instead of the original's tempfile+shutil.move dance — renameio is
// already present in the retrieval pack
// (_examples/joeycumines-go-utilpkg/go.mod) and is purpose-built for this
// write-temp-then-rename pattern.
package asmfile

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/cad-polito-it/testcrush/internal/codeline"
	"github.com/cad-polito-it/testcrush/internal/isa"
)

// ErrNotFound is returned by GetCandidate when no candidate exists at the
// requested line.
var ErrNotFound = fmt.Errorf("asmfile: candidate not found")

// Handler owns exactly one assembly source file: its candidate index
// (instruction-bearing Codelines, partitioned into fixed-size chunks) and
// an undo stack of previously removed Codelines.
type Handler struct {
	sourcePath string
	isa        *isa.ISA
	chunkSize  int

	candidates [][]codeline.Codeline // chunks, in file order
	changelog  []removal             // removal order; last removed on top

	rng *rand.Rand
}

// removal is one changelog entry: the removed Codeline plus enough of its
// original chunk placement (which chunk, and whether removing it emptied
// that chunk) for Restore to put it back exactly where it came from,
// rather than always appending to the last chunk.
type removal struct {
	c       codeline.Codeline
	chunk   int // index into candidates at the moment of removal, or -1 if unknown
	emptied bool
}

// Option configures a Handler at construction time.
type Option func(*Handler)

// WithRand overrides the PRNG used by GetRandomCandidate, for
// reproducible runs under a driver-wide seed (spec.md §4.6.5).
func WithRand(r *rand.Rand) Option {
	return func(h *Handler) { h.rng = r }
}

// Open constructs a Handler from the assembly source at path, reading it
// line by line (0-based), normalizing whitespace per codeline.New, and
// classifying each line against i. Only instruction-bearing lines become
// candidates; they are partitioned, in file order, into chunks of
// chunkSize codelines (the last chunk may be short). A missing file is
// fatal, matching spec.md §4.2.
func Open(path string, i *isa.ISA, chunkSize int, opts ...Option) (*Handler, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("asmfile: chunkSize must be >= 1, got %d", chunkSize)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("asmfile: resolving %q: %w", path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("asmfile: opening %q: %w", abs, err)
	}
	defer f.Close()

	var flat []codeline.Codeline
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" {
			lineNo++
			continue
		}
		cl := codeline.New(lineNo, raw, i.IsInstruction(raw))
		if cl.IsInstruction {
			flat = append(flat, cl)
		}
		lineNo++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("asmfile: reading %q: %w", abs, err)
	}

	h := &Handler{
		sourcePath: abs,
		isa:        i,
		chunkSize:  chunkSize,
		candidates: chunk(flat, chunkSize),
		rng:        rand.New(rand.NewSource(1)),
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

func chunk(flat []codeline.Codeline, size int) [][]codeline.Codeline {
	if len(flat) == 0 {
		return nil
	}
	var chunks [][]codeline.Codeline
	for i := 0; i < len(flat); i += size {
		end := i + size
		if end > len(flat) {
			end = len(flat)
		}
		c := make([]codeline.Codeline, end-i)
		copy(c, flat[i:end])
		chunks = append(chunks, c)
	}
	return chunks
}

// GetAsmSource returns the absolute path of the owned source file.
func (h *Handler) GetAsmSource() string { return h.sourcePath }

// GetCode returns a flat, file-ordered view of every surviving candidate,
// iterating chunks in order.
func (h *Handler) GetCode() []codeline.Codeline {
	var out []codeline.Codeline
	for _, c := range h.candidates {
		out = append(out, c...)
	}
	return out
}

// NumChunks returns the current number of non-empty chunks.
func (h *Handler) NumChunks() int { return len(h.candidates) }

// Chunks returns the current chunk partition. Callers must not mutate the
// returned slices in place; treat as read-only.
func (h *Handler) Chunks() [][]codeline.Codeline { return h.candidates }

// GetCandidate returns the candidate at the given line number via linear
// search, or ErrNotFound.
func (h *Handler) GetCandidate(lineNo int) (codeline.Codeline, error) {
	for _, chunk := range h.candidates {
		for _, c := range chunk {
			if c.LineNo == lineNo {
				return c, nil
			}
		}
	}
	return codeline.Codeline{}, ErrNotFound
}

// GetRandomCandidate uniformly samples a chunk, then uniformly samples a
// codeline within that chunk (spec.md P5: uniform chunk-then-codeline,
// never uniform over the flattened candidate list). If pop is true, the
// chosen codeline is removed from its chunk in memory (the chunk itself
// is dropped if it becomes empty); the caller is still responsible for
// calling Remove to apply the change to the on-disk file and changelog.
func (h *Handler) GetRandomCandidate(pop bool) (codeline.Codeline, error) {
	if len(h.candidates) == 0 {
		return codeline.Codeline{}, ErrNotFound
	}
	ci := h.rng.Intn(len(h.candidates))
	chunk := h.candidates[ci]
	if len(chunk) == 0 {
		return codeline.Codeline{}, ErrNotFound
	}
	li := h.rng.Intn(len(chunk))
	c := chunk[li]

	if pop {
		chunk = append(chunk[:li], chunk[li+1:]...)
		if len(chunk) == 0 {
			h.candidates = append(h.candidates[:ci], h.candidates[ci+1:]...)
		} else {
			h.candidates[ci] = chunk
		}
	}
	return c, nil
}

// Remove rewrites the source file to drop the line at c.LineNo, shifts
// every surviving candidate with a greater line number down by one,
// drops c from whatever chunk still holds it (GetRandomCandidate(pop=true)
// already did so; a caller that obtained c via GetCandidate has not), and
// pushes c onto the changelog together with the chunk it was removed
// from, so Restore can put it back in that same chunk and position
// rather than always at the end of the candidate list.
func (h *Handler) Remove(c codeline.Codeline) error {
	lines, err := readAllLines(h.sourcePath)
	if err != nil {
		return fmt.Errorf("asmfile: remove: %w", err)
	}
	if c.LineNo < 0 || c.LineNo >= len(lines) {
		return fmt.Errorf("asmfile: remove: line %d out of range (file has %d lines)", c.LineNo, len(lines))
	}

	out := make([]string, 0, len(lines)-1)
	out = append(out, lines[:c.LineNo]...)
	out = append(out, lines[c.LineNo+1:]...)

	if err := writeAllLines(h.sourcePath, out); err != nil {
		return fmt.Errorf("asmfile: remove: %w", err)
	}

	ownerChunk := -1
	emptied := false
	for ci, chunk := range h.candidates {
		matched := false
		kept := chunk[:0]
		for _, cl := range chunk {
			// Match against cl's pre-shift LineNo so a codeline shifted
			// onto c's old line number later in this same pass can never
			// be mistaken for the one actually being removed.
			if !matched && cl.LineNo == c.LineNo && cl.Data == c.Data {
				matched = true
				ownerChunk = ci
				continue
			}
			if cl.LineNo > c.LineNo {
				cl.Shift(-1)
			}
			kept = append(kept, cl)
		}
		h.candidates[ci] = kept
		if matched {
			emptied = len(kept) == 0
		}
	}
	if emptied {
		h.candidates = append(h.candidates[:ownerChunk], h.candidates[ownerChunk+1:]...)
	}

	h.changelog = append(h.changelog, removal{c: c, chunk: ownerChunk, emptied: emptied})
	return nil
}

// insertSorted inserts c into chunk at the position its LineNo dictates,
// keeping the chunk ordered by line number.
func insertSorted(chunk []codeline.Codeline, c codeline.Codeline) []codeline.Codeline {
	i := 0
	for i < len(chunk) && chunk[i].LineNo < c.LineNo {
		i++
	}
	out := make([]codeline.Codeline, 0, len(chunk)+1)
	out = append(out, chunk[:i]...)
	out = append(out, c)
	out = append(out, chunk[i:]...)
	return out
}

// insertChunkAt splices newChunk into chunks at idx, shifting any chunk
// already at idx (and beyond) one position later.
func insertChunkAt(chunks [][]codeline.Codeline, idx int, newChunk []codeline.Codeline) [][]codeline.Codeline {
	if idx >= len(chunks) {
		return append(chunks, newChunk)
	}
	chunks = append(chunks, nil)
	copy(chunks[idx+1:], chunks[idx:])
	chunks[idx] = newChunk
	return chunks
}

// Restore pops the most recently removed Codeline off the changelog and
// re-inserts it: every surviving candidate at or after its recorded line
// number is shifted up by one, the source file regains the line, and the
// restored Codeline is put back into the exact chunk (and, within it, the
// sorted position) Remove took it from — recreating that chunk if Remove
// had emptied and dropped it. A restore with an empty changelog is a
// silent no-op, per spec.md §4.2.
func (h *Handler) Restore() error {
	if len(h.changelog) == 0 {
		return nil
	}
	r := h.changelog[len(h.changelog)-1]
	h.changelog = h.changelog[:len(h.changelog)-1]
	c := r.c

	for ci, chunk := range h.candidates {
		for i := range chunk {
			if chunk[i].LineNo >= c.LineNo {
				chunk[i].Shift(1)
			}
		}
		h.candidates[ci] = chunk
	}

	lines, err := readAllLines(h.sourcePath)
	if err != nil {
		return fmt.Errorf("asmfile: restore: %w", err)
	}
	out := make([]string, 0, len(lines)+1)
	if c.LineNo >= len(lines) {
		out = append(out, lines...)
		out = append(out, c.Data)
	} else {
		out = append(out, lines[:c.LineNo]...)
		out = append(out, c.Data)
		out = append(out, lines[c.LineNo:]...)
	}
	if err := writeAllLines(h.sourcePath, out); err != nil {
		return fmt.Errorf("asmfile: restore: %w", err)
	}

	h.reinsert(r)
	return nil
}

// reinsert puts r's Codeline back where Remove found it: into its
// original chunk index if that chunk survived, or as a freshly recreated
// one-element chunk at that index if Remove's removal emptied it out. If
// the owning chunk is unknown (c was already detached from candidates
// before Remove was called, e.g. via GetRandomCandidate(pop=true)), it
// falls back to appending a new chunk at the end.
func (h *Handler) reinsert(r removal) {
	switch {
	case r.chunk < 0:
		h.candidates = append(h.candidates, []codeline.Codeline{r.c})
	case r.emptied:
		h.candidates = insertChunkAt(h.candidates, r.chunk, []codeline.Codeline{r.c})
	case r.chunk < len(h.candidates):
		h.candidates[r.chunk] = insertSorted(h.candidates[r.chunk], r.c)
	default:
		h.candidates = append(h.candidates, []codeline.Codeline{r.c})
	}
}

// Save copies the current source to a sibling file whose stem encodes the
// sequence of line numbers recorded in the changelog (oldest first),
// joined with '-'. Past 80 characters the encoded stem is replaced with a
// short FNV hash, per spec.md §9's allowance. A changelog-empty handler
// has nothing to save and Save is a no-op.
func (h *Handler) Save() (string, error) {
	if len(h.changelog) == 0 {
		return "", nil
	}

	parts := make([]string, len(h.changelog))
	for i, r := range h.changelog {
		parts[i] = strconv.Itoa(r.c.LineNo)
	}
	stem := strings.Join(parts, "-")
	if len(stem) > 80 {
		sum := fnv.New64a()
		_, _ = sum.Write([]byte(stem))
		stem = fmt.Sprintf("h%x", sum.Sum64())
	}

	dir := filepath.Dir(h.sourcePath)
	ext := filepath.Ext(h.sourcePath)
	base := strings.TrimSuffix(filepath.Base(h.sourcePath), ext)
	dest := filepath.Join(dir, fmt.Sprintf("%s-%s%s", base, stem, ext))

	data, err := os.ReadFile(h.sourcePath)
	if err != nil {
		return "", fmt.Errorf("asmfile: save: %w", err)
	}
	if err := renameio.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("asmfile: save: %w", err)
	}
	return dest, nil
}

func readAllLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func writeAllLines(path string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return renameio.WriteFile(path, []byte(b.String()), 0o644)
}
