package asmfile

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/cad-polito-it/testcrush/internal/isa"
)

func writeISA(t *testing.T) *isa.ISA {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "isa.txt")
	if err := os.WriteFile(p, []byte("addi\nnop\nsub\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	i, err := isa.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	return i
}

func writeAsm(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "test.asm")
	contents := "section .text\naddi x1,x1,1\nnop\nsub x2,x2,x2\n"
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOpenPartitionsChunksOfOne(t *testing.T) {
	i := writeISA(t)
	path := writeAsm(t)
	h, err := Open(path, i, 1)
	if err != nil {
		t.Fatal(err)
	}
	if h.NumChunks() != 3 {
		t.Fatalf("expected 3 chunks, got %d", h.NumChunks())
	}
	code := h.GetCode()
	if len(code) != 3 || code[0].LineNo != 1 || code[1].LineNo != 2 || code[2].LineNo != 3 {
		t.Fatalf("unexpected candidates: %+v", code)
	}
}

func TestRemoveShiftsLineNumbers(t *testing.T) {
	i := writeISA(t)
	path := writeAsm(t)
	h, err := Open(path, i, 1)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := h.GetCandidate(2) // "nop"
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Remove(l2); err != nil {
		t.Fatal(err)
	}

	code := h.GetCode()
	if len(code) != 2 {
		t.Fatalf("expected 2 candidates after remove, got %d", len(code))
	}
	if code[0].LineNo != 1 || code[1].LineNo != 2 {
		t.Fatalf("expected shifted line numbers [1,2], got %+v", code)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "section .text\naddi x1,x1,1\nsub x2,x2,x2\n"
	if string(data) != want {
		t.Fatalf("got file:\n%s\nwant:\n%s", data, want)
	}
}

func TestRemoveThenRestoreIsIdentity(t *testing.T) {
	i := writeISA(t)
	path := writeAsm(t)
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	h, err := Open(path, i, 1)
	if err != nil {
		t.Fatal(err)
	}
	before := h.GetCode()

	l2, _ := h.GetCandidate(2)
	if err := h.Remove(l2); err != nil {
		t.Fatal(err)
	}
	if err := h.Restore(); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(original) {
		t.Fatalf("restore did not reproduce original file:\n%s", after)
	}

	afterCode := h.GetCode()
	if len(afterCode) != len(before) {
		t.Fatalf("candidate count mismatch: before=%d after=%d", len(before), len(afterCode))
	}
	for i := range before {
		if afterCode[i] != before[i] {
			t.Fatalf("candidates out of order/shape after remove+restore: before=%+v after=%+v", before, afterCode)
		}
	}
	if h.NumChunks() != 3 {
		t.Fatalf("expected chunk partition restored to 3 chunks, got %d", h.NumChunks())
	}
}

// TestRemoveThenRestoreMiddleChunkPreservesChunkShape exercises the exact
// scenario from spec.md's worked example (S2): removing the sole member
// of a middle chunksize=1 chunk drops that chunk; restoring must recreate
// it in place rather than merging the restored codeline into whatever
// chunk happens to be last.
func TestRemoveThenRestoreMiddleChunkPreservesChunkShape(t *testing.T) {
	i := writeISA(t)
	path := writeAsm(t)
	h, err := Open(path, i, 1)
	if err != nil {
		t.Fatal(err)
	}

	l2, _ := h.GetCandidate(2) // "nop"
	if err := h.Remove(l2); err != nil {
		t.Fatal(err)
	}
	if got := h.NumChunks(); got != 2 {
		t.Fatalf("expected 2 chunks after removing the middle candidate, got %d", got)
	}

	if err := h.Restore(); err != nil {
		t.Fatal(err)
	}
	if got := h.NumChunks(); got != 3 {
		t.Fatalf("expected 3 chunks after restore, got %d", got)
	}
	code := h.GetCode()
	if len(code) != 3 || code[0].LineNo != 1 || code[1].LineNo != 2 || code[2].LineNo != 3 {
		t.Fatalf("expected candidates back in line-number order [1,2,3], got %+v", code)
	}
}

func TestRestoreOnEmptyChangelogIsNoop(t *testing.T) {
	i := writeISA(t)
	path := writeAsm(t)
	h, err := Open(path, i, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Restore(); err != nil {
		t.Fatalf("expected no-op, got error: %v", err)
	}
}

func TestGetCandidateNotFound(t *testing.T) {
	i := writeISA(t)
	path := writeAsm(t)
	h, err := Open(path, i, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.GetCandidate(99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestGetRandomCandidateSamplesChunkThenCodeline is a bucketed-frequency
// smoke test for spec.md P5: GetRandomCandidate must sample a chunk
// uniformly and then a codeline within that chunk uniformly, never a
// codeline uniformly over the flattened candidate list. A 1-chunk-of-3 vs.
// 1-chunk-of-1 layout tells the two models apart: chunk-then-codeline
// sampling puts the lone singleton candidate at ~1/2 of draws, while
// flat-over-candidates sampling would put every one of the 4 candidates at
// ~1/4. The test asserts against the former and would fail under the
// latter.
func TestGetRandomCandidateSamplesChunkThenCodeline(t *testing.T) {
	i := writeISA(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "uneven.asm")
	contents := "addi x1,x1,1\naddi x2,x2,1\naddi x3,x3,1\nsub x4,x4,x4\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := Open(path, i, 3, WithRand(rand.New(rand.NewSource(7))))
	if err != nil {
		t.Fatal(err)
	}
	if got := h.NumChunks(); got != 2 {
		t.Fatalf("expected 2 chunks (3+1), got %d", got)
	}

	const trials = 20000
	counts := make(map[int]int)
	for n := 0; n < trials; n++ {
		c, err := h.GetRandomCandidate(false)
		if err != nil {
			t.Fatal(err)
		}
		counts[c.LineNo]++
	}

	const tolerance = trials / 20 // +/- 5 percentage points

	singleton := counts[3] // "sub x4,x4,x4", the lone candidate in its chunk
	if want := trials / 2; singleton < want-tolerance || singleton > want+tolerance {
		t.Fatalf("singleton-chunk candidate frequency %d far from expected ~%d (flat-uniform sampling would give ~%d)", singleton, want, trials/4)
	}
	for _, ln := range []int{0, 1, 2} {
		if want := trials / 6; counts[ln] < want-tolerance || counts[ln] > want+tolerance {
			t.Fatalf("candidate at line %d frequency %d far from expected ~%d", ln, counts[ln], want)
		}
	}
}

func TestSaveEncodesChangelog(t *testing.T) {
	i := writeISA(t)
	path := writeAsm(t)
	h, err := Open(path, i, 1)
	if err != nil {
		t.Fatal(err)
	}
	l2, _ := h.GetCandidate(2)
	if err := h.Remove(l2); err != nil {
		t.Fatal(err)
	}
	dest, err := h.Save()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dest) != "test-2.asm" {
		t.Fatalf("unexpected save path: %s", dest)
	}
}
