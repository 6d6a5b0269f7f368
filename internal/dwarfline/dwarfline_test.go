package dwarfline

import (
	"debug/dwarf"
	"testing"
)

func TestTrimHexPrefix(t *testing.T) {
	if trimHexPrefix("0x1a") != "1a" {
		t.Fatal("expected prefix trimmed")
	}
	if trimHexPrefix("1a") != "1a" {
		t.Fatal("expected unchanged")
	}
}

func TestLookupMatchesAddress(t *testing.T) {
	r := &Resolver{entries: []dwarf.LineEntry{
		{Address: 0x1000, Line: 10, File: &dwarf.LineFile{Name: "a.s"}},
		{Address: 0x1004, Line: 11, File: &dwarf.LineFile{Name: "a.s"}},
	}}
	file, line, ok := r.Lookup("0x1004")
	if !ok || file != "a.s" || line != 11 {
		t.Fatalf("got file=%q line=%d ok=%v", file, line, ok)
	}
	if _, _, ok := r.Lookup("0x2000"); ok {
		t.Fatal("expected no match")
	}
}
