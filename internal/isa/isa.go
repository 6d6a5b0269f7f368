// Package isa loads the mnemonic catalog for one instruction set and
// classifies source lines as instructions or non-instructions.
//
// Grounded on original_source/src/testcrush/asm.py's ISA Singleton class,
// with the process-wide-singleton behavior translated per spec.md §9
// "Singleton ISA": a configuration record built once by the host program
// and threaded through constructors, not a language-level global. The
// line-scanning style follows
// _examples/gmofishsauce-wut4/asm/lexer.go's per-line tokenizing.
package isa

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// SyntaxError reports a malformed line in an ISA definition file.
type SyntaxError struct {
	Path string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// ISA is the mnemonic catalog for one instruction set. The zero value is
// not usable; build one with Load.
type ISA struct {
	path      string
	mnemonics map[string]struct{}
}

// Load reads an ISA definition file: lines are stripped; '#'-prefixed
// lines are comments and are skipped; any other line must be exactly one
// whitespace-separated token (the mnemonic), else it is a syntax error;
// a blank line is a syntax error.
//
// Load has no memory of prior calls: the "construct once" singleton
// behavior described in the original lives in the caller (construct one
// ISA per process and pass it to every AssemblyHandler), not in this
// function — see spec.md §9.
func Load(path string) (*ISA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mnemonics := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "" {
			return nil, &SyntaxError{Path: path, Line: lineNo, Msg: "blank line not allowed in ISA file"}
		}
		fields := strings.Fields(line)
		if len(fields) != 1 {
			return nil, &SyntaxError{Path: path, Line: lineNo, Msg: "expected exactly one mnemonic token"}
		}
		mnemonics[fields[0]] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return &ISA{path: path, mnemonics: mnemonics}, nil
}

// Path returns the file this ISA was constructed from.
func (i *ISA) Path() string { return i.path }

// IsInstruction reports whether the first whitespace-separated token of s
// names a known mnemonic.
func (i *ISA) IsInstruction(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	_, ok := i.mnemonics[fields[0]]
	return ok
}

// Len returns the number of distinct mnemonics in the catalog.
func (i *ISA) Len() int { return len(i.mnemonics) }
