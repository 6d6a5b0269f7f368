// Package frpt implements the grammar-driven fault-report parser: section
// extraction for FaultList/StatusGroups/Coverage, and transforms of each
// section into Go values.
//
// Grounded on original_source/src/testcrush/zoix.py's
// TxtFaultReport.extract (brace-depth section scanning) and
// grammars/transformers.py's Lark-grammar transformer classes. The Python
// original delegates grammar parsing to the third-party `lark` LALR
// parser; no Go parser-combinator or LALR library appears anywhere in the
// retrieval pack, so this package hand-rolls a lexer/parser in the style
// of _examples/gmofishsauce-wut4/asm/lexer.go and
// _examples/gmofishsauce-wut4/asm/parser.go (a flat token stream consumed
// by a cursor-based recursive-descent parser) rather than reaching for an
// out-of-pack dependency.
package frpt

import (
	"fmt"
	"strings"
)

// Extract scans text for named, brace-balanced sections and returns each
// section's raw text (every line from the one holding the section name
// and its opening '{' through the line that closes it, outer braces
// included), keyed by section name. Mirrors TxtFaultReport.extract's brace-depth
// scan: extraction for a section starts on the line where its name and
// '{' co-occur, and ends when the running depth returns to zero.
func Extract(text string, sectionNames ...string) (map[string]string, error) {
	sections := make(map[string]string)

	lines := strings.Split(text, "\n")
	for _, name := range sectionNames {
		body, ok, err := extractOne(lines, name)
		if err != nil {
			return nil, err
		}
		if ok {
			sections[name] = body
		}
	}
	return sections, nil
}

func extractOne(lines []string, name string) (string, bool, error) {
	var b strings.Builder
	depth := 0
	started := false

	for _, line := range lines {
		if !started {
			if strings.Contains(line, name) && strings.Contains(line, "{") {
				started = true
			} else {
				continue
			}
		}

		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		b.WriteString(line)
		b.WriteString("\n")

		if started && depth == 0 {
			return b.String(), true, nil
		}
	}

	if started {
		return "", false, fmt.Errorf("frpt: unbalanced braces in section %q", name)
	}
	return "", false, nil
}
