// Package codeline implements the normalized, line-numbered view of a
// single line of an assembly source file.
//
// Grounded on original_source/src/testcrush/asm.py's Codeline dataclass,
// generalized to Go value-type semantics in the style of
// _examples/gmofishsauce-wut4/asm/types.go's small, field-only structs.
package codeline

import "strings"

// Codeline is a normalized, line-numbered view of one line of an assembly
// source file. Two Codelines compare equal iff their LineNo fields are
// equal; the Data and IsInstruction fields play no part in ordering or
// equality, matching the original's comparator that only ever looks at
// line_no.
type Codeline struct {
	LineNo        int
	Data          string
	IsInstruction bool
}

// New builds a Codeline from a raw source line, normalizing internal
// whitespace runs to a single space and trimming both ends.
func New(lineNo int, raw string, isInstruction bool) Codeline {
	return Codeline{
		LineNo:        lineNo,
		Data:          normalize(raw),
		IsInstruction: isInstruction,
	}
}

func normalize(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Equal reports whether c sits at line number n. To compare two
// Codelines by line number, use Compare.
func (c Codeline) Equal(n int) bool { return c.LineNo == n }

// Compare orders c against another Codeline by LineNo alone: -1, 0, 1.
func (c Codeline) Compare(other Codeline) int {
	switch {
	case c.LineNo < other.LineNo:
		return -1
	case c.LineNo > other.LineNo:
		return 1
	default:
		return 0
	}
}

// Less reports whether c sorts before other by LineNo.
func (c Codeline) Less(other Codeline) bool { return c.LineNo < other.LineNo }

// Shift adds n to LineNo, saturating at 0 (the invariant is line_no >= 0).
func (c *Codeline) Shift(n int) {
	c.LineNo += n
	if c.LineNo < 0 {
		c.LineNo = 0
	}
}

// Same reports whether a and b agree in every field (line number, text
// and instruction flag), unlike Compare and Equal, which look at LineNo
// alone. The asmfile handler's restore shift pass does not call it: the
// restored Codeline is already detached from the candidates it shifts.
func Same(a, b Codeline) bool {
	return a.LineNo == b.LineNo && a.Data == b.Data && a.IsInstruction == b.IsInstruction
}
