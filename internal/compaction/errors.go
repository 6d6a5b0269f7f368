package compaction

import "fmt"

// InvariantError signals a handler/fault-forest/line-number invariant
// violation (spec.md §7 kind 2). These should be unreachable in a correct
// implementation; callers recover a panic of this type at the top of
// main and convert it to a fatal exit rather than threading an error
// return through every call site for a condition that must not happen.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "invariant violation: " + e.Msg }

func assertInvariant(cond bool, format string, args ...any) {
	if !cond {
		panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
	}
}

// ToolingError signals a fatal tooling failure during the pre-run (spec.md
// §7 kind 4): an STL with a failing baseline cannot be compacted.
type ToolingError struct {
	Stage string
	Msg   string
}

func (e *ToolingError) Error() string {
	return fmt.Sprintf("tooling error during %s: %s", e.Stage, e.Msg)
}
