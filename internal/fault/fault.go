// Package fault implements the Fault record and its equivalence relation
// to a prime fault.
//
// Grounded on original_source/src/testcrush/zoix.py's Fault class
// (dynamic kwargs-to-attributes via setattr, equivalent_faults/equivalent_to
// fields), translated to an explicit attribute map plus a pointer per
// spec.md §9 "Equivalence pointers": an owning arena (here, a []*Fault
// built by the parser) plus non-mutating pointers, keeping the forest at
// depth 1 by construction.
package fault

// Fault is one entry from a fault report's FaultList section. Arbitrary
// simulator-specific attributes (fault_status, fault_type, fault_sites,
// timing_info, ...) live in Attrs; EquivalentFaults and EquivalentTo are
// the two fixed fields the core reasons about directly.
type Fault struct {
	Attrs map[string]string

	// EquivalentFaults counts this fault plus its equivalent siblings
	// when this Fault is prime (>=1); meaningless otherwise.
	EquivalentFaults int

	// EquivalentTo points at the prime fault this one collapses into,
	// or nil if this Fault is itself prime.
	EquivalentTo *Fault
}

// New returns a prime Fault (EquivalentFaults=1, EquivalentTo=nil) with a
// fresh, empty attribute map.
func New() *Fault {
	return &Fault{Attrs: make(map[string]string), EquivalentFaults: 1}
}

// IsPrime reports whether f is a prime fault.
func (f *Fault) IsPrime() bool { return f.EquivalentTo == nil }

// SetAttribute sets a dynamic attribute, trimming surrounding whitespace
// from the value as spec.md §4.4 step 4 requires.
func (f *Fault) SetAttribute(key, value string) {
	f.Attrs[key] = trimSpace(value)
}

// GetAttribute returns the named attribute and whether it was present.
func (f *Fault) GetAttribute(key string) (string, bool) {
	v, ok := f.Attrs[key]
	return v, ok
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && isSpace(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// MarkEquivalent records that f is equivalent to prime, incrementing
// prime's EquivalentFaults count. Calling this on a Fault that is itself
// prime, or passing a non-prime as prime, is a caller error that would
// violate the depth-1 forest invariant; the parser never does this.
func MarkEquivalent(f, prime *Fault) {
	f.EquivalentTo = prime
	prime.EquivalentFaults++
}
