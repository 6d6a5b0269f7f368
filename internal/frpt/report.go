package frpt

import (
	"github.com/cad-polito-it/testcrush/internal/fault"
)

// Report is the parsed view of a fault-simulation text report: the three
// sections the core depends on, each optional per spec.md §3.
type Report struct {
	Faults       []*fault.Fault
	StatusGroups map[string][]string
	Formulas     map[string]string
}

// Parse extracts and transforms the FaultList, StatusGroups and Coverage
// sections of text. Absent sections leave the corresponding Report field
// nil rather than failing the whole parse; a malformed present section is
// fatal to the parse, per spec.md §4.4 "Failure semantics".
func Parse(text string) (*Report, error) {
	sections, err := Extract(text, "FaultList", "StatusGroups", "Coverage")
	if err != nil {
		return nil, err
	}

	r := &Report{}

	if body, ok := sections["FaultList"]; ok {
		faults, err := ParseFaultList(body)
		if err != nil {
			return nil, err
		}
		r.Faults = faults
	}
	if body, ok := sections["StatusGroups"]; ok {
		groups, err := ParseStatusGroups(body)
		if err != nil {
			return nil, err
		}
		r.StatusGroups = groups
	}
	if body, ok := sections["Coverage"]; ok {
		formulas, err := ParseCoverage(body)
		if err != nil {
			return nil, err
		}
		r.Formulas = formulas
	}

	return r, nil
}

// StatusCounts tallies each fault's fault_status attribute, counting a
// prime fault's EquivalentFaults (itself plus collapsed equivalents)
// under its own status.
func (r *Report) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, f := range r.Faults {
		if !f.IsPrime() {
			continue
		}
		status, ok := f.GetAttribute("fault_status")
		if !ok {
			continue
		}
		counts[status] += f.EquivalentFaults
	}
	return counts
}
