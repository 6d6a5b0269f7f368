// Grounded on spec.md §4.6.1's "shared pipeline for one trial" and
// original_source/src/testcrush/a0.py/a1xx.py's run() bodies, which both
// delegate to the same remove→compile→lsim→fsim→coverage→verdict
// sequence for a single candidate codeline.
package compaction

import (
	"context"
	"fmt"

	"github.com/cad-polito-it/testcrush/internal/asmfile"
	"github.com/cad-polito-it/testcrush/internal/codeline"
	"github.com/cad-polito-it/testcrush/internal/config"
	"github.com/cad-polito-it/testcrush/internal/coverage"
	"github.com/cad-polito-it/testcrush/internal/frpt"
	"github.com/cad-polito-it/testcrush/internal/toolexec"
)

// Anchor is the accepted (tat, coverage) baseline a trial is judged
// against, per spec.md §4.6.1 step 7.
type Anchor struct {
	TAT      int
	Coverage float64
}

// Pipeline runs the shared per-trial sequence shared by A0 and A1xx.
type Pipeline struct {
	Settings *config.Settings
	Invoker  *toolexec.Invoker
}

// RunTrial removes c from h, runs the assembly/HDL compile, logic
// simulation and fault simulation stages, computes coverage, and decides
// ACCEPT/REJECT against anchor. On REJECT it restores h before returning.
// A fatal tooling failure (HDL compile error) is returned as a
// *ToolingError and the caller must stop the run.
func (p *Pipeline) RunTrial(ctx context.Context, asmID string, h *asmfile.Handler, c codeline.Codeline, anchor Anchor, policy config.Policy) (accepted bool, row StatRow, newAnchor Anchor, err error) {
	row.AsmSource = asmID
	row.RemovedCodeline = fmt.Sprintf("%d:%s", c.LineNo, c.Data)
	newAnchor = anchor

	if err := h.Remove(c); err != nil {
		return false, row, anchor, fmt.Errorf("compaction: removing candidate: %w", err)
	}

	compileStatus := p.Invoker.Compile(ctx, timeoutOr(p.Settings.VCSLogicSimulationControl.Timeout), p.Settings.CrossCompilation.Instructions...)
	if compileStatus != toolexec.StatusSuccess {
		row.Compiles = false
		row.Verdict = "Restore"
		_ = h.Restore()
		return false, row, anchor, nil
	}
	row.Compiles = true

	if len(p.Settings.VCSHDLCompilation.Instructions) > 0 {
		if st := p.Invoker.Compile(ctx, timeoutOr(p.Settings.VCSLogicSimulationControl.Timeout), p.Settings.VCSHDLCompilation.Instructions...); st != toolexec.StatusSuccess {
			return false, row, anchor, &ToolingError{Stage: "hdl-compile", Msg: "HDL compile failed during an iteration"}
		}
	}

	lsimOpts := toolexec.LsimOptions{
		Timeout:                    timeoutOr(p.Settings.VCSLogicSimulationControl.Timeout),
		SimulationOKRegex:          p.Settings.VCSLogicSimulationControl.CompiledSimulationOKRegex,
		TestApplicationTimeRegex:   p.Settings.VCSLogicSimulationControl.CompiledTestApplicationTimeRegex,
		TestApplicationTimeGroupNo: p.Settings.VCSLogicSimulationControl.TestApplicationTimeGroupNo,
	}
	lsimRes := p.Invoker.LogicSimulate(ctx, lsimOpts, p.Settings.VCSLogicSimulation.Instructions...)
	if lsimRes.Status != toolexec.StatusSuccess {
		row.LsimOK = false
		row.LsimReason = lsimReason(lsimRes)
		row.Verdict = "Restore"
		_ = h.Restore()
		return false, row, anchor, nil
	}
	assertInvariant(lsimRes.TAT >= 0, "negative test-application-time %d from logic simulation", lsimRes.TAT)
	row.LsimOK = true
	row.TAT = lsimRes.TAT
	row.HasTAT = true

	fsimOpts := toolexec.FsimOptions{
		Timeout:     timeoutOr(p.Settings.ZoixFaultSimulationControl.Timeout),
		AllowRegexs: p.Settings.ZoixFaultSimulationControl.CompiledAllowRegexs,
	}
	fsimStatus, fsimMsg := p.Invoker.FaultSimulate(ctx, fsimOpts, p.Settings.ZoixFaultSimulation.Instructions...)
	if fsimStatus != toolexec.StatusSuccess {
		row.FsimOK = false
		row.FsimReason = fsimStatusReason(fsimStatus, fsimMsg)
		row.Verdict = "Restore"
		_ = h.Restore()
		return false, row, anchor, nil
	}
	row.FsimOK = true

	covNew, err := computeCoverage(p.Settings)
	if err != nil {
		return false, row, anchor, fmt.Errorf("compaction: computing coverage: %w", err)
	}
	row.Coverage = covNew
	row.HasCoverage = true

	if lsimRes.TAT <= anchor.TAT && covNew >= anchor.Coverage {
		row.Verdict = "Proceed"
		switch policy {
		case config.PolicyThreshold:
			newAnchor = Anchor{TAT: lsimRes.TAT, Coverage: anchor.Coverage}
		default:
			newAnchor = Anchor{TAT: lsimRes.TAT, Coverage: covNew}
		}
		return true, row, newAnchor, nil
	}

	row.Verdict = "Restore"
	_ = h.Restore()
	return false, row, anchor, nil
}

func lsimReason(res toolexec.LsimResult) string {
	if res.Status == toolexec.StatusTimeout {
		return toolexec.TimeoutSentinel
	}
	return res.Reason
}

func fsimStatusReason(status toolexec.Status, msg string) string {
	if status == toolexec.StatusTimeout {
		return toolexec.TimeoutSentinel
	}
	return msg
}

func computeCoverage(s *config.Settings) (float64, error) {
	report, err := frpt.Parse(readFileOrEmpty(s.FaultReport.FrptFile))
	if err != nil {
		return 0, err
	}
	counts := report.StatusCounts()
	engine := coverage.NewEngine(counts, report.StatusGroups)

	if report.Formulas == nil {
		ratios := coverage.FallbackRatios(counts)
		return sumRatios(ratios), nil
	}

	body, ok := report.Formulas[s.FaultReport.CoverageFormula]
	if !ok {
		return 0, fmt.Errorf("coverage formula %q not found in fault report", s.FaultReport.CoverageFormula)
	}
	return engine.EvaluateOne(body)
}

func sumRatios(ratios map[string]float64) float64 {
	total := 0.0
	for _, v := range ratios {
		total += v
	}
	return total
}
