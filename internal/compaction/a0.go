// Grounded on original_source/src/testcrush/a0.py's A0 class: flatten all
// (asm-id, codeline) pairs, shuffle uniformly (optionally N times), then
// pop one at a time and run the shared trial pipeline.
package compaction

import (
	"context"
	"math/rand"

	"github.com/cad-polito-it/testcrush/internal/asmfile"
	"github.com/cad-polito-it/testcrush/internal/codeline"
	"github.com/cad-polito-it/testcrush/internal/config"
	"github.com/cad-polito-it/testcrush/internal/toolexec"
)

// candidateRef is one (asm-id, codeline) pair awaiting a trial.
type candidateRef struct {
	asmID string
	c     codeline.Codeline
}

// A0Driver runs the single-instruction random compaction policy.
type A0Driver struct {
	Settings *config.Settings
	Handlers map[string]*asmfile.Handler // asm-id -> handler
	Pipeline *Pipeline
	Stats    *StatsWriter
	RNG      *rand.Rand

	// TimesToShuffle mirrors a0.py's times_to_shuffle=100 repeated
	// shuffles before the main loop.
	TimesToShuffle int
}

// NewA0Driver wires a driver from already-open handlers and settings.
func NewA0Driver(settings *config.Settings, handlers map[string]*asmfile.Handler, stats *StatsWriter, rng *rand.Rand) *A0Driver {
	return &A0Driver{
		Settings:       settings,
		Handlers:       handlers,
		Pipeline:       &Pipeline{Settings: settings, Invoker: toolexec.New()},
		Stats:          stats,
		RNG:            rng,
		TimesToShuffle: 100,
	}
}

// Run executes the A0 outer loop: pre-run anchor, shuffle, then one
// trial per candidate until the list is exhausted, per spec.md §4.6.2.
func (d *A0Driver) Run(ctx context.Context) error {
	anchor, err := d.preRun(ctx)
	if err != nil {
		return err
	}

	var all []candidateRef
	for asmID, h := range d.Handlers {
		for _, c := range h.GetCode() {
			all = append(all, candidateRef{asmID: asmID, c: c})
		}
	}

	for i := 0; i < d.TimesToShuffle; i++ {
		d.RNG.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	}

	for len(all) > 0 {
		cand := all[0]
		all = all[1:]

		h := d.Handlers[cand.asmID]
		accepted, row, newAnchor, err := d.Pipeline.RunTrial(ctx, cand.asmID, h, cand.c, anchor, d.Settings.CompactionPolicy)
		if err != nil {
			return err
		}
		if err := d.Stats.Write(row); err != nil {
			return err
		}
		if accepted {
			anchor = newAnchor
		}
	}
	return nil
}

// preRun establishes the initial (tat0, cov0) anchor by compiling and
// simulating the unmodified sources once, per spec.md §4.6.2 step 2. A
// failing pre-run is fatal per spec.md §7 kind 4.
func (d *A0Driver) preRun(ctx context.Context) (Anchor, error) {
	inv := d.Pipeline.Invoker
	if st := inv.Compile(ctx, timeoutOr(0), d.Settings.CrossCompilation.Instructions...); st != toolexec.StatusSuccess {
		return Anchor{}, &ToolingError{Stage: "pre-run-compile", Msg: "baseline assembly compile failed"}
	}
	if len(d.Settings.VCSHDLCompilation.Instructions) > 0 {
		if st := inv.Compile(ctx, timeoutOr(0), d.Settings.VCSHDLCompilation.Instructions...); st != toolexec.StatusSuccess {
			return Anchor{}, &ToolingError{Stage: "pre-run-hdl-compile", Msg: "baseline HDL compile failed"}
		}
	}

	lsimOpts := toolexec.LsimOptions{
		Timeout:                    timeoutOr(d.Settings.VCSLogicSimulationControl.Timeout),
		SimulationOKRegex:          d.Settings.VCSLogicSimulationControl.CompiledSimulationOKRegex,
		TestApplicationTimeRegex:   d.Settings.VCSLogicSimulationControl.CompiledTestApplicationTimeRegex,
		TestApplicationTimeGroupNo: d.Settings.VCSLogicSimulationControl.TestApplicationTimeGroupNo,
	}
	lsimRes := inv.LogicSimulate(ctx, lsimOpts, d.Settings.VCSLogicSimulation.Instructions...)
	if lsimRes.Status != toolexec.StatusSuccess {
		return Anchor{}, &ToolingError{Stage: "pre-run-lsim", Msg: "baseline logic simulation failed"}
	}

	fsimOpts := toolexec.FsimOptions{
		Timeout:     timeoutOr(d.Settings.ZoixFaultSimulationControl.Timeout),
		AllowRegexs: d.Settings.ZoixFaultSimulationControl.CompiledAllowRegexs,
	}
	if st, _ := inv.FaultSimulate(ctx, fsimOpts, d.Settings.ZoixFaultSimulation.Instructions...); st != toolexec.StatusSuccess {
		return Anchor{}, &ToolingError{Stage: "pre-run-fsim", Msg: "baseline fault simulation failed"}
	}

	cov, err := computeCoverage(d.Settings)
	if err != nil {
		return Anchor{}, &ToolingError{Stage: "pre-run-coverage", Msg: err.Error()}
	}

	return Anchor{TAT: lsimRes.TAT, Coverage: cov}, nil
}

// PostRun reaps any leftover child processes and closes the stats file,
// per spec.md §4.6.2 step 5 / §5 "Process-group hygiene".
func (d *A0Driver) PostRun() error {
	d.Pipeline.Invoker.Shutdown()
	return d.Stats.Close()
}
