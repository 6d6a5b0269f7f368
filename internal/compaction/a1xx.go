// Grounded on original_source/src/testcrush/a1xx.py's A1xx class:
// partition each handler's candidates into segment_dimension blocks,
// process blocks in reverse file order, and within a block try members
// one at a time in a policy-determined order until one is ACCEPTed.
package compaction

import (
	"context"
	"math/rand"

	"github.com/cad-polito-it/testcrush/internal/asmfile"
	"github.com/cad-polito-it/testcrush/internal/codeline"
	"github.com/cad-polito-it/testcrush/internal/config"
	"github.com/cad-polito-it/testcrush/internal/toolexec"
)

// A1xxDriver runs the block-wise B/F/R compaction policy.
type A1xxDriver struct {
	Settings *config.Settings
	Handlers map[string]*asmfile.Handler
	Pipeline *Pipeline
	Stats    *StatsWriter
	RNG      *rand.Rand
}

// NewA1xxDriver wires a driver from already-open handlers and settings.
func NewA1xxDriver(settings *config.Settings, handlers map[string]*asmfile.Handler, stats *StatsWriter, rng *rand.Rand) *A1xxDriver {
	return &A1xxDriver{
		Settings: settings,
		Handlers: handlers,
		Pipeline: &Pipeline{Settings: settings, Invoker: toolexec.New()},
		Stats:    stats,
		RNG:      rng,
	}
}

// Run executes the A1xx outer loop, per spec.md §4.6.3.
func (d *A1xxDriver) Run(ctx context.Context) error {
	anchor, err := (&A0Driver{Settings: d.Settings, Pipeline: d.Pipeline}).preRun(ctx)
	if err != nil {
		return err
	}

	for asmID, h := range d.Handlers {
		blocks := chunkCodelines(h.GetCode(), d.Settings.A1xx.SegmentDimension)

		for bi := len(blocks) - 1; bi >= 0; bi-- {
			anchor, err = d.runBlock(ctx, asmID, h, blocks[bi], bi, anchor)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func chunkCodelines(flat []codeline.Codeline, size int) [][]codeline.Codeline {
	if size < 1 {
		size = 1
	}
	var chunks [][]codeline.Codeline
	for i := 0; i < len(flat); i += size {
		end := i + size
		if end > len(flat) {
			end = len(flat)
		}
		chunks = append(chunks, append([]codeline.Codeline{}, flat[i:end]...))
	}
	return chunks
}

// runBlock tries the members of block in the configured intra-block
// order, stopping at the first ACCEPT; on REJECT it moves to the next
// member until the block is exhausted, per spec.md §4.6.3 step 3-4.
func (d *A1xxDriver) runBlock(ctx context.Context, asmID string, h *asmfile.Handler, block []codeline.Codeline, blockIndex int, anchor Anchor) (Anchor, error) {
	working := append([]codeline.Codeline{}, block...)
	policy := d.Settings.A1xx.Policy

	for len(working) > 0 {
		var trial codeline.Codeline

		switch policy {
		case config.PolicyForward:
			trial, working = working[len(working)-1], working[:len(working)-1]
		case config.PolicyRandom:
			idx := d.RNG.Intn(len(working))
			trial = working[idx]
			working = append(working[:idx], working[idx+1:]...)
		default: // config.PolicyBack, and the zero value
			trial, working = working[0], working[1:]
		}

		accepted, row, newAnchor, err := d.Pipeline.RunTrial(ctx, asmID, h, trial, anchor, d.Settings.CompactionPolicy)
		if err != nil {
			return anchor, err
		}
		row.BlockIndex = blockIndex
		row.HasBlockIndex = true
		if err := d.Stats.Write(row); err != nil {
			return anchor, err
		}

		if accepted {
			return newAnchor, nil
		}

		// The F policy's documented "pop, then pop-without-use" skip
		// quirk (spec.md §4.6.3 step 4 / §9 Open Questions): after a
		// rejected back-most trial, silently discard the next
		// back-most member without attempting it.
		if policy == config.PolicyForward && len(working) > 0 {
			working = working[:len(working)-1]
		}
	}
	return anchor, nil
}

// PostRun reaps any leftover child processes and closes the stats file.
func (d *A1xxDriver) PostRun() error {
	d.Pipeline.Invoker.Shutdown()
	return d.Stats.Close()
}
