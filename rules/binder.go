package rules

import (
	"fmt"

	"github.com/schedkit/autosched/ir"
	"github.com/schedkit/autosched/schedule"
)

// MaxThreadBlocks is the fixed platform cap on grid blocks the binder will
// occupy before falling back to a serial outer remainder loop.
const MaxThreadBlocks = 256

// BindGPULaunch fuses the leading depth loops above block into one loop
// and binds the result to the launch grid under the given device limits.
//
// Decision procedure:
//  1. If the loop just below the fused prefix is already thread-bound,
//     the fused prefix itself becomes the block dimension.
//  2. Extent ≤ maxThreads: bind the fused loop straight to the thread
//     dimension (implicit single-block launch).
//  3. Extent ≤ maxBlocks×maxThreads: split [ceil(E/maxThreads),
//     maxThreads]; outer→block, inner→thread.
//  4. Otherwise split [ceil(E/(maxBlocks×maxThreads)), maxBlocks,
//     maxThreads] and reorder so the block and thread factors are the two
//     innermost adjacent loops while the remainder stays the outermost
//     serial loop: each of its iterations re-issues a full grid of work.
//
// depth exceeding the block's loop count, or a symbolic extent at bind
// time, is an orchestrator defect and panics.
func BindGPULaunch(sch *schedule.Schedule, block ir.NodeID, depth, maxBlocks, maxThreads int) {
	loops := sch.GetLoops(block)
	if depth > len(loops) {
		panic(fmt.Sprintf("rules: bindable depth %d exceeds the %d loops above block %q",
			depth, len(loops), sch.Arena().Block(block).Name))
	}
	if depth <= 0 {
		panic(fmt.Sprintf("rules: bindable depth %d must be positive", depth))
	}

	// A previous transform may have thread-bound an inner loop already;
	// the classifier stops at bound loops, so that loop can only be the
	// one right after the prefix.
	a := sch.Arena()
	threadBound := depth < len(loops) && a.Loop(loops[depth]).Kind == ir.ForGPUThread

	fused := sch.Fuse(loops[:depth])
	ext := a.Loop(fused).Extent
	if !ext.IsStatic() {
		panic(fmt.Sprintf("rules: fused loop %q has symbolic extent %s at bind time",
			a.Loop(fused).Var, ext))
	}
	extent := ext.Const

	if threadBound {
		sch.Bind(fused, ir.TagBlockIdx)
		return
	}

	switch {
	case extent <= maxThreads:
		sch.Bind(fused, ir.TagThreadIdx)

	case extent <= maxBlocks*maxThreads:
		split := sch.Split(fused, []int{ceilDiv(extent, maxThreads), maxThreads})
		sch.Bind(split[0], ir.TagBlockIdx)
		sch.Bind(split[1], ir.TagThreadIdx)

	default:
		remainder := ceilDiv(extent, maxBlocks*maxThreads)
		split := sch.Split(fused, []int{remainder, maxBlocks, maxThreads})
		sch.Reorder([]ir.NodeID{split[0], split[1], split[2]})
		sch.Bind(split[1], ir.TagBlockIdx)
		sch.Bind(split[2], ir.TagThreadIdx)
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
