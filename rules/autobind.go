package rules

import (
	"fmt"

	"github.com/schedkit/autosched/ir"
	"github.com/schedkit/autosched/logger"
	"github.com/schedkit/autosched/schedule"
	"github.com/schedkit/autosched/search"
	"github.com/schedkit/autosched/target"
)

// AutoBind binds the bindable spatial-loop prefix of each applicable block
// to the GPU launch grid.
type AutoBind struct {
	tgt *target.Target
	log logger.Logger

	sch        *schedule.Schedule
	applicable []ir.NodeID
}

var _ Rule = (*AutoBind)(nil)

// NewAutoBind creates the rule for one hardware target. A nil log discards
// diagnostics.
func NewAutoBind(tgt *target.Target, log logger.Logger) *AutoBind {
	if tgt == nil {
		panic("rules: target cannot be nil")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &AutoBind{tgt: tgt, log: log.With("rule", "AutoBind")}
}

// Init scans every block of the schedule and caches those with a positive
// bindable depth as applicable sites.
func (r *AutoBind) Init(sch *schedule.Schedule) ApplyType {
	r.sch = sch
	r.applicable = r.applicable[:0]

	a := sch.Arena()
	for _, blk := range sch.GetAllBlocks() {
		loops := a.Loops(blk)
		if len(loops) == 0 {
			continue
		}
		if BindableDepth(a, loops[0]) > 0 {
			r.applicable = append(r.applicable, blk)
		}
	}
	r.log.Debug("collected applicable blocks", "count", len(r.applicable))
	if len(r.applicable) == 0 {
		return CannotApply
	}
	return ApplyAndPruneOtherRules
}

// NumberApplicable returns the number of sites cached by Init.
func (r *AutoBind) NumberApplicable() int { return len(r.applicable) }

// Apply mutates the schedule in place at cached site index.
func (r *AutoBind) Apply(index int) {
	if r.sch == nil {
		panic("rules: AutoBind.Apply called before Init")
	}
	if index < 0 || index >= len(r.applicable) {
		panic(fmt.Sprintf("rules: invalid apply index %d, have %d applicable blocks",
			index, len(r.applicable)))
	}
	blk := r.applicable[index]
	a := r.sch.Arena()
	depth := BindableDepth(a, a.Loops(blk)[0])
	BindGPULaunch(r.sch, blk, depth, MaxThreadBlocks, r.tgt.MaxThreads())
}

// AnalyseApplyType re-evaluates applicability for one named block of a
// candidate state, independent of any Init cache. The state is only read.
func (r *AutoBind) AnalyseApplyType(st *search.State, blockName string) ApplyType {
	a := st.Schedule.Arena()
	blk, ok := a.BlockByName(blockName)
	if !ok {
		panic(fmt.Sprintf("rules: no block named %q in state %s", blockName, st.ID))
	}
	loops := a.Loops(blk)
	if len(loops) == 0 || BindableDepth(a, loops[0]) == 0 {
		return CannotApply
	}
	return ApplyAndPruneOtherRules
}

// ApplyOnBlock clones the state, applies the binding to the named block on
// the clone, and returns the clone. The argument state is never mutated.
func (r *AutoBind) ApplyOnBlock(st *search.State, blockName string) []*search.State {
	next := st.Copy()
	blk, err := next.Schedule.GetBlock(blockName)
	if err != nil {
		panic(fmt.Sprintf("rules: %v", err))
	}
	a := next.Schedule.Arena()
	depth := 0
	if loops := a.Loops(blk); len(loops) > 0 {
		depth = BindableDepth(a, loops[0])
	}
	BindGPULaunch(next.Schedule, blk, depth, MaxThreadBlocks, r.tgt.MaxThreads())
	r.log.Debug("applied on block", "block", blockName, "parent", st.ID, "child", next.ID)
	return []*search.State{next}
}
