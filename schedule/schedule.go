// Package schedule wraps one loop-nest arena behind the primitive
// operations a scheduling rule may perform. When a trace is attached,
// every primitive invocation is appended to it with resolved inputs,
// outputs, and attributes; the primitives themselves never special-case
// tracing.
package schedule

import (
	"fmt"

	"github.com/schedkit/autosched/ir"
	"github.com/schedkit/autosched/trace"
)

// Schedule owns exactly one arena and, optionally, the trace recording
// its mutations. Two live schedules never share a mutable node.
type Schedule struct {
	arena *ir.Arena
	tr    *trace.Trace
}

var _ trace.Primitives = (*Schedule)(nil)

// New returns an untraced schedule over the arena.
func New(a *ir.Arena) *Schedule {
	if a == nil {
		panic("schedule: arena cannot be nil")
	}
	return &Schedule{arena: a}
}

// NewTraced returns a schedule that records every primitive into tr.
func NewTraced(a *ir.Arena, tr *trace.Trace) *Schedule {
	if a == nil {
		panic("schedule: arena cannot be nil")
	}
	if tr == nil {
		panic("schedule: trace cannot be nil")
	}
	return &Schedule{arena: a, tr: tr}
}

// Arena exposes the underlying nest for read-only analysis. Mutations go
// through the primitives so they are recorded.
func (s *Schedule) Arena() *ir.Arena { return s.arena }

// Trace returns the attached trace, or nil for an untraced schedule.
func (s *Schedule) Trace() *trace.Trace { return s.tr }

// String renders the nest; two schedules are structurally equivalent iff
// their strings are equal.
func (s *Schedule) String() string { return s.arena.String() }

// Clone returns an independent schedule: a structural arena copy (which
// preserves node handles) plus, when traced, a deep copy of the trace.
func (s *Schedule) Clone() *Schedule {
	c := &Schedule{arena: s.arena.Clone()}
	if s.tr != nil {
		c.tr = s.tr.Clone()
	}
	return c
}

// GetAllBlocks enumerates every schedule block in deterministic preorder.
func (s *Schedule) GetAllBlocks() []ir.NodeID {
	blocks := s.arena.Blocks()
	s.record(trace.Step{
		Op:      trace.OpGetAllBlocks,
		Outputs: s.outputs("blocks", blocks),
	})
	return blocks
}

// GetBlock looks up a block by name.
func (s *Schedule) GetBlock(name string) (ir.NodeID, error) {
	blk, ok := s.arena.BlockByName(name)
	if !ok {
		return ir.InvalidNode, fmt.Errorf("schedule: no block named %q", name)
	}
	s.record(trace.Step{
		Op:      trace.OpGetBlock,
		Attrs:   []trace.NamedAttr{{Name: "block_name", Attr: trace.StringAttr(name)}},
		Outputs: s.outputs("block", []ir.NodeID{blk}),
	})
	return blk, nil
}

// GetLoops returns the loops enclosing a block, outermost first.
func (s *Schedule) GetLoops(block ir.NodeID) []ir.NodeID {
	loops := s.arena.Loops(block)
	s.record(trace.Step{
		Op:      trace.OpGetLoops,
		Inputs:  s.inputs("block", []ir.NodeID{block}),
		Outputs: s.outputs("loops", loops),
	})
	return loops
}

// Fuse merges a perfectly nested chain of loops into one.
func (s *Schedule) Fuse(loops []ir.NodeID) ir.NodeID {
	in := s.inputs("loops", loops)
	fused := s.arena.FuseLoops(loops)
	s.record(trace.Step{
		Op:      trace.OpFuse,
		Inputs:  in,
		Outputs: s.outputs("fused", []ir.NodeID{fused}),
	})
	return fused
}

// Split factors a loop into a nest with the given extents; one factor may
// be -1 to be inferred from the extent.
func (s *Schedule) Split(loop ir.NodeID, factors []int) []ir.NodeID {
	in := s.inputs("loop", []ir.NodeID{loop})
	split := s.arena.SplitLoop(loop, factors)
	s.record(trace.Step{
		Op:      trace.OpSplit,
		Inputs:  in,
		Attrs:   []trace.NamedAttr{{Name: "factors", Attr: trace.IntsAttr(factors)}},
		Outputs: s.outputs("loops", split),
	})
	return split
}

// Bind tags a loop as mapped to the launch dimension named by tag.
func (s *Schedule) Bind(loop ir.NodeID, tag string) {
	kind, ok := ir.KindForTag(tag)
	if !ok {
		panic(fmt.Sprintf("schedule: unknown launch dimension tag %q", tag))
	}
	in := s.inputs("loop", []ir.NodeID{loop})
	s.arena.BindLoop(loop, kind)
	s.record(trace.Step{
		Op:     trace.OpBind,
		Inputs: in,
		Attrs:  []trace.NamedAttr{{Name: "thread_axis", Attr: trace.StringAttr(tag)}},
	})
}

// Reorder permutes a nested chain of loops into the given order.
func (s *Schedule) Reorder(loops []ir.NodeID) {
	in := s.inputs("loops", loops)
	s.arena.ReorderLoops(loops)
	s.record(trace.Step{
		Op:     trace.OpReorder,
		Inputs: in,
	})
}

func (s *Schedule) record(step trace.Step) {
	if s.tr == nil {
		return
	}
	s.tr.Append(step)
}

// inputs resolves handles to their symbolic names. A handle that was never
// produced by a traced step cannot be referenced by one; that is a caller
// defect, not a data condition.
func (s *Schedule) inputs(name string, ids []ir.NodeID) []trace.Operand {
	if s.tr == nil {
		return nil
	}
	refs := make([]string, len(ids))
	for i, id := range ids {
		ref, ok := s.tr.NameOf(id)
		if !ok {
			panic(fmt.Sprintf("schedule: handle %d used as %q was not produced inside this tracing session", id, name))
		}
		refs[i] = ref
	}
	return []trace.Operand{{Name: name, Refs: refs}}
}

func (s *Schedule) outputs(name string, ids []ir.NodeID) []trace.Operand {
	if s.tr == nil {
		return nil
	}
	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = s.tr.Assign(id)
	}
	return []trace.Operand{{Name: name, Refs: refs}}
}
