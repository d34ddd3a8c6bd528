package trace

import (
	"errors"
	"fmt"

	"github.com/schedkit/autosched/ir"
)

// Replay failure classes. A failed replay aborts immediately; a half
// applied trace cannot be trusted for downstream code generation.
var (
	ErrUnknownOpcode = errors.New("trace: unknown opcode")
	ErrDanglingRef   = errors.New("trace: undefined symbolic reference")
	ErrBadAttr       = errors.New("trace: missing or malformed attribute")
	ErrShapeMismatch = errors.New("trace: replayed step produced a different result shape")
)

// Primitives is the consumed schedule capability: the operations a trace
// can record and replay, expressed over arena node handles.
// *schedule.Schedule implements it.
type Primitives interface {
	GetAllBlocks() []ir.NodeID
	GetBlock(name string) (ir.NodeID, error)
	GetLoops(block ir.NodeID) []ir.NodeID
	Fuse(loops []ir.NodeID) ir.NodeID
	Split(loop ir.NodeID, factors []int) []ir.NodeID
	Bind(loop ir.NodeID, tag string)
	Reorder(loops []ir.NodeID)
}

// Replay re-executes the recorded steps against a fresh schedule that is
// structurally equivalent to the one recorded against. It returns the
// handles produced by the last step, so a caller can continue scheduling
// where the trace left off. Any failure aborts the remainder of the
// replay.
func (t *Trace) Replay(sch Primitives) ([]ir.NodeID, error) {
	table := make(map[string]ir.NodeID)
	var last []ir.NodeID
	for i, s := range t.steps {
		produced, err := replayStep(sch, s, table)
		if err != nil {
			return nil, fmt.Errorf("trace: step %d: %w", i, err)
		}
		refs := s.outputRefs()
		if len(refs) != len(produced) {
			return nil, fmt.Errorf("trace: step %d (%s): recorded %d outputs, replay produced %d: %w",
				i, s.Op, len(refs), len(produced), ErrShapeMismatch)
		}
		for j, ref := range refs {
			table[ref] = produced[j]
		}
		last = produced
	}
	return last, nil
}

func replayStep(sch Primitives, s Step, table map[string]ir.NodeID) ([]ir.NodeID, error) {
	switch s.Op {
	case OpGetAllBlocks:
		return sch.GetAllBlocks(), nil

	case OpGetBlock:
		name, err := s.StringAttr("block_name")
		if err != nil {
			return nil, err
		}
		blk, err := sch.GetBlock(name)
		if err != nil {
			return nil, err
		}
		return []ir.NodeID{blk}, nil

	case OpGetLoops:
		blk, err := resolveOne(s, "block", table)
		if err != nil {
			return nil, err
		}
		return sch.GetLoops(blk), nil

	case OpFuse:
		loops, err := resolve(s, "loops", table)
		if err != nil {
			return nil, err
		}
		return []ir.NodeID{sch.Fuse(loops)}, nil

	case OpSplit:
		loop, err := resolveOne(s, "loop", table)
		if err != nil {
			return nil, err
		}
		factors, err := s.IntsAttr("factors")
		if err != nil {
			return nil, err
		}
		if len(factors) == 0 {
			return nil, fmt.Errorf("%w: Split attribute \"factors\" is empty", ErrBadAttr)
		}
		return sch.Split(loop, factors), nil

	case OpBind:
		loop, err := resolveOne(s, "loop", table)
		if err != nil {
			return nil, err
		}
		tag, err := s.StringAttr("thread_axis")
		if err != nil {
			return nil, err
		}
		if _, ok := ir.KindForTag(tag); !ok {
			return nil, fmt.Errorf("%w: Bind attribute \"thread_axis\" has unknown tag %q", ErrBadAttr, tag)
		}
		sch.Bind(loop, tag)
		return nil, nil

	case OpReorder:
		loops, err := resolve(s, "loops", table)
		if err != nil {
			return nil, err
		}
		sch.Reorder(loops)
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOpcode, s.Op)
	}
}

func resolve(s Step, name string, table map[string]ir.NodeID) ([]ir.NodeID, error) {
	refs, ok := s.Input(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s is missing input %q", ErrBadAttr, s.Op, name)
	}
	ids := make([]ir.NodeID, len(refs))
	for i, ref := range refs {
		id, ok := table[ref]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrDanglingRef, ref)
		}
		ids[i] = id
	}
	return ids, nil
}

func resolveOne(s Step, name string, table map[string]ir.NodeID) (ir.NodeID, error) {
	ids, err := resolve(s, name, table)
	if err != nil {
		return ir.InvalidNode, err
	}
	if len(ids) != 1 {
		return ir.InvalidNode, fmt.Errorf("%w: %s input %q needs exactly 1 ref, got %d",
			ErrBadAttr, s.Op, name, len(ids))
	}
	return ids[0], nil
}

// Validate performs the static checks replay would perform, without a
// schedule: every opcode is known, required attributes are present and
// well typed, every input reference has a prior definition, and no
// symbolic name is defined twice.
func (t *Trace) Validate() error {
	defined := make(map[string]int)
	for i, s := range t.steps {
		if !knownOpcode(s.Op) {
			return fmt.Errorf("trace: step %d: %w: %q", i, ErrUnknownOpcode, s.Op)
		}
		if err := validateAttrs(s); err != nil {
			return fmt.Errorf("trace: step %d: %w", i, err)
		}
		for _, in := range s.Inputs {
			for _, ref := range in.Refs {
				if _, ok := defined[ref]; !ok {
					return fmt.Errorf("trace: step %d (%s): %w: %q", i, s.Op, ErrDanglingRef, ref)
				}
			}
		}
		for _, ref := range s.outputRefs() {
			if prev, ok := defined[ref]; ok {
				return fmt.Errorf("trace: step %d (%s): name %q already defined by step %d",
					i, s.Op, ref, prev)
			}
			defined[ref] = i
		}
	}
	return nil
}

func validateAttrs(s Step) error {
	switch s.Op {
	case OpGetBlock:
		_, err := s.StringAttr("block_name")
		return err
	case OpSplit:
		factors, err := s.IntsAttr("factors")
		if err != nil {
			return err
		}
		if len(factors) == 0 {
			return fmt.Errorf("%w: Split attribute \"factors\" is empty", ErrBadAttr)
		}
	case OpBind:
		tag, err := s.StringAttr("thread_axis")
		if err != nil {
			return err
		}
		if _, ok := ir.KindForTag(tag); !ok {
			return fmt.Errorf("%w: Bind attribute \"thread_axis\" has unknown tag %q", ErrBadAttr, tag)
		}
	}
	return nil
}
