package trace

import (
	"fmt"
	"strings"

	"github.com/schedkit/autosched/ir"
)

// Trace is an ordered list of Steps plus a transient name table mapping
// symbolic names to live node handles. The table is only meaningful for
// the schedule instance the trace is recording against; it is never
// serialized. Symbolic names are assigned monotonically and each name is
// defined exactly once.
type Trace struct {
	steps []Step
	names map[string]ir.NodeID
	byID  map[ir.NodeID]string
	next  int
}

// New returns an empty trace.
func New() *Trace {
	return &Trace{
		names: make(map[string]ir.NodeID),
		byID:  make(map[ir.NodeID]string),
	}
}

// Append records a step. It is purely a recording side-channel: the
// mutation itself has already been performed by the schedule.
func (t *Trace) Append(s Step) {
	t.steps = append(t.steps, s)
}

// Pop discards the most recent step, letting a search driver rewind one
// speculative primitive. The name table keeps any names the step assigned;
// they simply become unreferenced.
func (t *Trace) Pop() {
	if len(t.steps) == 0 {
		return
	}
	t.steps = t.steps[:len(t.steps)-1]
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int { return len(t.steps) }

// Steps returns the recorded steps in order. The slice is shared; steps
// are immutable once appended.
func (t *Trace) Steps() []Step { return t.steps }

// NameOf returns the current symbolic name of a handle, if the handle was
// produced by a recorded step in this session.
func (t *Trace) NameOf(id ir.NodeID) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// Assign gives the handle a fresh symbolic name. A handle returned by a
// later step shadows any earlier name it held; names themselves are never
// reused.
func (t *Trace) Assign(id ir.NodeID) string {
	name := fmt.Sprintf("v%d", t.next)
	t.next++
	t.names[name] = id
	t.byID[id] = name
	return name
}

// Clone deep-copies the trace, name table included. It is only valid
// together with an arena clone, which preserves NodeIDs.
func (t *Trace) Clone() *Trace {
	c := &Trace{
		steps: make([]Step, len(t.steps)),
		names: make(map[string]ir.NodeID, len(t.names)),
		byID:  make(map[ir.NodeID]string, len(t.byID)),
		next:  t.next,
	}
	for i, s := range t.steps {
		c.steps[i] = cloneStep(s)
	}
	for k, v := range t.names {
		c.names[k] = v
	}
	for k, v := range t.byID {
		c.byID[k] = v
	}
	return c
}

func cloneStep(s Step) Step {
	c := Step{Op: s.Op}
	c.Inputs = cloneOperands(s.Inputs)
	c.Outputs = cloneOperands(s.Outputs)
	if s.Attrs != nil {
		c.Attrs = make([]NamedAttr, len(s.Attrs))
		for i, a := range s.Attrs {
			na := NamedAttr{Name: a.Name, Attr: a.Attr}
			na.Attr.Ints = append([]int(nil), a.Attr.Ints...)
			na.Attr.Strs = append([]string(nil), a.Attr.Strs...)
			c.Attrs[i] = na
		}
	}
	return c
}

func cloneOperands(ops []Operand) []Operand {
	if ops == nil {
		return nil
	}
	out := make([]Operand, len(ops))
	for i, op := range ops {
		out[i] = Operand{Name: op.Name, Refs: append([]string(nil), op.Refs...)}
	}
	return out
}

// String renders the step list for diagnostics, one step per line.
func (t *Trace) String() string {
	var sb strings.Builder
	for i, s := range t.steps {
		fmt.Fprintf(&sb, "%3d %s", i, s.Op)
		for _, in := range s.Inputs {
			fmt.Fprintf(&sb, " %s=[%s]", in.Name, strings.Join(in.Refs, ","))
		}
		for _, a := range s.Attrs {
			switch a.Attr.Kind {
			case AttrInt:
				fmt.Fprintf(&sb, " %s=%d", a.Name, a.Attr.Int)
			case AttrString:
				fmt.Fprintf(&sb, " %s=%q", a.Name, a.Attr.Str)
			case AttrInts:
				fmt.Fprintf(&sb, " %s=%v", a.Name, a.Attr.Ints)
			case AttrStrings:
				fmt.Fprintf(&sb, " %s=%v", a.Name, a.Attr.Strs)
			}
		}
		if len(s.Outputs) > 0 {
			sb.WriteString(" ->")
			for _, out := range s.Outputs {
				fmt.Fprintf(&sb, " %s=[%s]", out.Name, strings.Join(out.Refs, ","))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
