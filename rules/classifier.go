package rules

import (
	"fmt"
	"strings"

	"github.com/schedkit/autosched/ir"
)

// reducePrefix is the iteration-variable name fallback for reduction
// detection. An axis counts as a reduction when its explicit flag is set
// OR its name starts with this prefix; the two signals are deliberately
// not reconciled (see DESIGN.md).
const reducePrefix = "reduce"

// isReduceAxis applies the flag-or-prefix reduction test to one axis.
func isReduceAxis(iv ir.IterVar) bool {
	return iv.IsReduce || strings.HasPrefix(iv.Name, reducePrefix)
}

// IsSpatialLoop reports whether the loop is eligible for parallel binding:
// an ordinary serial loop whose variable never drives a reduction axis of
// any block realization in its body. Binding a reduction-driving loop
// would make parallel lanes accumulate into the same slot with no
// synchronization in this primitive set.
//
// The analysis is pure; calling it twice on an unmutated nest yields the
// same answer.
func IsSpatialLoop(a *ir.Arena, loop ir.NodeID) bool {
	l := a.Loop(loop)
	if l.Kind.IsBound() {
		return false
	}
	spatial := true
	for _, c := range l.Body {
		a.Walk(c, func(id ir.NodeID) bool {
			if !a.IsBlock(id) {
				return true
			}
			b := a.Block(id)
			if len(b.IterVars) != len(b.Bindings) {
				panic(fmt.Sprintf("rules: block %q has %d iter vars but %d bindings",
					b.Name, len(b.IterVars), len(b.Bindings)))
			}
			for i, iv := range b.IterVars {
				if isReduceAxis(iv) && b.Bindings[i].UsesVar(l.Var) {
					spatial = false
					return false
				}
			}
			return true
		})
		if !spatial {
			break
		}
	}
	return spatial
}

// BindableDepth counts the contiguous loops, starting at loop and
// descending through single-child chains, that are simultaneously unbound
// and spatial. The walk stops without counting at a bound loop, a
// non-spatial loop, or a branch point (a body with more than one
// statement, where the chain to continue into is ambiguous). Zero means a
// binding rule cannot fire here.
func BindableDepth(a *ir.Arena, loop ir.NodeID) int {
	depth := 0
	for id := loop; ; {
		l := a.Loop(id)
		if l.Kind.IsBound() || !IsSpatialLoop(a, id) {
			break
		}
		depth++
		if len(l.Body) == 0 {
			panic(fmt.Sprintf("rules: loop %q has an empty body", l.Var))
		}
		if len(l.Body) != 1 || !a.IsLoop(l.Body[0]) {
			break
		}
		id = l.Body[0]
	}
	return depth
}
