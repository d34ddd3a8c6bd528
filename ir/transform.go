package ir

import (
	"fmt"
	"strings"
)

// FuseLoops merges a contiguous perfectly nested chain of serial loops into
// a single loop whose extent is the product of the chain's extents. The
// loops must be given outermost first, each the sole statement in the body
// of the previous one, with statically known extents. Iteration-binding
// expressions below the chain are rewritten in terms of the fused variable.
// Fusing a single loop is the identity.
func (a *Arena) FuseLoops(loops []NodeID) NodeID {
	if len(loops) == 0 {
		panic("ir: FuseLoops requires at least one loop")
	}
	if len(loops) == 1 {
		a.check(loops[0])
		if !a.IsLoop(loops[0]) {
			panic(fmt.Sprintf("ir: node %d is not a loop", loops[0]))
		}
		return loops[0]
	}

	extents := make([]int, len(loops))
	vars := make([]string, len(loops))
	for i, id := range loops {
		l := a.Loop(id)
		if l.Kind.IsBound() {
			panic(fmt.Sprintf("ir: cannot fuse loop %q already bound to %s", l.Var, l.Kind))
		}
		if !l.Extent.IsStatic() {
			panic(fmt.Sprintf("ir: cannot fuse loop %q with symbolic extent %s", l.Var, l.Extent))
		}
		extents[i] = l.Extent.Const
		vars[i] = l.Var
		if i+1 < len(loops) {
			if len(l.Body) != 1 || l.Body[0] != loops[i+1] {
				panic(fmt.Sprintf("ir: loop %q is not perfectly nested over loop %d", l.Var, loops[i+1]))
			}
		}
	}

	product := 1
	for _, e := range extents {
		product *= e
	}
	fusedVar := strings.Join(vars, "_") + "_fused"
	parent := a.Parent(loops[0])
	inner := a.Loop(loops[len(loops)-1])

	fused := a.AddLoop(Loop{
		Var:    fusedVar,
		Extent: StaticExtent(product),
		Kind:   ForSerial,
		Body:   append([]NodeID(nil), inner.Body...),
	})
	a.replaceChild(parent, loops[0], fused)

	// v0 = f / (n1*...*nk), vm = (f / suffix) % nm, vk = f % nk
	suffix := 1
	for i := len(loops) - 1; i >= 0; i-- {
		var repl *Expr
		if suffix > 1 {
			repl = NewDiv(NewVar(fusedVar), NewInt(suffix))
		} else {
			repl = NewVar(fusedVar)
		}
		if i > 0 {
			repl = NewMod(repl, NewInt(extents[i]))
		}
		a.substituteVar(fused, vars[i], repl)
		suffix *= extents[i]
	}
	return fused
}

// SplitLoop factors one serial loop with a static extent into a nest of
// loops with the given extents, outermost first. At most one factor may be
// -1, which is inferred as ceil(extent / product(others)). Bindings below
// the loop are rewritten in terms of the new variables.
func (a *Arena) SplitLoop(loop NodeID, factors []int) []NodeID {
	l := a.Loop(loop)
	if len(factors) == 0 {
		panic(fmt.Sprintf("ir: cannot split loop %q with no factors", l.Var))
	}
	if l.Kind.IsBound() {
		panic(fmt.Sprintf("ir: cannot split loop %q already bound to %s", l.Var, l.Kind))
	}
	if !l.Extent.IsStatic() {
		panic(fmt.Sprintf("ir: cannot split loop %q with symbolic extent %s", l.Var, l.Extent))
	}

	resolved := append([]int(nil), factors...)
	infer, known := -1, 1
	for i, f := range resolved {
		switch {
		case f == -1:
			if infer >= 0 {
				panic(fmt.Sprintf("ir: split of loop %q has more than one inferred factor", l.Var))
			}
			infer = i
		case f > 0:
			known *= f
		default:
			panic(fmt.Sprintf("ir: invalid split factor %d for loop %q", f, l.Var))
		}
	}
	if infer >= 0 {
		resolved[infer] = ceilDiv(l.Extent.Const, known)
	} else if known < l.Extent.Const {
		panic(fmt.Sprintf("ir: split factors %v of loop %q cover only %d of extent %d",
			factors, l.Var, known, l.Extent.Const))
	}

	parent := a.Parent(loop)
	body := append([]NodeID(nil), l.Body...)
	origVar := l.Var

	ids := make([]NodeID, len(resolved))
	for i := len(resolved) - 1; i >= 0; i-- {
		child := body
		if i < len(resolved)-1 {
			child = []NodeID{ids[i+1]}
		}
		ids[i] = a.AddLoop(Loop{
			Var:    fmt.Sprintf("%s_%d", origVar, i),
			Extent: StaticExtent(resolved[i]),
			Kind:   ForSerial,
			Body:   child,
		})
	}
	a.replaceChild(parent, loop, ids[0])

	// orig = ((x0*n1 + x1)*n2 + x2)...
	repl := NewVar(a.Loop(ids[0]).Var)
	for i := 1; i < len(ids); i++ {
		repl = NewAdd(NewMul(repl, NewInt(resolved[i])), NewVar(a.Loop(ids[i]).Var))
	}
	a.substituteVar(ids[0], origVar, repl)
	return ids
}

// BindLoop tags a serial loop as mapped to a launch dimension. A bound
// loop is never rebound.
func (a *Arena) BindLoop(loop NodeID, kind ForKind) {
	l := a.Loop(loop)
	if !kind.IsBound() {
		panic(fmt.Sprintf("ir: cannot bind loop %q to %s", l.Var, kind))
	}
	if l.Kind.IsBound() {
		panic(fmt.Sprintf("ir: loop %q is already bound to %s", l.Var, l.Kind))
	}
	l.Kind = kind
}

// ReorderLoops permutes a contiguous perfectly nested chain of loops so
// that they appear outermost first in the order given. The argument must be
// a permutation of a chain in which each loop is the sole statement of its
// parent.
func (a *Arena) ReorderLoops(loops []NodeID) {
	if len(loops) < 2 {
		return
	}
	chain := a.chainOrder(loops)
	parent := a.Parent(chain[0])
	tail := append([]NodeID(nil), a.Loop(chain[len(chain)-1]).Body...)

	a.replaceChild(parent, chain[0], loops[0])
	for i := 0; i+1 < len(loops); i++ {
		a.SetBody(loops[i], []NodeID{loops[i+1]})
	}
	a.SetBody(loops[len(loops)-1], tail)
}

// chainOrder returns the given loops sorted outer→inner and verifies that
// they form a contiguous single-child chain.
func (a *Arena) chainOrder(loops []NodeID) []NodeID {
	in := make(map[NodeID]bool, len(loops))
	for _, id := range loops {
		if !a.IsLoop(id) {
			panic(fmt.Sprintf("ir: reorder argument %d is not a loop", id))
		}
		in[id] = true
	}
	// The topmost loop of the set is the one whose parent is outside it.
	top := InvalidNode
	for _, id := range loops {
		if p := a.Parent(id); p == InvalidNode || !in[p] {
			if top != InvalidNode {
				panic("ir: reorder loops do not form a single chain")
			}
			top = id
		}
	}
	ordered := make([]NodeID, 0, len(loops))
	for id := top; ; {
		ordered = append(ordered, id)
		if len(ordered) == len(loops) {
			break
		}
		body := a.Loop(id).Body
		if len(body) != 1 || !a.IsLoop(body[0]) || !in[body[0]] {
			panic(fmt.Sprintf("ir: reorder loops are not contiguously nested at loop %q", a.Loop(id).Var))
		}
		id = body[0]
	}
	return ordered
}

// replaceChild swaps old for new in the parent's body, or in the roots when
// parent is InvalidNode.
func (a *Arena) replaceChild(parent, old, new NodeID) {
	if parent == InvalidNode {
		for i, r := range a.roots {
			if r == old {
				a.roots[i] = new
				a.nodes[new].parent = InvalidNode
				return
			}
		}
		panic(fmt.Sprintf("ir: node %d is not a root", old))
	}
	l := a.Loop(parent)
	for i, c := range l.Body {
		if c == old {
			l.Body[i] = new
			a.nodes[new].parent = parent
			return
		}
	}
	panic(fmt.Sprintf("ir: node %d is not a child of node %d", old, parent))
}

// substituteVar rewrites every iteration-binding expression in the subtree
// rooted at id, replacing references to name with repl.
func (a *Arena) substituteVar(id NodeID, name string, repl *Expr) {
	a.Walk(id, func(n NodeID) bool {
		if a.IsBlock(n) {
			b := a.Block(n)
			for i, e := range b.Bindings {
				if e.UsesVar(name) {
					b.Bindings[i] = e.Substitute(name, repl)
				}
			}
		}
		return true
	})
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
