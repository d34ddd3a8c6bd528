// Package ir implements an arena-based loop-nest intermediate representation.
//
// Every Schedule owns one Arena; nodes are addressed by NodeID so that a
// structural clone of the arena preserves every handle. No two arenas ever
// share a mutable node, which is what lets a search branch candidates
// without locking.
package ir

import (
	"fmt"
	"strconv"
)

// NodeID indexes a node inside one Arena. IDs are stable across Clone.
type NodeID int32

// InvalidNode marks the absence of a node (for example the parent of a root).
const InvalidNode NodeID = -1

// ForKind describes how a loop is executed. A loop whose kind is not
// ForSerial is bound to a hardware launch dimension; once set, the binding
// is never cleared.
type ForKind uint8

const (
	ForSerial ForKind = iota
	ForGPUBlock
	ForGPUThread
)

// Launch-dimension tags accepted by Bind.
const (
	TagBlockIdx  = "blockIdx.x"
	TagThreadIdx = "threadIdx.x"
)

// KindForTag maps a launch-dimension tag to the loop kind it implies.
func KindForTag(tag string) (ForKind, bool) {
	switch tag {
	case TagBlockIdx:
		return ForGPUBlock, true
	case TagThreadIdx:
		return ForGPUThread, true
	default:
		return ForSerial, false
	}
}

func (k ForKind) String() string {
	switch k {
	case ForSerial:
		return "serial"
	case ForGPUBlock:
		return TagBlockIdx
	case ForGPUThread:
		return TagThreadIdx
	default:
		return fmt.Sprintf("ForKind(%d)", uint8(k))
	}
}

// IsBound reports whether the loop has been bound to a launch dimension.
func (k ForKind) IsBound() bool { return k != ForSerial }

// Extent is a loop trip count: either a static integer or a named symbol.
type Extent struct {
	Const int
	Sym   string // non-empty means symbolic
}

// StaticExtent returns a statically known extent.
func StaticExtent(n int) Extent { return Extent{Const: n} }

// SymbolicExtent returns a named symbolic extent.
func SymbolicExtent(name string) Extent { return Extent{Sym: name} }

// IsStatic reports whether the extent is a known integer.
func (e Extent) IsStatic() bool { return e.Sym == "" }

func (e Extent) String() string {
	if e.IsStatic() {
		return strconv.Itoa(e.Const)
	}
	return e.Sym
}

// Loop is a for-node. Body holds the child statements in source order; a
// single-element body containing another loop is a "chain", more than one
// statement is a branch point.
type Loop struct {
	Var    string
	Extent Extent
	Kind   ForKind
	Body   []NodeID
}

// IterVar is one iteration axis of a block. IsReduce marks an axis whose
// accumulation must stay sequential relative to itself.
type IterVar struct {
	Name     string
	IsReduce bool
}

// Block is the innermost computation unit. Bindings[i] maps the enclosing
// loop variables onto IterVars[i].
type Block struct {
	Name     string
	IterVars []IterVar
	Bindings []*Expr
	Stmt     string // display-only statement body
}

type nodeTag uint8

const (
	tagLoop nodeTag = iota
	tagBlock
)

type node struct {
	tag    nodeTag
	parent NodeID
	loop   Loop
	block  Block
}

// Arena owns every node of one loop nest. Mutating primitives allocate new
// nodes and relink; superseded nodes stay in the arena unreferenced, which
// keeps all previously handed-out NodeIDs valid.
type Arena struct {
	nodes []node
	roots []NodeID
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// AddLoop allocates a loop node. The parent field of every body child is
// pointed at the new node.
func (a *Arena) AddLoop(l Loop) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, node{tag: tagLoop, parent: InvalidNode, loop: l})
	for _, c := range l.Body {
		a.nodes[c].parent = id
	}
	return id
}

// AddBlock allocates a block node.
func (a *Arena) AddBlock(b Block) NodeID {
	if len(b.IterVars) != len(b.Bindings) {
		panic(fmt.Sprintf("ir: block %q has %d iter vars but %d bindings",
			b.Name, len(b.IterVars), len(b.Bindings)))
	}
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, node{tag: tagBlock, parent: InvalidNode, block: b})
	return id
}

// SetRoots declares the top-level statements of the nest.
func (a *Arena) SetRoots(ids ...NodeID) {
	a.roots = append(a.roots[:0], ids...)
	for _, id := range ids {
		a.nodes[id].parent = InvalidNode
	}
}

// Roots returns the top-level statements in order.
func (a *Arena) Roots() []NodeID { return a.roots }

// Len returns the number of allocated nodes, live or superseded.
func (a *Arena) Len() int { return len(a.nodes) }

func (a *Arena) check(id NodeID) {
	if id < 0 || int(id) >= len(a.nodes) {
		panic(fmt.Sprintf("ir: node id %d out of range [0,%d)", id, len(a.nodes)))
	}
}

// IsLoop reports whether id refers to a loop node.
func (a *Arena) IsLoop(id NodeID) bool {
	a.check(id)
	return a.nodes[id].tag == tagLoop
}

// IsBlock reports whether id refers to a block node.
func (a *Arena) IsBlock(id NodeID) bool {
	a.check(id)
	return a.nodes[id].tag == tagBlock
}

// Loop returns the loop node for id. Panics if id is not a loop.
func (a *Arena) Loop(id NodeID) *Loop {
	a.check(id)
	if a.nodes[id].tag != tagLoop {
		panic(fmt.Sprintf("ir: node %d is not a loop", id))
	}
	return &a.nodes[id].loop
}

// Block returns the block node for id. Panics if id is not a block.
func (a *Arena) Block(id NodeID) *Block {
	a.check(id)
	if a.nodes[id].tag != tagBlock {
		panic(fmt.Sprintf("ir: node %d is not a block", id))
	}
	return &a.nodes[id].block
}

// Parent returns the enclosing node of id, or InvalidNode for a root.
func (a *Arena) Parent(id NodeID) NodeID {
	a.check(id)
	return a.nodes[id].parent
}

// SetBody replaces the body of a loop and fixes the children's parents.
func (a *Arena) SetBody(loop NodeID, body []NodeID) {
	l := a.Loop(loop)
	l.Body = append([]NodeID(nil), body...)
	for _, c := range body {
		a.nodes[c].parent = loop
	}
}

// Walk visits the subtree rooted at id in preorder. The visitor returns
// false to stop the walk early.
func (a *Arena) Walk(id NodeID, visit func(NodeID) bool) bool {
	if !visit(id) {
		return false
	}
	if a.IsLoop(id) {
		for _, c := range a.Loop(id).Body {
			if !a.Walk(c, visit) {
				return false
			}
		}
	}
	return true
}

// Blocks returns every block node in deterministic preorder across roots.
func (a *Arena) Blocks() []NodeID {
	var out []NodeID
	for _, r := range a.roots {
		a.Walk(r, func(id NodeID) bool {
			if a.IsBlock(id) {
				out = append(out, id)
			}
			return true
		})
	}
	return out
}

// BlockByName returns the first block with the given name in preorder.
func (a *Arena) BlockByName(name string) (NodeID, bool) {
	for _, id := range a.Blocks() {
		if a.Block(id).Name == name {
			return id, true
		}
	}
	return InvalidNode, false
}

// Loops returns the loops enclosing a block, outermost first.
func (a *Arena) Loops(block NodeID) []NodeID {
	if !a.IsBlock(block) {
		panic(fmt.Sprintf("ir: node %d is not a block", block))
	}
	var loops []NodeID
	for p := a.Parent(block); p != InvalidNode; p = a.Parent(p) {
		loops = append(loops, p)
	}
	// reverse to outer→inner
	for i, j := 0, len(loops)-1; i < j; i, j = i+1, j-1 {
		loops[i], loops[j] = loops[j], loops[i]
	}
	return loops
}

// Clone returns a structurally identical arena whose nodes share no memory
// with the receiver. NodeIDs carry over unchanged.
func (a *Arena) Clone() *Arena {
	c := &Arena{
		nodes: make([]node, len(a.nodes)),
		roots: append([]NodeID(nil), a.roots...),
	}
	for i, n := range a.nodes {
		cn := node{tag: n.tag, parent: n.parent}
		switch n.tag {
		case tagLoop:
			cn.loop = Loop{
				Var:    n.loop.Var,
				Extent: n.loop.Extent,
				Kind:   n.loop.Kind,
				Body:   append([]NodeID(nil), n.loop.Body...),
			}
		case tagBlock:
			cn.block = Block{
				Name:     n.block.Name,
				IterVars: append([]IterVar(nil), n.block.IterVars...),
				Bindings: make([]*Expr, len(n.block.Bindings)),
				Stmt:     n.block.Stmt,
			}
			for j, b := range n.block.Bindings {
				cn.block.Bindings[j] = b.Clone()
			}
		}
		c.nodes[i] = cn
	}
	return c
}
