package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseLoops(t *testing.T) {
	a, i, j, _ := buildNest(t)

	fused := a.FuseLoops([]NodeID{i, j})
	l := a.Loop(fused)
	assert.Equal(t, "i_j_fused", l.Var)
	assert.Equal(t, 32, l.Extent.Const)

	// The rewritten binding composes the original (i*8)+j with
	// i = f/8 and j = f%8.
	got := a.String()
	assert.Contains(t, got, "for<serial>(i_j_fused, 0, 32) {")
	assert.Contains(t, got, "((i_j_fused / 8) * 8)")
	assert.Contains(t, got, "(i_j_fused % 8)")
}

func TestFuseLoops_SingleIsIdentity(t *testing.T) {
	a, i, _, _ := buildNest(t)
	before := a.String()
	fused := a.FuseLoops([]NodeID{i})
	assert.Equal(t, i, fused)
	assert.Equal(t, before, a.String())
}

func TestFuseLoops_RejectsNonChain(t *testing.T) {
	a := NewArena()
	b1 := a.AddBlock(Block{Name: "B1"})
	b2 := a.AddBlock(Block{Name: "B2"})
	j := a.AddLoop(Loop{Var: "j", Extent: StaticExtent(4), Body: []NodeID{b1}})
	i := a.AddLoop(Loop{Var: "i", Extent: StaticExtent(4), Body: []NodeID{j, b2}})
	a.SetRoots(i)

	assert.Panics(t, func() { a.FuseLoops([]NodeID{i, j}) })
}

func TestFuseLoops_RejectsBoundAndSymbolic(t *testing.T) {
	a, i, j, _ := buildNest(t)
	a.BindLoop(i, ForGPUBlock)
	assert.Panics(t, func() { a.FuseLoops([]NodeID{i, j}) })

	a2, i2, j2, _ := buildNest(t)
	a2.Loop(j2).Extent = SymbolicExtent("n")
	assert.Panics(t, func() { a2.FuseLoops([]NodeID{i2, j2}) })
}

func TestSplitLoop(t *testing.T) {
	a := NewArena()
	b := a.AddBlock(Block{
		Name:     "B",
		IterVars: []IterVar{{Name: "i0"}},
		Bindings: []*Expr{NewVar("i")},
	})
	i := a.AddLoop(Loop{Var: "i", Extent: StaticExtent(12), Body: []NodeID{b}})
	a.SetRoots(i)

	split := a.SplitLoop(i, []int{3, 4})
	require.Len(t, split, 2)
	assert.Equal(t, "i_0", a.Loop(split[0]).Var)
	assert.Equal(t, 3, a.Loop(split[0]).Extent.Const)
	assert.Equal(t, "i_1", a.Loop(split[1]).Var)
	assert.Equal(t, 4, a.Loop(split[1]).Extent.Const)

	want := `for<serial>(i_0, 0, 3) {
  for<serial>(i_1, 0, 4) {
    block(B)[i0 = ((i_0 * 4) + i_1)] { ; }
  }
}
`
	assert.Equal(t, want, a.String())
}

func TestSplitLoop_InfersFactor(t *testing.T) {
	a := NewArena()
	b := a.AddBlock(Block{Name: "B"})
	i := a.AddLoop(Loop{Var: "i", Extent: StaticExtent(10), Body: []NodeID{b}})
	a.SetRoots(i)

	split := a.SplitLoop(i, []int{-1, 4})
	require.Len(t, split, 2)
	// ceil(10/4) = 3
	assert.Equal(t, 3, a.Loop(split[0]).Extent.Const)
	assert.Equal(t, 4, a.Loop(split[1]).Extent.Const)
}

func TestSplitLoop_Rejections(t *testing.T) {
	newLoop := func() (*Arena, NodeID) {
		a := NewArena()
		b := a.AddBlock(Block{Name: "B"})
		i := a.AddLoop(Loop{Var: "i", Extent: StaticExtent(10), Body: []NodeID{b}})
		a.SetRoots(i)
		return a, i
	}

	a, i := newLoop()
	assert.Panics(t, func() { a.SplitLoop(i, nil) }, "no factors")

	a, i = newLoop()
	assert.Panics(t, func() { a.SplitLoop(i, []int{-1, -1}) }, "two inferred factors")

	a, i = newLoop()
	assert.Panics(t, func() { a.SplitLoop(i, []int{2, 4}) }, "factors cover only 8 of 10")

	a, i = newLoop()
	a.BindLoop(i, ForGPUThread)
	assert.Panics(t, func() { a.SplitLoop(i, []int{2, 5}) }, "bound loop")
}

func TestReorderLoops(t *testing.T) {
	a := NewArena()
	b := a.AddBlock(Block{
		Name:     "B",
		IterVars: []IterVar{{Name: "i0"}},
		Bindings: []*Expr{NewVar("k")},
	})
	k := a.AddLoop(Loop{Var: "k", Extent: StaticExtent(2), Body: []NodeID{b}})
	j := a.AddLoop(Loop{Var: "j", Extent: StaticExtent(3), Body: []NodeID{k}})
	i := a.AddLoop(Loop{Var: "i", Extent: StaticExtent(4), Body: []NodeID{j}})
	a.SetRoots(i)

	a.ReorderLoops([]NodeID{k, i, j})

	want := `for<serial>(k, 0, 2) {
  for<serial>(i, 0, 4) {
    for<serial>(j, 0, 3) {
      block(B)[i0 = k] { ; }
    }
  }
}
`
	assert.Equal(t, want, a.String())
	assert.Equal(t, []NodeID{k, i, j}, a.Loops(b))
}

func TestReorderLoops_RejectsNonContiguous(t *testing.T) {
	a := NewArena()
	b := a.AddBlock(Block{Name: "B"})
	k := a.AddLoop(Loop{Var: "k", Extent: StaticExtent(2), Body: []NodeID{b}})
	j := a.AddLoop(Loop{Var: "j", Extent: StaticExtent(3), Body: []NodeID{k}})
	i := a.AddLoop(Loop{Var: "i", Extent: StaticExtent(4), Body: []NodeID{j}})
	a.SetRoots(i)

	// i and k are not adjacent in the chain.
	assert.Panics(t, func() { a.ReorderLoops([]NodeID{k, i}) })
}

func TestBindLoop(t *testing.T) {
	a, i, _, _ := buildNest(t)
	a.BindLoop(i, ForGPUThread)
	assert.Equal(t, ForGPUThread, a.Loop(i).Kind)
	assert.Contains(t, a.String(), "for<threadIdx.x>(i, 0, 4)")

	// Once bound, never rebound.
	assert.Panics(t, func() { a.BindLoop(i, ForGPUBlock) })
	// Binding to serial is meaningless.
	a2, _, j2, _ := buildNest(t)
	assert.Panics(t, func() { a2.BindLoop(j2, ForSerial) })
}
