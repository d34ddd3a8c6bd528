package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildNest constructs for i(4) { for j(8) { block B[i0 = (i*8)+j] } } and
// returns the arena with the interesting node ids.
func buildNest(t *testing.T) (a *Arena, i, j, b NodeID) {
	t.Helper()
	a = NewArena()
	b = a.AddBlock(Block{
		Name:     "B",
		IterVars: []IterVar{{Name: "i0"}},
		Bindings: []*Expr{NewAdd(NewMul(NewVar("i"), NewInt(8)), NewVar("j"))},
	})
	j = a.AddLoop(Loop{Var: "j", Extent: StaticExtent(8), Body: []NodeID{b}})
	i = a.AddLoop(Loop{Var: "i", Extent: StaticExtent(4), Body: []NodeID{j}})
	a.SetRoots(i)
	return a, i, j, b
}

func TestArena_Navigation(t *testing.T) {
	a, i, j, b := buildNest(t)

	assert.True(t, a.IsLoop(i))
	assert.True(t, a.IsBlock(b))
	assert.Equal(t, []NodeID{b}, a.Blocks())

	got, ok := a.BlockByName("B")
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = a.BlockByName("missing")
	assert.False(t, ok)

	assert.Equal(t, []NodeID{i, j}, a.Loops(b))
	assert.Equal(t, InvalidNode, a.Parent(i))
	assert.Equal(t, i, a.Parent(j))
}

func TestArena_String(t *testing.T) {
	a, _, _, _ := buildNest(t)
	want := `for<serial>(i, 0, 4) {
  for<serial>(j, 0, 8) {
    block(B)[i0 = ((i * 8) + j)] { ; }
  }
}
`
	assert.Equal(t, want, a.String())
}

func TestArena_CloneIndependence(t *testing.T) {
	a, i, _, b := buildNest(t)
	c := a.Clone()

	// Handles carry over unchanged.
	require.Equal(t, a.String(), c.String())
	assert.Equal(t, "i", c.Loop(i).Var)
	assert.Equal(t, "B", c.Block(b).Name)

	// Mutating the clone leaves the original untouched.
	before := a.String()
	c.BindLoop(i, ForGPUThread)
	c.Block(b).Bindings[0] = NewVar("x")
	assert.Equal(t, before, a.String())
	assert.Equal(t, ForSerial, a.Loop(i).Kind)
}

func TestExtent(t *testing.T) {
	assert.True(t, StaticExtent(8).IsStatic())
	assert.Equal(t, "8", StaticExtent(8).String())
	assert.False(t, SymbolicExtent("n").IsStatic())
	assert.Equal(t, "n", SymbolicExtent("n").String())
}

func TestKindForTag(t *testing.T) {
	k, ok := KindForTag(TagBlockIdx)
	require.True(t, ok)
	assert.Equal(t, ForGPUBlock, k)

	k, ok = KindForTag(TagThreadIdx)
	require.True(t, ok)
	assert.Equal(t, ForGPUThread, k)

	_, ok = KindForTag("vthread")
	assert.False(t, ok)
}

func TestExpr_SubstituteLeavesReceiver(t *testing.T) {
	e := NewAdd(NewVar("i"), NewInt(1))
	out := e.Substitute("i", NewMul(NewVar("f"), NewInt(2)))
	assert.Equal(t, "((f * 2) + 1)", out.String())
	assert.Equal(t, "(i + 1)", e.String())
	assert.True(t, e.UsesVar("i"))
	assert.False(t, out.UsesVar("i"))
}
