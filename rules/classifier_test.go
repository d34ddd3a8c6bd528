package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedkit/autosched/ir"
)

// chain builds d serial loops over a block whose iter vars are driven by
// the given bindings. Returns the arena, the outermost loop, and the loop
// ids outer→inner.
func chain(t *testing.T, d int, block ir.Block) (*ir.Arena, []ir.NodeID) {
	t.Helper()
	a := ir.NewArena()
	id := a.AddBlock(block)
	loops := make([]ir.NodeID, d)
	names := []string{"i", "j", "k", "l", "m", "n"}
	for lvl := d - 1; lvl >= 0; lvl-- {
		id = a.AddLoop(ir.Loop{Var: names[lvl], Extent: ir.StaticExtent(4), Body: []ir.NodeID{id}})
		loops[lvl] = id
	}
	a.SetRoots(loops[0])
	return a, loops
}

func TestIsSpatialLoop(t *testing.T) {
	t.Run("spatial serial loop", func(t *testing.T) {
		a, loops := chain(t, 1, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "i0"}},
			Bindings: []*ir.Expr{ir.NewVar("i")},
		})
		assert.True(t, IsSpatialLoop(a, loops[0]))
	})

	t.Run("bound loop is not spatial", func(t *testing.T) {
		a, loops := chain(t, 1, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "i0"}},
			Bindings: []*ir.Expr{ir.NewVar("i")},
		})
		a.BindLoop(loops[0], ir.ForGPUThread)
		assert.False(t, IsSpatialLoop(a, loops[0]))
	})

	t.Run("loop driving flagged reduction axis", func(t *testing.T) {
		a, loops := chain(t, 2, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "i0"}, {Name: "r", IsReduce: true}},
			Bindings: []*ir.Expr{ir.NewVar("i"), ir.NewVar("j")},
		})
		assert.True(t, IsSpatialLoop(a, loops[0]))
		assert.False(t, IsSpatialLoop(a, loops[1]))
	})

	t.Run("name prefix counts as reduction", func(t *testing.T) {
		// Flag unset but the axis name starts with "reduce"; the
		// flag-or-prefix test treats it as a reduction axis.
		a, loops := chain(t, 1, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "reduce_k"}},
			Bindings: []*ir.Expr{ir.NewVar("i")},
		})
		assert.False(t, IsSpatialLoop(a, loops[0]))
	})

	t.Run("reduction driven through compound binding", func(t *testing.T) {
		a, loops := chain(t, 2, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "r", IsReduce: true}},
			Bindings: []*ir.Expr{ir.NewAdd(ir.NewMul(ir.NewVar("i"), ir.NewInt(4)), ir.NewVar("j"))},
		})
		assert.False(t, IsSpatialLoop(a, loops[0]))
		assert.False(t, IsSpatialLoop(a, loops[1]))
	})

	t.Run("pure analysis is stable", func(t *testing.T) {
		a, loops := chain(t, 2, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "i0"}, {Name: "r", IsReduce: true}},
			Bindings: []*ir.Expr{ir.NewVar("i"), ir.NewVar("j")},
		})
		first := IsSpatialLoop(a, loops[0])
		assert.Equal(t, first, IsSpatialLoop(a, loops[0]))
		firstDepth := BindableDepth(a, loops[0])
		assert.Equal(t, firstDepth, BindableDepth(a, loops[0]))
	})
}

func TestBindableDepth(t *testing.T) {
	t.Run("stops at reduction-driving loop", func(t *testing.T) {
		// i, j spatial; k drives the reduction axis.
		a, loops := chain(t, 3, ir.Block{
			Name:     "C",
			IterVars: []ir.IterVar{{Name: "i0"}, {Name: "j0"}, {Name: "reduce_k", IsReduce: true}},
			Bindings: []*ir.Expr{ir.NewVar("i"), ir.NewVar("j"), ir.NewVar("k")},
		})
		assert.Equal(t, 2, BindableDepth(a, loops[0]))
	})

	t.Run("stops at already-bound loop", func(t *testing.T) {
		a, loops := chain(t, 3, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "i0"}},
			Bindings: []*ir.Expr{ir.NewVar("i")},
		})
		a.BindLoop(loops[2], ir.ForGPUThread)
		assert.Equal(t, 2, BindableDepth(a, loops[0]))
	})

	t.Run("stops counting after a branch point", func(t *testing.T) {
		a := ir.NewArena()
		b1 := a.AddBlock(ir.Block{Name: "B1"})
		b2 := a.AddBlock(ir.Block{Name: "B2"})
		j := a.AddLoop(ir.Loop{Var: "j", Extent: ir.StaticExtent(4), Body: []ir.NodeID{b1}})
		// i has two statements: the chain is ambiguous below it, but i
		// itself still counts.
		i := a.AddLoop(ir.Loop{Var: "i", Extent: ir.StaticExtent(4), Body: []ir.NodeID{j, b2}})
		a.SetRoots(i)
		assert.Equal(t, 1, BindableDepth(a, i))
	})

	t.Run("zero when outermost loop is unusable", func(t *testing.T) {
		a, loops := chain(t, 2, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "reduce_r"}},
			Bindings: []*ir.Expr{ir.NewVar("i")},
		})
		assert.Equal(t, 0, BindableDepth(a, loops[0]))
	})

	t.Run("full chain when nothing stops it", func(t *testing.T) {
		a, loops := chain(t, 4, ir.Block{
			Name:     "B",
			IterVars: []ir.IterVar{{Name: "i0"}},
			Bindings: []*ir.Expr{ir.NewVar("i")},
		})
		assert.Equal(t, 4, BindableDepth(a, loops[0]))
	})

	t.Run("empty loop body is an IR defect", func(t *testing.T) {
		a := ir.NewArena()
		i := a.AddLoop(ir.Loop{Var: "i", Extent: ir.StaticExtent(4)})
		a.SetRoots(i)
		assert.Panics(t, func() { BindableDepth(a, i) })
	})

	t.Run("mismatched block bindings are an IR defect", func(t *testing.T) {
		a := ir.NewArena()
		require.Panics(t, func() {
			a.AddBlock(ir.Block{Name: "B", IterVars: []ir.IterVar{{Name: "i0"}}})
		})
	})
}
