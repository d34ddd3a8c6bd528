package ir

import (
	"fmt"

	"github.com/goccy/go-json"
)

// JSON nest description, the input format of the replay tool. Example:
//
//	{"roots": [{"loop": {"var": "i", "extent": 32, "body": [
//	  {"block": {"name": "B",
//	             "iter_vars": [{"name": "i0"}],
//	             "bindings": [{"var": "i"}],
//	             "stmt": "B[i0] = A[i0]"}}]}}]}
type nestJSON struct {
	Roots []nodeJSON `json:"roots"`
}

type nodeJSON struct {
	Loop  *loopJSON  `json:"loop,omitempty"`
	Block *blockJSON `json:"block,omitempty"`
}

type loopJSON struct {
	Var       string     `json:"var"`
	Extent    int        `json:"extent,omitempty"`
	ExtentSym string     `json:"extent_sym,omitempty"`
	Bind      string     `json:"bind,omitempty"`
	Body      []nodeJSON `json:"body"`
}

type blockJSON struct {
	Name     string        `json:"name"`
	IterVars []iterVarJSON `json:"iter_vars"`
	Bindings []exprJSON    `json:"bindings"`
	Stmt     string        `json:"stmt,omitempty"`
}

type iterVarJSON struct {
	Name     string `json:"name"`
	IsReduce bool   `json:"is_reduce,omitempty"`
}

// exprJSON is a tagged expression node; exactly one field may be set.
type exprJSON struct {
	Var *string    `json:"var,omitempty"`
	Int *int       `json:"int,omitempty"`
	Add []exprJSON `json:"add,omitempty"`
	Mul []exprJSON `json:"mul,omitempty"`
	Div []exprJSON `json:"div,omitempty"`
	Mod []exprJSON `json:"mod,omitempty"`
}

// DecodeNest parses a JSON nest description into a fresh arena.
func DecodeNest(data []byte) (*Arena, error) {
	var nest nestJSON
	if err := json.Unmarshal(data, &nest); err != nil {
		return nil, fmt.Errorf("ir: parsing nest: %w", err)
	}
	if len(nest.Roots) == 0 {
		return nil, fmt.Errorf("ir: nest has no roots")
	}
	a := NewArena()
	roots := make([]NodeID, len(nest.Roots))
	for i, n := range nest.Roots {
		id, err := decodeNode(a, n)
		if err != nil {
			return nil, err
		}
		roots[i] = id
	}
	a.SetRoots(roots...)
	return a, nil
}

func decodeNode(a *Arena, n nodeJSON) (NodeID, error) {
	switch {
	case n.Loop != nil && n.Block != nil:
		return InvalidNode, fmt.Errorf("ir: nest node is both a loop and a block")
	case n.Loop != nil:
		return decodeLoop(a, n.Loop)
	case n.Block != nil:
		return decodeBlock(a, n.Block)
	default:
		return InvalidNode, fmt.Errorf("ir: nest node is neither a loop nor a block")
	}
}

func decodeLoop(a *Arena, l *loopJSON) (NodeID, error) {
	if l.Var == "" {
		return InvalidNode, fmt.Errorf("ir: loop without a variable name")
	}
	ext := StaticExtent(l.Extent)
	if l.ExtentSym != "" {
		ext = SymbolicExtent(l.ExtentSym)
	} else if l.Extent <= 0 {
		return InvalidNode, fmt.Errorf("ir: loop %q has non-positive extent %d", l.Var, l.Extent)
	}
	kind := ForSerial
	if l.Bind != "" {
		k, ok := KindForTag(l.Bind)
		if !ok {
			return InvalidNode, fmt.Errorf("ir: loop %q has unknown bind tag %q", l.Var, l.Bind)
		}
		kind = k
	}
	body := make([]NodeID, len(l.Body))
	for i, c := range l.Body {
		id, err := decodeNode(a, c)
		if err != nil {
			return InvalidNode, err
		}
		body[i] = id
	}
	return a.AddLoop(Loop{Var: l.Var, Extent: ext, Kind: kind, Body: body}), nil
}

func decodeBlock(a *Arena, b *blockJSON) (NodeID, error) {
	if b.Name == "" {
		return InvalidNode, fmt.Errorf("ir: block without a name")
	}
	if len(b.IterVars) != len(b.Bindings) {
		return InvalidNode, fmt.Errorf("ir: block %q has %d iter vars but %d bindings",
			b.Name, len(b.IterVars), len(b.Bindings))
	}
	ivs := make([]IterVar, len(b.IterVars))
	for i, iv := range b.IterVars {
		if iv.Name == "" {
			return InvalidNode, fmt.Errorf("ir: block %q has an unnamed iter var", b.Name)
		}
		ivs[i] = IterVar{Name: iv.Name, IsReduce: iv.IsReduce}
	}
	binds := make([]*Expr, len(b.Bindings))
	for i, e := range b.Bindings {
		expr, err := decodeExpr(e)
		if err != nil {
			return InvalidNode, fmt.Errorf("ir: block %q binding %d: %w", b.Name, i, err)
		}
		binds[i] = expr
	}
	return a.AddBlock(Block{Name: b.Name, IterVars: ivs, Bindings: binds, Stmt: b.Stmt}), nil
}

func decodeExpr(e exprJSON) (*Expr, error) {
	set := 0
	if e.Var != nil {
		set++
	}
	if e.Int != nil {
		set++
	}
	for _, args := range [][]exprJSON{e.Add, e.Mul, e.Div, e.Mod} {
		if args != nil {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("expression node must set exactly one of var/int/add/mul/div/mod")
	}
	switch {
	case e.Var != nil:
		return NewVar(*e.Var), nil
	case e.Int != nil:
		return NewInt(*e.Int), nil
	}
	var kind ExprKind
	var args []exprJSON
	switch {
	case e.Add != nil:
		kind, args = ExprAdd, e.Add
	case e.Mul != nil:
		kind, args = ExprMul, e.Mul
	case e.Div != nil:
		kind, args = ExprDiv, e.Div
	default:
		kind, args = ExprMod, e.Mod
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("binary expression needs exactly 2 operands, got %d", len(args))
	}
	a, err := decodeExpr(args[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeExpr(args[1])
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: kind, A: a, B: b}, nil
}
