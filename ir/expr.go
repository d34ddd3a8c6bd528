package ir

import (
	"fmt"
	"strconv"
)

// ExprKind discriminates the node types of an iteration-binding expression.
type ExprKind uint8

const (
	ExprVar ExprKind = iota
	ExprInt
	ExprAdd
	ExprMul
	ExprDiv
	ExprMod
)

// Expr is a small integer expression tree used for the iteration-binding
// expressions that map enclosing loop variables to block iteration axes.
// Fuse and Split rewrite these with div/mod terms, so the set of operators
// is exactly what those rewrites need.
type Expr struct {
	Kind  ExprKind
	Name  string // ExprVar
	Value int    // ExprInt
	A, B  *Expr  // binary kinds
}

// NewVar returns a variable reference expression.
func NewVar(name string) *Expr {
	return &Expr{Kind: ExprVar, Name: name}
}

// NewInt returns an integer literal expression.
func NewInt(v int) *Expr {
	return &Expr{Kind: ExprInt, Value: v}
}

// NewAdd returns a + b.
func NewAdd(a, b *Expr) *Expr { return &Expr{Kind: ExprAdd, A: a, B: b} }

// NewMul returns a * b.
func NewMul(a, b *Expr) *Expr { return &Expr{Kind: ExprMul, A: a, B: b} }

// NewDiv returns a / b (integer division).
func NewDiv(a, b *Expr) *Expr { return &Expr{Kind: ExprDiv, A: a, B: b} }

// NewMod returns a % b.
func NewMod(a, b *Expr) *Expr { return &Expr{Kind: ExprMod, A: a, B: b} }

// Clone returns a deep copy of the expression.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	c := *e
	c.A = e.A.Clone()
	c.B = e.B.Clone()
	return &c
}

// UsesVar reports whether the expression references the named variable.
func (e *Expr) UsesVar(name string) bool {
	if e == nil {
		return false
	}
	if e.Kind == ExprVar {
		return e.Name == name
	}
	return e.A.UsesVar(name) || e.B.UsesVar(name)
}

// Substitute returns the expression with every reference to the named
// variable replaced by a copy of repl. The receiver is not modified.
func (e *Expr) Substitute(name string, repl *Expr) *Expr {
	if e == nil {
		return nil
	}
	if e.Kind == ExprVar {
		if e.Name == name {
			return repl.Clone()
		}
		return e.Clone()
	}
	if e.Kind == ExprInt {
		return e.Clone()
	}
	c := *e
	c.A = e.A.Substitute(name, repl)
	c.B = e.B.Substitute(name, repl)
	return &c
}

func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprVar:
		return e.Name
	case ExprInt:
		return strconv.Itoa(e.Value)
	case ExprAdd:
		return fmt.Sprintf("(%s + %s)", e.A, e.B)
	case ExprMul:
		return fmt.Sprintf("(%s * %s)", e.A, e.B)
	case ExprDiv:
		return fmt.Sprintf("(%s / %s)", e.A, e.B)
	case ExprMod:
		return fmt.Sprintf("(%s %% %s)", e.A, e.B)
	default:
		panic(fmt.Sprintf("ir: unknown expr kind %d", e.Kind))
	}
}
