// Package trace records primitive schedule operations as an ordered,
// serializable step list and replays that list against a fresh schedule to
// reconstruct the recorded result deterministically.
package trace

import (
	"fmt"
)

// Opcode names one primitive schedule operation. The set is closed; replay
// dispatch is an exhaustive switch and an unknown opcode is a hard failure.
type Opcode string

const (
	OpGetAllBlocks Opcode = "GetAllBlocks"
	OpGetBlock     Opcode = "GetBlock"
	OpGetLoops     Opcode = "GetLoops"
	OpFuse         Opcode = "Fuse"
	OpSplit        Opcode = "Split"
	OpBind         Opcode = "Bind"
	OpReorder      Opcode = "Reorder"
)

// knownOpcode reports whether op belongs to the closed opcode set.
func knownOpcode(op Opcode) bool {
	switch op {
	case OpGetAllBlocks, OpGetBlock, OpGetLoops, OpFuse, OpSplit, OpBind, OpReorder:
		return true
	}
	return false
}

// Operand is a named, ordered list of symbolic references. Steps use
// operands for both their inputs and their outputs.
type Operand struct {
	Name string
	Refs []string
}

// AttrKind discriminates the closed set of literal attribute kinds.
type AttrKind uint8

const (
	AttrInt AttrKind = iota
	AttrString
	AttrInts
	AttrStrings
)

func (k AttrKind) String() string {
	switch k {
	case AttrInt:
		return "int"
	case AttrString:
		return "string"
	case AttrInts:
		return "ints"
	case AttrStrings:
		return "strings"
	default:
		return fmt.Sprintf("AttrKind(%d)", uint8(k))
	}
}

// Attr is a literal attribute value: an int, a string, or a list of either.
// Attributes carry the parameters of a primitive that are not themselves
// traced expressions, such as split factors or a launch-dimension tag.
type Attr struct {
	Kind AttrKind
	Int  int
	Str  string
	Ints []int
	Strs []string
}

// IntAttr wraps an int literal.
func IntAttr(v int) Attr { return Attr{Kind: AttrInt, Int: v} }

// StringAttr wraps a string literal.
func StringAttr(v string) Attr { return Attr{Kind: AttrString, Str: v} }

// IntsAttr wraps an int-list literal.
func IntsAttr(v []int) Attr { return Attr{Kind: AttrInts, Ints: append([]int(nil), v...)} }

// StringsAttr wraps a string-list literal.
func StringsAttr(v []string) Attr {
	return Attr{Kind: AttrStrings, Strs: append([]string(nil), v...)}
}

// NamedAttr pairs an attribute with its parameter name; steps keep
// attributes ordered.
type NamedAttr struct {
	Name string
	Attr Attr
}

// Step is one recorded primitive invocation. Steps are immutable once
// appended to a trace.
type Step struct {
	Op      Opcode
	Inputs  []Operand
	Outputs []Operand
	Attrs   []NamedAttr
}

// Input returns the refs of the named input operand.
func (s Step) Input(name string) ([]string, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in.Refs, true
		}
	}
	return nil, false
}

// Attr returns the named attribute.
func (s Step) Attr(name string) (Attr, bool) {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a.Attr, true
		}
	}
	return Attr{}, false
}

// IntsAttr returns the named int-list attribute or ErrBadAttr.
func (s Step) IntsAttr(name string) ([]int, error) {
	a, ok := s.Attr(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires attribute %q", ErrBadAttr, s.Op, name)
	}
	if a.Kind != AttrInts {
		return nil, fmt.Errorf("%w: attribute %q of %s is %s, want ints", ErrBadAttr, name, s.Op, a.Kind)
	}
	return a.Ints, nil
}

// StringAttr returns the named string attribute or ErrBadAttr.
func (s Step) StringAttr(name string) (string, error) {
	a, ok := s.Attr(name)
	if !ok {
		return "", fmt.Errorf("%w: %s requires attribute %q", ErrBadAttr, s.Op, name)
	}
	if a.Kind != AttrString {
		return "", fmt.Errorf("%w: attribute %q of %s is %s, want string", ErrBadAttr, name, s.Op, a.Kind)
	}
	return a.Str, nil
}

// outputRefs flattens the step's output refs in order.
func (s Step) outputRefs() []string {
	var refs []string
	for _, out := range s.Outputs {
		refs = append(refs, out.Refs...)
	}
	return refs
}
