package trace

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Persisted trace format: an ordered list of step records. Only the step
// list is serialized; the live-handle name table belongs to the recording
// session and never leaves the process.
type stepJSON struct {
	Op      string        `json:"op"`
	Inputs  []operandJSON `json:"inputs,omitempty"`
	Outputs []operandJSON `json:"outputs,omitempty"`
	Attrs   []attrJSON    `json:"attrs,omitempty"`
}

type operandJSON struct {
	Name string   `json:"name"`
	Refs []string `json:"refs"`
}

type attrJSON struct {
	Name string   `json:"name"`
	Kind string   `json:"kind"`
	Int  int      `json:"int,omitempty"`
	Str  string   `json:"string,omitempty"`
	Ints []int    `json:"ints,omitempty"`
	Strs []string `json:"strings,omitempty"`
}

// Encode serializes the step list as JSON.
func Encode(t *Trace) ([]byte, error) {
	steps := make([]stepJSON, len(t.steps))
	for i, s := range t.steps {
		steps[i] = stepJSON{
			Op:      string(s.Op),
			Inputs:  encodeOperands(s.Inputs),
			Outputs: encodeOperands(s.Outputs),
			Attrs:   encodeAttrs(s.Attrs),
		}
	}
	data, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("trace: encoding: %w", err)
	}
	return data, nil
}

// Decode parses a serialized trace. The result has an empty name table;
// it is ready to Replay but not to continue a recording session.
func Decode(data []byte) (*Trace, error) {
	var steps []stepJSON
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("trace: decoding: %w", err)
	}
	t := New()
	for i, s := range steps {
		step := Step{
			Op:      Opcode(s.Op),
			Inputs:  decodeOperands(s.Inputs),
			Outputs: decodeOperands(s.Outputs),
		}
		for _, a := range s.Attrs {
			attr, err := decodeAttr(a)
			if err != nil {
				return nil, fmt.Errorf("trace: decoding step %d: %w", i, err)
			}
			step.Attrs = append(step.Attrs, NamedAttr{Name: a.Name, Attr: attr})
		}
		t.Append(step)
	}
	return t, nil
}

func encodeOperands(ops []Operand) []operandJSON {
	if len(ops) == 0 {
		return nil
	}
	out := make([]operandJSON, len(ops))
	for i, op := range ops {
		out[i] = operandJSON{Name: op.Name, Refs: op.Refs}
	}
	return out
}

func decodeOperands(ops []operandJSON) []Operand {
	if len(ops) == 0 {
		return nil
	}
	out := make([]Operand, len(ops))
	for i, op := range ops {
		out[i] = Operand{Name: op.Name, Refs: op.Refs}
	}
	return out
}

func encodeAttrs(attrs []NamedAttr) []attrJSON {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attrJSON, len(attrs))
	for i, a := range attrs {
		out[i] = attrJSON{
			Name: a.Name,
			Kind: a.Attr.Kind.String(),
			Int:  a.Attr.Int,
			Str:  a.Attr.Str,
			Ints: a.Attr.Ints,
			Strs: a.Attr.Strs,
		}
	}
	return out
}

func decodeAttr(a attrJSON) (Attr, error) {
	switch a.Kind {
	case "int":
		return IntAttr(a.Int), nil
	case "string":
		return StringAttr(a.Str), nil
	case "ints":
		return IntsAttr(a.Ints), nil
	case "strings":
		return StringsAttr(a.Strs), nil
	default:
		return Attr{}, fmt.Errorf("%w: attribute %q has unknown kind %q", ErrBadAttr, a.Name, a.Kind)
	}
}
