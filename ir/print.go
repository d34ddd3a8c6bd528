package ir

import (
	"fmt"
	"strings"
)

// String renders the nest as deterministic text. Replay correctness is
// checked by comparing this form for two schedules.
func (a *Arena) String() string {
	var sb strings.Builder
	for _, r := range a.roots {
		a.print(&sb, r, 0)
	}
	return sb.String()
}

// PrintNode renders one subtree; useful in diagnostics.
func (a *Arena) PrintNode(id NodeID) string {
	var sb strings.Builder
	a.print(&sb, id, 0)
	return sb.String()
}

func (a *Arena) print(sb *strings.Builder, id NodeID, depth int) {
	indent := strings.Repeat("  ", depth)
	if a.IsLoop(id) {
		l := a.Loop(id)
		fmt.Fprintf(sb, "%sfor<%s>(%s, 0, %s) {\n", indent, l.Kind, l.Var, l.Extent)
		for _, c := range l.Body {
			a.print(sb, c, depth+1)
		}
		fmt.Fprintf(sb, "%s}\n", indent)
		return
	}
	b := a.Block(id)
	binds := make([]string, len(b.IterVars))
	for i, iv := range b.IterVars {
		name := iv.Name
		if iv.IsReduce {
			name = "reduce(" + name + ")"
		}
		binds[i] = fmt.Sprintf("%s = %s", name, b.Bindings[i])
	}
	stmt := b.Stmt
	if stmt == "" {
		stmt = ";"
	}
	fmt.Fprintf(sb, "%sblock(%s)[%s] { %s }\n", indent, b.Name, strings.Join(binds, ", "), stmt)
}
