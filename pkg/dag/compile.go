package dag

import (
	"fmt"
	"strings"
)

// Compile renders the argument vector (without the executable name) for the
// graph reachable from terminals.
func Compile(terminals ...Node) []string {
	return NewContext(terminals...).Compile()
}

// Command is Compile prefixed with the executable name.
func Command(name string, terminals ...Node) []string {
	return append([]string{name}, Compile(terminals...)...)
}

// Compile renders the argument vector: inputs, the -filter_complex graph when
// any filter is reachable, outputs, then global options. Within each group
// nodes keep dependency order.
func (c *Context) Compile() []string {
	var inputs, chains, outputs, globals []string
	for _, n := range c.nodes {
		switch n := n.(type) {
		case *InputNode:
			inputs = append(inputs, n.Args(c)...)
		case *FilterNode:
			chains = append(chains, strings.Join(n.Args(c), ""))
		case *OutputNode:
			outputs = append(outputs, n.Args(c)...)
		case *GlobalNode:
			globals = append(globals, n.Args(c)...)
		case *MergeOutputsNode:
		default:
			panic(fmt.Sprintf("dag: unknown node type %T", n))
		}
	}

	args := make([]string, 0, len(inputs)+len(outputs)+len(globals)+2)
	args = append(args, inputs...)
	if len(chains) > 0 {
		args = append(args, "-filter_complex", strings.Join(chains, ";"))
	}
	args = append(args, outputs...)
	return append(args, globals...)
}

// Filtergraph returns the -filter_complex description, or "" when the graph
// has no filters.
func (c *Context) Filtergraph() string {
	var chains []string
	for _, n := range c.nodes {
		if f, ok := n.(*FilterNode); ok {
			chains = append(chains, strings.Join(f.Args(c), ""))
		}
	}
	return strings.Join(chains, ";")
}
