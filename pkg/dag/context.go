package dag

import (
	"slices"
	"strconv"
)

// Context is a read-only index over the nodes reachable from a set of
// terminals: a stable label per node and the streams consuming each node.
// It is derived per compilation and never mutated afterwards.
type Context struct {
	nodes    []Node
	labels   map[Node]string
	outgoing map[Node][]Stream
}

// NewContext walks the graph from terminals, visiting the inputs of a node
// (in order) before the node itself. Labels are assigned in that order:
// inputs are numbered 0, 1, ... to match their -i position; filters are
// s0, s1, ...; outputs o0, globals g0, merges m0.
func NewContext(terminals ...Node) *Context {
	c := &Context{
		labels:   make(map[Node]string),
		outgoing: make(map[Node][]Stream),
	}

	visited := make(map[Node]bool)
	var visit func(n Node)
	visit = func(n Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, s := range n.Upstream() {
			visit(s.Node)
		}
		c.nodes = append(c.nodes, n)
	}
	for _, t := range terminals {
		if t != nil {
			visit(t)
		}
	}

	counters := make(map[Kind]int)
	for _, n := range c.nodes {
		k := n.Kind()
		c.labels[n] = labelPrefix(k) + strconv.Itoa(counters[k])
		counters[k]++
	}

	seen := make(map[Stream]bool)
	for _, n := range c.nodes {
		for _, s := range n.Upstream() {
			if seen[s] {
				continue
			}
			seen[s] = true
			c.outgoing[s.Node] = append(c.outgoing[s.Node], s)
		}
	}
	for _, streams := range c.outgoing {
		slices.SortStableFunc(streams, func(a, b Stream) int {
			if a.Index != b.Index {
				return a.Index - b.Index
			}
			return int(a.Selector) - int(b.Selector)
		})
	}

	return c
}

func labelPrefix(k Kind) string {
	switch k {
	case KindInput:
		return ""
	case KindFilter:
		return "s"
	case KindOutput:
		return "o"
	case KindGlobal:
		return "g"
	default:
		return "m"
	}
}

// Nodes returns the reachable nodes in dependency order.
func (c *Context) Nodes() []Node {
	return append([]Node(nil), c.nodes...)
}

// Contains reports whether n is reachable from the terminals.
func (c *Context) Contains(n Node) bool {
	_, ok := c.labels[n]
	return ok
}

// NodeLabel returns the label of n. It panics with *LabelResolutionError if n
// is not part of the context.
func (c *Context) NodeLabel(n Node) string {
	label, ok := c.labels[n]
	if !ok {
		var k Kind
		if n != nil {
			k = n.Kind()
		}
		panic(&LabelResolutionError{Kind: k})
	}
	return label
}

// Outgoing returns the distinct streams consuming n, ordered by output index.
func (c *Context) Outgoing(n Node) []Stream {
	return append([]Stream(nil), c.outgoing[n]...)
}
