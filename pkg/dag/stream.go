package dag

import (
	"strconv"
	"strings"
)

// NoIndex marks a stream that addresses its producer as a whole.
const NoIndex = -1

// Stream is a non-owning reference to an output of a node. Streams are plain
// comparable values and may be used as map keys.
type Stream struct {
	Node     Node
	Index    int
	Selector StreamType
}

// Type resolves the media type carried by the stream: the selector when set,
// otherwise the declared output typing of the producer, otherwise
// StreamTypeAny.
func (s Stream) Type() StreamType {
	if s.Selector != StreamTypeAny {
		return s.Selector
	}
	if f, ok := s.Node.(*FilterNode); ok && f.outputTypings != nil && s.Index >= 0 && s.Index < len(f.outputTypings) {
		return f.outputTypings[s.Index]
	}
	return StreamTypeAny
}

// Label renders the bracketed filtergraph handle of the stream, e.g. "[0:v]",
// "[s1]" or "[s2#1]".
func (s Stream) Label(ctx *Context) string {
	return "[" + s.specifier(ctx) + "]"
}

// specifier is the label without brackets. The output index is elided when
// the producer has exactly one unambiguous output.
func (s Stream) specifier(ctx *Context) string {
	var b strings.Builder
	b.WriteString(ctx.NodeLabel(s.Node))
	if s.Index != NoIndex && !singleOutput(s.Node) {
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(s.Index))
	}
	if sel := s.Selector.Selector(); sel != "" {
		b.WriteByte(':')
		b.WriteString(sel)
	}
	return b.String()
}

// mapSpecifier is the argument of -map: input streams are addressed directly
// ("0:v"), filtergraph outputs through their label ("[s0]").
func (s Stream) mapSpecifier(ctx *Context) string {
	if _, ok := s.Node.(*InputNode); ok {
		return s.specifier(ctx)
	}
	return s.Label(ctx)
}

func singleOutput(n Node) bool {
	switch n := n.(type) {
	case *InputNode:
		return true
	case *FilterNode:
		return n.outputTypings != nil && len(n.outputTypings) == 1
	default:
		return false
	}
}

// checkMediaStream validates a stream consumed by a filter or output node.
func checkMediaStream(owner string, pos int, s Stream) error {
	if s.Node == nil {
		return &InvalidStreamError{Node: owner, Position: pos, Reason: "stream has no source node"}
	}
	if !s.Selector.valid() {
		return &InvalidStreamError{Node: owner, Position: pos, Reason: "unknown selector " + s.Selector.String()}
	}
	switch n := s.Node.(type) {
	case *InputNode:
		if s.Index != NoIndex {
			return &InvalidStreamError{Node: owner, Position: pos, Reason: "input streams are addressed by selector, not index"}
		}
	case *FilterNode:
		if s.Index == NoIndex {
			return &InvalidStreamError{Node: owner, Position: pos, Reason: "filter " + n.name + " stream has no output index"}
		}
		if s.Index < 0 || (n.outputTypings != nil && s.Index >= len(n.outputTypings)) {
			return &IndexOutOfRangeError{Filter: n.name, Type: StreamTypeAny, Index: s.Index, Count: len(n.outputTypings)}
		}
		if n.outputTypings != nil && s.Selector != StreamTypeAny && s.Selector != n.outputTypings[s.Index] {
			return &InvalidStreamError{Node: owner, Position: pos, Reason: "selector " + s.Selector.String() + " on " + n.outputTypings[s.Index].String() + " output of filter " + n.name}
		}
	default:
		return &InvalidStreamError{Node: owner, Position: pos, Reason: "cannot consume the result of a " + s.Node.Kind().String() + " node"}
	}
	return nil
}

// checkResultStream validates a stream consumed by a global or merge node.
func checkResultStream(owner string, pos int, s Stream) error {
	if s.Node == nil {
		return &InvalidStreamError{Node: owner, Position: pos, Reason: "stream has no source node"}
	}
	switch s.Node.(type) {
	case *OutputNode, *GlobalNode, *MergeOutputsNode:
	default:
		return &InvalidStreamError{Node: owner, Position: pos, Reason: "expected an output, got a " + s.Node.Kind().String() + " node"}
	}
	if s.Index != NoIndex || s.Selector != StreamTypeAny {
		return &InvalidStreamError{Node: owner, Position: pos, Reason: "output streams take no index or selector"}
	}
	return nil
}
