package dag

import "fmt"

// GraphTypeError reports a filter input whose media type does not match the
// declared input typing.
type GraphTypeError struct {
	Filter   string
	Position int
	Expected StreamType
	Actual   StreamType
}

func (e *GraphTypeError) Error() string {
	return fmt.Sprintf("filter %s: input %d: expected %s stream, got %s", e.Filter, e.Position, e.Expected, e.Actual)
}

// ArityError reports a wrong number of input streams.
type ArityError struct {
	Node     string
	Expected int
	Actual   int
	// AtLeast is set when Expected is a lower bound.
	AtLeast bool
}

func (e *ArityError) Error() string {
	if e.AtLeast {
		return fmt.Sprintf("%s: expected at least %d input streams, got %d", e.Node, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: expected %d input streams, got %d", e.Node, e.Expected, e.Actual)
}

// UnknownArityError is returned by typed accessors on a filter whose outputs
// are only known at run time.
type UnknownArityError struct {
	Filter string
}

func (e *UnknownArityError) Error() string {
	return fmt.Sprintf("filter %s: output typings are dynamic, typed outputs cannot be selected", e.Filter)
}

// IndexOutOfRangeError reports an output index beyond the declared outputs.
// Type is StreamTypeAny for absolute indices.
type IndexOutOfRangeError struct {
	Filter string
	Type   StreamType
	Index  int
	Count  int
}

func (e *IndexOutOfRangeError) Error() string {
	if e.Type == StreamTypeAny {
		return fmt.Sprintf("filter %s: output index %d out of range (%d outputs)", e.Filter, e.Index, e.Count)
	}
	return fmt.Sprintf("filter %s: %s output %d out of range (%d %s outputs)", e.Filter, e.Type, e.Index, e.Count, e.Type)
}

// InvalidStreamError reports a stream that cannot be consumed where it was
// passed: no node, a wrong producer kind, or a misplaced index or selector.
type InvalidStreamError struct {
	Node     string
	Position int
	Reason   string
}

func (e *InvalidStreamError) Error() string {
	return fmt.Sprintf("%s: input %d: %s", e.Node, e.Position, e.Reason)
}

// LabelResolutionError is raised (as a panic) when a node is looked up in a
// Context that does not contain it. It always indicates a bug in graph
// assembly, never bad user input.
type LabelResolutionError struct {
	Kind Kind
}

func (e *LabelResolutionError) Error() string {
	return fmt.Sprintf("%s node is not reachable from the compiled terminals", e.Kind)
}
