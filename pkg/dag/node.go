package dag

import (
	"fmt"
	"sync"
)

// Node is one stage of the graph. The set of implementations is closed:
// *InputNode, *FilterNode, *OutputNode, *GlobalNode and *MergeOutputsNode.
//
// Nodes are immutable after construction. Identity (labels, traversal) is by
// pointer; structural equality is by Hash.
type Node interface {
	Kind() Kind
	// Options returns a copy of the node's ordered options.
	Options() []Option
	// Upstream returns the streams this node consumes, in order.
	Upstream() []Stream
	// Hash is a content digest covering the node and everything upstream.
	Hash() [32]byte
	// Args renders the node's contribution to the argument vector.
	Args(ctx *Context) []string

	sealed()
}

type base struct {
	options []Option

	hashOnce sync.Once
	hash     [32]byte
}

func (b *base) Options() []Option { return copyOptions(b.options) }

func (*base) sealed() {}

// InputNode is a graph source reading a media resource.
type InputNode struct {
	base
	filename string
}

// NewInput opens filename with the given input options.
func NewInput(filename string, opts ...Option) *InputNode {
	return &InputNode{base: base{options: copyOptions(opts)}, filename: filename}
}

func (n *InputNode) Kind() Kind         { return KindInput }
func (n *InputNode) Filename() string   { return n.filename }
func (n *InputNode) Upstream() []Stream { return nil }

// Stream addresses every stream of the input.
func (n *InputNode) Stream() Stream { return Stream{Node: n, Index: NoIndex} }

// Video addresses the video streams of the input ("0:v").
func (n *InputNode) Video() Stream {
	return Stream{Node: n, Index: NoIndex, Selector: StreamTypeVideo}
}

// Audio addresses the audio streams of the input ("0:a").
func (n *InputNode) Audio() Stream {
	return Stream{Node: n, Index: NoIndex, Selector: StreamTypeAudio}
}

// FilterConfig describes a filter node to construct. A nil InputTypings
// accepts any number of inputs of any type; a nil OutputTypings means the
// number of outputs is only known at run time.
type FilterConfig struct {
	Name          string
	Inputs        []Stream
	InputTypings  []StreamType
	OutputTypings []StreamType
	Options       []Option
}

// FilterNode is an internal transformation of the graph.
type FilterNode struct {
	base
	name          string
	inputs        []Stream
	inputTypings  []StreamType
	outputTypings []StreamType
}

// NewFilter validates cfg and returns the filter node. On error no node is
// returned.
func NewFilter(cfg FilterConfig) (*FilterNode, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("filter name is required")
	}
	owner := "filter " + cfg.Name
	for i, t := range cfg.InputTypings {
		if t != StreamTypeVideo && t != StreamTypeAudio {
			return nil, fmt.Errorf("%s: input typing %d: invalid type %s", owner, i, t)
		}
	}
	for i, t := range cfg.OutputTypings {
		if t != StreamTypeVideo && t != StreamTypeAudio {
			return nil, fmt.Errorf("%s: output typing %d: invalid type %s", owner, i, t)
		}
	}

	for i, s := range cfg.Inputs {
		if err := checkMediaStream(owner, i, s); err != nil {
			return nil, err
		}
	}

	if cfg.InputTypings != nil {
		if len(cfg.Inputs) != len(cfg.InputTypings) {
			return nil, &ArityError{Node: owner, Expected: len(cfg.InputTypings), Actual: len(cfg.Inputs)}
		}
		for i, s := range cfg.Inputs {
			actual := s.Type()
			if actual != StreamTypeAny && actual != cfg.InputTypings[i] {
				return nil, &GraphTypeError{Filter: cfg.Name, Position: i, Expected: cfg.InputTypings[i], Actual: actual}
			}
		}
	}

	return &FilterNode{
		base:          base{options: copyOptions(cfg.Options)},
		name:          cfg.Name,
		inputs:        append([]Stream(nil), cfg.Inputs...),
		inputTypings:  copyTypings(cfg.InputTypings),
		outputTypings: copyTypings(cfg.OutputTypings),
	}, nil
}

func (n *FilterNode) Kind() Kind   { return KindFilter }
func (n *FilterNode) Name() string { return n.name }

func (n *FilterNode) Upstream() []Stream { return append([]Stream(nil), n.inputs...) }

// InputTypings returns the declared input types, or nil when dynamic.
func (n *FilterNode) InputTypings() []StreamType { return copyTypings(n.inputTypings) }

// OutputTypings returns the declared output types, or nil when dynamic.
func (n *FilterNode) OutputTypings() []StreamType { return copyTypings(n.outputTypings) }

// Video returns the i-th video output (counting video outputs only).
func (n *FilterNode) Video(i int) (Stream, error) { return n.typed(StreamTypeVideo, i) }

// Audio returns the i-th audio output (counting audio outputs only).
func (n *FilterNode) Audio(i int) (Stream, error) { return n.typed(StreamTypeAudio, i) }

func (n *FilterNode) typed(t StreamType, i int) (Stream, error) {
	if n.outputTypings == nil {
		return Stream{}, &UnknownArityError{Filter: n.name}
	}
	count := 0
	for idx, typ := range n.outputTypings {
		if typ != t {
			continue
		}
		if count == i {
			return Stream{Node: n, Index: idx}, nil
		}
		count++
	}
	return Stream{}, &IndexOutOfRangeError{Filter: n.name, Type: t, Index: i, Count: count}
}

// Stream returns the output at absolute index i. For dynamic filters any
// non-negative index is accepted.
func (n *FilterNode) Stream(i int) (Stream, error) {
	if i < 0 || (n.outputTypings != nil && i >= len(n.outputTypings)) {
		return Stream{}, &IndexOutOfRangeError{Filter: n.name, Type: StreamTypeAny, Index: i, Count: len(n.outputTypings)}
	}
	return Stream{Node: n, Index: i}, nil
}

// OutputNode is a graph sink writing its input streams to a file.
type OutputNode struct {
	base
	filename string
	inputs   []Stream
}

// NewOutput maps inputs into filename.
func NewOutput(filename string, inputs []Stream, opts ...Option) (*OutputNode, error) {
	owner := "output " + filename
	if len(inputs) == 0 {
		return nil, &ArityError{Node: owner, Expected: 1, Actual: 0, AtLeast: true}
	}
	for i, s := range inputs {
		if err := checkMediaStream(owner, i, s); err != nil {
			return nil, err
		}
	}
	return &OutputNode{
		base:     base{options: copyOptions(opts)},
		filename: filename,
		inputs:   append([]Stream(nil), inputs...),
	}, nil
}

func (n *OutputNode) Kind() Kind         { return KindOutput }
func (n *OutputNode) Filename() string   { return n.filename }
func (n *OutputNode) Upstream() []Stream { return append([]Stream(nil), n.inputs...) }

// Stream references the finished output.
func (n *OutputNode) Stream() Stream { return Stream{Node: n, Index: NoIndex} }

// Global attaches process-wide options to this output.
func (n *OutputNode) Global(opts ...Option) *GlobalNode { return newGlobal(n.Stream(), opts) }

// GlobalNode decorates a finished output with process-wide options.
type GlobalNode struct {
	base
	input Stream
}

// NewGlobal attaches opts to the output referenced by input.
func NewGlobal(input Stream, opts ...Option) (*GlobalNode, error) {
	if err := checkResultStream("global", 0, input); err != nil {
		return nil, err
	}
	return newGlobal(input, opts), nil
}

func newGlobal(input Stream, opts []Option) *GlobalNode {
	return &GlobalNode{base: base{options: copyOptions(opts)}, input: input}
}

func (n *GlobalNode) Kind() Kind         { return KindGlobal }
func (n *GlobalNode) Input() Stream      { return n.input }
func (n *GlobalNode) Upstream() []Stream { return []Stream{n.input} }

// Stream references the decorated output.
func (n *GlobalNode) Stream() Stream { return Stream{Node: n, Index: NoIndex} }

// Global stacks further options.
func (n *GlobalNode) Global(opts ...Option) *GlobalNode { return newGlobal(n.Stream(), opts) }

// MergeOutputsNode groups several outputs into one invocation.
type MergeOutputsNode struct {
	base
	inputs []Stream
}

// NewMerge groups the outputs referenced by inputs.
func NewMerge(inputs ...Stream) (*MergeOutputsNode, error) {
	if len(inputs) == 0 {
		return nil, &ArityError{Node: "merge", Expected: 1, Actual: 0, AtLeast: true}
	}
	for i, s := range inputs {
		if err := checkResultStream("merge", i, s); err != nil {
			return nil, err
		}
	}
	return &MergeOutputsNode{inputs: append([]Stream(nil), inputs...)}, nil
}

// MergeOutputs groups output-producing nodes.
func MergeOutputs(nodes ...Node) (*MergeOutputsNode, error) {
	streams := make([]Stream, len(nodes))
	for i, n := range nodes {
		streams[i] = Stream{Node: n, Index: NoIndex}
	}
	return NewMerge(streams...)
}

func (n *MergeOutputsNode) Kind() Kind         { return KindMerge }
func (n *MergeOutputsNode) Upstream() []Stream { return append([]Stream(nil), n.inputs...) }

// Stream references the grouped outputs.
func (n *MergeOutputsNode) Stream() Stream { return Stream{Node: n, Index: NoIndex} }

// Global attaches process-wide options to the whole group.
func (n *MergeOutputsNode) Global(opts ...Option) *GlobalNode { return newGlobal(n.Stream(), opts) }
