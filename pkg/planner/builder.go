package planner

import (
	"fmt"
	"sort"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
	"github.com/chicogong/ffgraph/pkg/schemas"
)

// Graph is a job spec built into filter graph nodes.
type Graph struct {
	// Terminal is the single node reaching every output.
	Terminal dag.Node

	// Inputs and Outputs index the built nodes by job spec id. After
	// deduplication they may hold nodes that Terminal no longer reaches;
	// use IDOf to name nodes of the final graph.
	Inputs  map[string]*dag.InputNode
	Outputs map[string]*dag.OutputNode

	names map[dag.Node]string
}

// IDOf returns the job spec id a node was built from, or "".
func (g *Graph) IDOf(n dag.Node) string {
	return g.names[n]
}

// WithGlobal wraps the terminal in process-wide options, such as the
// ffmpeg flags set by configuration. Empty opts leave the graph unchanged.
func (g *Graph) WithGlobal(opts ...dag.Option) error {
	if len(opts) == 0 {
		return nil
	}
	global, err := dag.NewGlobal(dag.Stream{Node: g.Terminal, Index: dag.NoIndex}, opts...)
	if err != nil {
		return err
	}
	g.Terminal = global
	return nil
}

// Builder builds filter graphs from job specs
type Builder struct {
	registry *filters.Registry
}

// NewBuilder creates a builder resolving operations against registry
func NewBuilder(registry *filters.Registry) *Builder {
	return &Builder{registry: registry}
}

// Build turns a validated job spec into a graph.
func (b *Builder) Build(spec *schemas.JobSpec) (*Graph, error) {
	g := &Graph{
		Inputs:  make(map[string]*dag.InputNode, len(spec.Inputs)),
		Outputs: make(map[string]*dag.OutputNode, len(spec.Outputs)),
		names:   make(map[dag.Node]string),
	}
	var built []dag.Node
	streams := make(map[string]dag.Stream) // operation output id -> stream

	name := func(n dag.Node, id string) {
		if _, ok := g.names[n]; !ok {
			g.names[n] = id
			built = append(built, n)
		}
	}

	resolve := func(ref string) (dag.Stream, error) {
		r, err := schemas.ParseRef(ref)
		if err != nil {
			return dag.Stream{}, err
		}
		if in, ok := g.Inputs[r.ID]; ok {
			switch r.Type {
			case dag.StreamTypeVideo:
				return in.Video(), nil
			case dag.StreamTypeAudio:
				return in.Audio(), nil
			default:
				return in.Stream(), nil
			}
		}
		s, ok := streams[r.ID]
		if !ok {
			return dag.Stream{}, fmt.Errorf("reference '%s' not found", ref)
		}
		// Filter pads carry a single stream; a selector only asserts its type.
		if r.Type != dag.StreamTypeAny && s.Type() != dag.StreamTypeAny && s.Type() != r.Type {
			return dag.Stream{}, fmt.Errorf("reference '%s': stream '%s' is %s", ref, r.ID, s.Type())
		}
		return s, nil
	}

	for _, in := range spec.Inputs {
		node := dag.NewInput(in.Source, inputOptions(in)...)
		g.Inputs[in.ID] = node
		name(node, in.ID)
	}

	for i, op := range spec.Operations {
		where := fmt.Sprintf("operation %d (%s)", i, op.Op)

		d, err := b.registry.Get(op.Op)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}

		refs := op.InputRefs()
		inputs := make([]dag.Stream, len(refs))
		for j, ref := range refs {
			if inputs[j], err = resolve(ref); err != nil {
				return nil, fmt.Errorf("%s: %w", where, err)
			}
		}

		node, err := filters.Apply(d, inputs, filters.Params(op.Params))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}

		ids := op.OutputIDs()
		if len(ids) == 0 {
			return nil, fmt.Errorf("%s: at least one output id is required", where)
		}
		if typings := node.OutputTypings(); typings != nil && len(ids) != len(typings) {
			return nil, fmt.Errorf("%s: declares %d outputs but the filter produces %d", where, len(ids), len(typings))
		}
		for j, id := range ids {
			s, err := node.Stream(j)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", where, err)
			}
			streams[id] = s
		}
		name(node, ids[0])
	}

	if len(spec.Outputs) == 0 {
		return nil, fmt.Errorf("job spec must have at least one output")
	}
	outputs := make([]dag.Node, 0, len(spec.Outputs))
	for i, out := range spec.Outputs {
		where := fmt.Sprintf("output %d (%s)", i, out.ID)

		refs := out.MapRefs()
		mapped := make([]dag.Stream, len(refs))
		for j, ref := range refs {
			s, err := resolve(ref)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", where, err)
			}
			mapped[j] = s
		}

		node, err := dag.NewOutput(out.Destination, mapped, outputOptions(out)...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		g.Outputs[out.ID] = node
		name(node, out.ID)
		outputs = append(outputs, node)
	}

	var terminal dag.Node = outputs[0]
	if len(outputs) > 1 {
		merged, err := dag.MergeOutputs(outputs...)
		if err != nil {
			return nil, err
		}
		terminal = merged
	}

	if len(spec.Global) > 0 {
		global, err := dag.NewGlobal(dag.Stream{Node: terminal, Index: dag.NoIndex}, sortedOptions(spec.Global)...)
		if err != nil {
			return nil, err
		}
		terminal = global
	}

	if spec.Dedup {
		var mapping map[dag.Node]dag.Node
		terminal, mapping = dag.DedupMapping(terminal)
		names := make(map[dag.Node]string, len(built))
		for _, n := range built {
			c, ok := mapping[n]
			if !ok {
				continue
			}
			if _, taken := names[c]; !taken {
				names[c] = g.names[n]
			}
		}
		g.names = names
	}
	g.Terminal = terminal
	return g, nil
}

func inputOptions(in schemas.Input) []dag.Option {
	var opts []dag.Option
	if in.Format != "" {
		opts = append(opts, dag.Opt("f", in.Format))
	}
	if in.StartOffset != nil {
		opts = append(opts, dag.Opt("ss", in.StartOffset.Duration))
	}
	if in.Duration != nil {
		opts = append(opts, dag.Opt("t", in.Duration.Duration))
	}
	return append(opts, sortedOptions(in.Options)...)
}

func outputOptions(out schemas.Output) []dag.Option {
	var opts []dag.Option
	if out.Format != "" {
		opts = append(opts, dag.Opt("f", out.Format))
	}
	if c := out.Codec; c != nil {
		if v := c.Video; v != nil {
			opts = appendSet(opts, "c:v", v.Codec)
			opts = appendSet(opts, "b:v", v.Bitrate)
			if v.CRF != nil {
				opts = append(opts, dag.Opt("crf", *v.CRF))
			}
			opts = appendSet(opts, "preset", v.Preset)
			opts = appendSet(opts, "profile:v", v.Profile)
			opts = appendSet(opts, "pix_fmt", v.PixelFormat)
		}
		if a := c.Audio; a != nil {
			opts = appendSet(opts, "c:a", a.Codec)
			opts = appendSet(opts, "b:a", a.Bitrate)
			if a.SampleRate > 0 {
				opts = append(opts, dag.Opt("ar", a.SampleRate))
			}
			if a.Channels > 0 {
				opts = append(opts, dag.Opt("ac", a.Channels))
			}
		}
	}
	return append(opts, sortedOptions(out.Options)...)
}

func appendSet(opts []dag.Option, key, value string) []dag.Option {
	if value == "" {
		return opts
	}
	return append(opts, dag.Opt(key, value))
}

// sortedOptions turns a document option map into options ordered by key,
// so equal documents compile to equal arguments.
func sortedOptions(m map[string]any) []dag.Option {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]dag.Option, len(keys))
	for i, k := range keys {
		opts[i] = dag.Opt(k, normalize(m[k]))
	}
	return opts
}

// normalize maps decoded document numbers onto integers where exact, so a
// JSON 30 renders as "30" whichever decoder produced it.
func normalize(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
	case int:
		return int64(v)
	case string, bool, int64:
	default:
		return fmt.Sprint(v)
	}
	return v
}
