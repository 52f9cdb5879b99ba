package dag

// Dedup rebuilds the graph under terminal so that structurally equal nodes
// share a single identity. Apply it before compiling to open a file once
// when it was referenced through separately constructed input nodes.
func Dedup(terminal Node) Node {
	out, _ := DedupMapping(terminal)
	return out
}

// DedupMapping is Dedup that also returns, for every node reachable from
// terminal, the node standing for it in the rebuilt graph.
func DedupMapping(terminal Node) (Node, map[Node]Node) {
	canon := make(map[[32]byte]Node)
	r := &rebuilder{
		memo: make(map[Node]Node),
		canon: func(n Node) Node {
			h := n.Hash()
			if existing, ok := canon[h]; ok {
				return existing
			}
			canon[h] = n
			return n
		},
	}
	return r.node(terminal), r.memo
}

// RewriteFilenames rebuilds the graph under terminal with every input and
// output filename passed through fn. fn receives the original node (an
// *InputNode or *OutputNode) and its filename.
func RewriteFilenames(terminal Node, fn func(n Node, filename string) string) Node {
	r := &rebuilder{memo: make(map[Node]Node), filename: fn}
	return r.node(terminal)
}

// rebuilder copies a validated graph bottom-up. Copies skip validation since
// only filenames change and the source graph was already checked.
type rebuilder struct {
	memo     map[Node]Node
	filename func(Node, string) string
	canon    func(Node) Node
}

func (r *rebuilder) rename(n Node, filename string) string {
	if r.filename == nil {
		return filename
	}
	return r.filename(n, filename)
}

func (r *rebuilder) streams(in []Stream) []Stream {
	out := make([]Stream, len(in))
	for i, s := range in {
		out[i] = Stream{Node: r.node(s.Node), Index: s.Index, Selector: s.Selector}
	}
	return out
}

func (r *rebuilder) node(n Node) Node {
	if n == nil {
		return nil
	}
	if done, ok := r.memo[n]; ok {
		return done
	}

	var out Node
	switch n := n.(type) {
	case *InputNode:
		out = &InputNode{base: base{options: copyOptions(n.options)}, filename: r.rename(n, n.filename)}
	case *FilterNode:
		out = &FilterNode{
			base:          base{options: copyOptions(n.options)},
			name:          n.name,
			inputs:        r.streams(n.inputs),
			inputTypings:  copyTypings(n.inputTypings),
			outputTypings: copyTypings(n.outputTypings),
		}
	case *OutputNode:
		out = &OutputNode{base: base{options: copyOptions(n.options)}, filename: r.rename(n, n.filename), inputs: r.streams(n.inputs)}
	case *GlobalNode:
		out = &GlobalNode{base: base{options: copyOptions(n.options)}, input: r.streams([]Stream{n.input})[0]}
	case *MergeOutputsNode:
		out = &MergeOutputsNode{base: base{options: copyOptions(n.options)}, inputs: r.streams(n.inputs)}
	}

	if r.canon != nil {
		out = r.canon(out)
	}
	r.memo[n] = out
	return out
}
