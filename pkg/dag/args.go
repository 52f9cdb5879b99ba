package dag

import "strings"

// Args renders "-key value" pairs for the input options followed by
// "-i filename". Booleans are passed as values.
func (n *InputNode) Args(ctx *Context) []string {
	args := make([]string, 0, 2*len(n.options)+2)
	for _, o := range n.options {
		if IsDefault(o.Value) {
			continue
		}
		v, ok := o.Value.(bool)
		if ok {
			if v {
				args = append(args, "-"+o.Key, "true")
			} else {
				args = append(args, "-"+o.Key, "false")
			}
			continue
		}
		args = append(args, "-"+o.Key, formatValue(o.Value))
	}
	return append(args, "-i", n.filename)
}

// Args renders the filter description as fragments that are concatenated
// into one filtergraph chain: input labels, name and options, output labels.
func (n *FilterNode) Args(ctx *Context) []string {
	var in strings.Builder
	for _, s := range n.inputs {
		in.WriteString(s.Label(ctx))
	}
	var out strings.Builder
	for _, s := range ctx.Outgoing(n) {
		out.WriteString(s.Label(ctx))
	}
	if opts := filterOptions(n.options); opts != "" {
		return []string{in.String(), n.name + "=", opts, out.String()}
	}
	return []string{in.String(), n.name, out.String()}
}

// Args renders one -map per input stream, the output options and the
// destination filename.
func (n *OutputNode) Args(ctx *Context) []string {
	args := make([]string, 0, 2*len(n.inputs)+2*len(n.options)+1)
	for _, s := range n.inputs {
		args = append(args, "-map", s.mapSpecifier(ctx))
	}
	args = appendFlagOptions(args, n.options)
	return append(args, n.filename)
}

// Args renders only the global options.
func (n *GlobalNode) Args(ctx *Context) []string {
	return appendFlagOptions(nil, n.options)
}

// Args is empty: a merge only groups outputs.
func (n *MergeOutputsNode) Args(ctx *Context) []string {
	return nil
}

// appendFlagOptions renders true booleans as bare flags and skips false ones.
func appendFlagOptions(args []string, opts []Option) []string {
	for _, o := range opts {
		if IsDefault(o.Value) {
			continue
		}
		if v, ok := o.Value.(bool); ok {
			if v {
				args = append(args, "-"+o.Key)
			}
			continue
		}
		args = append(args, "-"+o.Key, formatValue(o.Value))
	}
	return args
}
