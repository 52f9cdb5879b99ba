// Package dag is the filtergraph intermediate representation.
//
// A graph is built bottom-up from immutable nodes: an InputNode opens a media
// resource, FilterNodes transform streams, OutputNodes write them, and
// GlobalNode / MergeOutputsNode decorate or group finished outputs. Nodes are
// connected through Stream values, which reference a producing node plus an
// optional output index and media selector.
//
// Every structural rule (input arity, stream media type, output index bounds)
// is checked when a node or stream is constructed. Compile never fails: it
// labels the reachable nodes, walks them in dependency order and renders the
// ffmpeg argument vector, including the -filter_complex description.
//
//	in := dag.NewInput("in.mp4")
//	scaled, _ := dag.NewFilter(dag.FilterConfig{
//		Name:          "scale",
//		Inputs:        []dag.Stream{in.Stream()},
//		InputTypings:  []dag.StreamType{dag.StreamTypeVideo},
//		OutputTypings: []dag.StreamType{dag.StreamTypeVideo},
//		Options:       []dag.Option{dag.Opt("w", 1280), dag.Opt("h", 720)},
//	})
//	v, _ := scaled.Video(0)
//	out, _ := dag.NewOutput("out.mp4", []dag.Stream{v})
//	args := dag.Compile(out)
//	// [-i in.mp4 -filter_complex [0]scale=w=1280:h=720[s0] -map [s0] out.mp4]
package dag
