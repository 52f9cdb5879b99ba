package builtin

import (
	"fmt"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
)

var (
	overlayFilter = &filters.Descriptor{
		Name:        "overlay",
		Category:    filters.CategoryGraphics,
		Description: "Draw the second video on top of the first",
		Inputs:      []dag.StreamType{video, video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			expr("x", "Overlay left edge", false),
			expr("y", "Overlay top edge", false),
			enum("eof_action", "repeat", "Action when the overlay ends", "repeat", "endall", "pass"),
			{Name: "shortest", Type: filters.TypeBool, Default: false, Description: "End with the shortest input"},
		},
	}

	splitFilter = &filters.Descriptor{
		Name:        "split",
		Category:    filters.CategoryTimeline,
		Description: "Duplicate a video stream",
		Options: []filters.OptionDescriptor{
			countOption("outputs", 2, 1, "Number of copies"),
		},
		Typings: func(p filters.Params) ([]dag.StreamType, []dag.StreamType, error) {
			return []dag.StreamType{video}, filters.Repeat(video, p.Int("outputs", 2)), nil
		},
	}

	asplitFilter = &filters.Descriptor{
		Name:        "asplit",
		Category:    filters.CategoryTimeline,
		Description: "Duplicate an audio stream",
		Options: []filters.OptionDescriptor{
			countOption("outputs", 2, 1, "Number of copies"),
		},
		Typings: func(p filters.Params) ([]dag.StreamType, []dag.StreamType, error) {
			return []dag.StreamType{audio}, filters.Repeat(audio, p.Int("outputs", 2)), nil
		},
	}

	amixFilter = &filters.Descriptor{
		Name:        "amix",
		Category:    filters.CategoryAudio,
		Description: "Mix audio streams into one",
		Options: []filters.OptionDescriptor{
			countOption("inputs", 2, 1, "Number of inputs"),
			enum("duration", "longest", "Output length", "longest", "shortest", "first"),
			{Name: "dropout_transition", Type: filters.TypeFloat, Default: 2.0, Description: "Volume renormalization time in seconds", Validation: &filters.ValidationRules{Min: filters.Float(0)}},
			{Name: "normalize", Type: filters.TypeBool, Default: true, Description: "Scale inputs to keep the sum in range"},
		},
		Typings: func(p filters.Params) ([]dag.StreamType, []dag.StreamType, error) {
			return filters.Repeat(audio, p.Int("inputs", 2)), []dag.StreamType{audio}, nil
		},
	}

	concatFilter = &filters.Descriptor{
		Name:        "concat",
		Category:    filters.CategoryTimeline,
		Description: "Join segments of v video and a audio streams",
		Options: []filters.OptionDescriptor{
			countOption("n", 2, 1, "Number of segments"),
			countOption("v", 1, 0, "Video streams per segment"),
			countOption("a", 0, 0, "Audio streams per segment"),
			{Name: "unsafe", Type: filters.TypeBool, Default: false, Description: "Allow segments with different formats"},
		},
		Typings: concatTypings,
	}
)

func countOption(name string, def int, lower float64, description string) filters.OptionDescriptor {
	return filters.OptionDescriptor{
		Name:        name,
		Type:        filters.TypeInt,
		Default:     def,
		Description: description,
		Validation:  &filters.ValidationRules{Min: filters.Float(lower), Max: filters.Float(filters.MaxStreams)},
	}
}

// concatTypings lays out n segments of v video then a audio inputs, and
// v video then a audio outputs.
func concatTypings(p filters.Params) ([]dag.StreamType, []dag.StreamType, error) {
	n, v, a := p.Int("n", 2), p.Int("v", 1), p.Int("a", 0)
	if v+a == 0 {
		return nil, nil, fmt.Errorf("at least one of v and a must be positive")
	}
	if n*(v+a) > filters.MaxStreams {
		return nil, nil, &filters.ValidationError{
			Filter:    "concat",
			Parameter: "n",
			Message:   fmt.Sprintf("%d segments of %d streams exceed %d inputs", n, v+a, filters.MaxStreams),
		}
	}
	segment := append(filters.Repeat(video, v), filters.Repeat(audio, a)...)
	in := make([]dag.StreamType, 0, n*len(segment))
	for i := 0; i < n; i++ {
		in = append(in, segment...)
	}
	return in, segment, nil
}

func init() {
	register(overlayFilter, splitFilter, asplitFilter, amixFilter, concatFilter)
}

// Overlay places top over main.
func Overlay(main, top dag.Stream, p filters.Params) (*dag.FilterNode, error) {
	return filters.New("overlay", []dag.Stream{main, top}, p)
}

// Split duplicates a video stream n times.
func Split(in dag.Stream, n int) (*dag.FilterNode, error) {
	return apply("split", in, filters.Params{"outputs": n})
}

// ASplit duplicates an audio stream n times.
func ASplit(in dag.Stream, n int) (*dag.FilterNode, error) {
	return apply("asplit", in, filters.Params{"outputs": n})
}

// AMix mixes the given audio streams. The inputs option is set from len(in).
func AMix(in []dag.Stream, p filters.Params) (*dag.FilterNode, error) {
	params := filters.Params{"inputs": len(in)}
	for k, v := range p {
		if k != "inputs" {
			params[k] = v
		}
	}
	return filters.New("amix", in, params)
}

// Concat joins segments laid out as n groups of v video then a audio streams.
func Concat(in []dag.Stream, n, v, a int) (*dag.FilterNode, error) {
	return filters.New("concat", in, filters.Params{"n": n, "v": v, "a": a})
}
