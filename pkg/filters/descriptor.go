package filters

import (
	"github.com/chicogong/ffgraph/pkg/dag"
)

// Category groups filters for listing.
type Category string

const (
	CategoryTimeline Category = "timeline" // trim, concat, split
	CategoryAudio    Category = "audio"    // loudnorm, mix, volume
	CategoryVideo    Category = "video"    // scale, crop, transpose
	CategoryGraphics Category = "graphics" // overlay, drawtext
)

// Descriptor describes one ffmpeg filter: its stream typings and the options
// it accepts, in the order they are rendered.
type Descriptor struct {
	Name        string
	Category    Category
	Description string

	// Inputs and Outputs are the static typings. nil means dynamic.
	Inputs  []dag.StreamType
	Outputs []dag.StreamType

	Options []OptionDescriptor

	// Typings derives the typings from the converted params, for filters whose
	// stream count is an option (split, amix, concat). It overrides Inputs
	// and Outputs when set.
	Typings func(p Params) (in, out []dag.StreamType, err error)

	// Validate runs cross-option checks after each option was converted and
	// checked on its own.
	Validate func(p Params) error
}

// OptionDescriptor describes a filter option.
type OptionDescriptor struct {
	Name        string
	Type        ParameterType
	Required    bool
	Default     any
	Description string

	Validation *ValidationRules
}

// Option returns the descriptor of the named option.
func (d *Descriptor) Option(name string) (*OptionDescriptor, bool) {
	for i := range d.Options {
		if d.Options[i].Name == name {
			return &d.Options[i], true
		}
	}
	return nil, false
}

// IsDynamic reports whether the output typings are only known from params.
func (d *Descriptor) IsDynamic() bool {
	return d.Typings != nil || d.Outputs == nil
}

// MaxStreams bounds the stream count a filter may derive from its options.
const MaxStreams = 1024

// Repeat returns n copies of t.
func Repeat(t dag.StreamType, n int) []dag.StreamType {
	out := make([]dag.StreamType, n)
	for i := range out {
		out[i] = t
	}
	return out
}
