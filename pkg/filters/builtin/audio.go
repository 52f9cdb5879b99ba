package builtin

import (
	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
)

var (
	volumeFilter = &filters.Descriptor{
		Name:        "volume",
		Category:    filters.CategoryAudio,
		Description: "Change audio volume (factor or dB, e.g. 0.5 or 6dB)",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
		Options: []filters.OptionDescriptor{
			expr("volume", "Volume expression", true),
		},
	}

	atrimFilter = &filters.Descriptor{
		Name:        "atrim",
		Category:    filters.CategoryTimeline,
		Description: "Keep a section of the audio",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
		Options:     trimOptions,
		Validate:    validateTrim,
	}

	asetptsFilter = &filters.Descriptor{
		Name:        "asetpts",
		Category:    filters.CategoryTimeline,
		Description: "Rewrite audio timestamps",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
		Options: []filters.OptionDescriptor{
			{Name: "expr", Type: filters.TypeString, Required: true, Description: "Timestamp expression, e.g. PTS-STARTPTS"},
		},
	}

	aresampleFilter = &filters.Descriptor{
		Name:        "aresample",
		Category:    filters.CategoryAudio,
		Description: "Resample audio",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
		Options: []filters.OptionDescriptor{
			{Name: "osr", Type: filters.TypeInt, Required: true, Description: "Output sample rate", Validation: &filters.ValidationRules{Min: filters.Float(1)}},
			{Name: "async", Type: filters.TypeInt, Description: "Stretch or squeeze samples to match timestamps", Validation: &filters.ValidationRules{Min: filters.Float(0)}},
		},
	}

	aformatFilter = &filters.Descriptor{
		Name:        "aformat",
		Category:    filters.CategoryAudio,
		Description: "Constrain sample format, rate and channel layout",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
		Options: []filters.OptionDescriptor{
			{Name: "sample_fmts", Type: filters.TypeString, Description: "'|'-separated sample formats"},
			{Name: "sample_rates", Type: filters.TypeString, Description: "'|'-separated sample rates"},
			{Name: "channel_layouts", Type: filters.TypeString, Description: "'|'-separated channel layouts"},
		},
	}

	loudnormFilter = &filters.Descriptor{
		Name:        "loudnorm",
		Category:    filters.CategoryAudio,
		Description: "EBU R128 loudness normalization",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
		Options: []filters.OptionDescriptor{
			{Name: "I", Type: filters.TypeFloat, Default: -24.0, Description: "Integrated loudness target (LUFS)", Validation: &filters.ValidationRules{Min: filters.Float(-70), Max: filters.Float(-5)}},
			{Name: "LRA", Type: filters.TypeFloat, Default: 7.0, Description: "Loudness range target (LU)", Validation: &filters.ValidationRules{Min: filters.Float(1), Max: filters.Float(50)}},
			{Name: "TP", Type: filters.TypeFloat, Default: -2.0, Description: "Maximum true peak (dBTP)", Validation: &filters.ValidationRules{Min: filters.Float(-9), Max: filters.Float(0)}},
			enum("print_format", "none", "Statistics output", "none", "json", "summary"),
		},
	}

	adelayFilter = &filters.Descriptor{
		Name:        "adelay",
		Category:    filters.CategoryAudio,
		Description: "Delay audio channels",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
		Options: []filters.OptionDescriptor{
			{Name: "delays", Type: filters.TypeString, Required: true, Description: "'|'-separated delays in milliseconds"},
			{Name: "all", Type: filters.TypeBool, Default: false, Description: "Use the last delay for all remaining channels"},
		},
	}

	anullFilter = &filters.Descriptor{
		Name:        "anull",
		Category:    filters.CategoryAudio,
		Description: "Pass audio through unchanged",
		Inputs:      []dag.StreamType{audio},
		Outputs:     []dag.StreamType{audio},
	}
)

func init() {
	register(volumeFilter, atrimFilter, asetptsFilter, aresampleFilter, aformatFilter,
		loudnormFilter, adelayFilter, anullFilter)
}

// Volume scales an audio stream by volume (a factor or "6dB").
func Volume(in dag.Stream, volume any) (*dag.FilterNode, error) {
	return apply("volume", in, filters.Params{"volume": volume})
}

// ATrim keeps a section of an audio stream.
func ATrim(in dag.Stream, p filters.Params) (*dag.FilterNode, error) { return apply("atrim", in, p) }

// ASetPTS rewrites audio timestamps with expr.
func ASetPTS(in dag.Stream, expr string) (*dag.FilterNode, error) {
	return apply("asetpts", in, filters.Params{"expr": expr})
}

// AResample resamples an audio stream to rate Hz.
func AResample(in dag.Stream, rate int) (*dag.FilterNode, error) {
	return apply("aresample", in, filters.Params{"osr": rate})
}

func AFormat(in dag.Stream, p filters.Params) (*dag.FilterNode, error) {
	return apply("aformat", in, p)
}

// Loudnorm normalizes loudness in a single pass.
func Loudnorm(in dag.Stream, p filters.Params) (*dag.FilterNode, error) {
	return apply("loudnorm", in, p)
}

func ADelay(in dag.Stream, p filters.Params) (*dag.FilterNode, error) { return apply("adelay", in, p) }

func ANull(in dag.Stream) (*dag.FilterNode, error) { return apply("anull", in, nil) }
