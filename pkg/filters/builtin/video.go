package builtin

import (
	"fmt"
	"time"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
)

var (
	scaleFilter = &filters.Descriptor{
		Name:        "scale",
		Category:    filters.CategoryVideo,
		Description: "Scale video to the given size (-1 or -2 keeps aspect ratio)",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			expr("w", "Output width", true),
			expr("h", "Output height", true),
			enum("flags", "bicubic", "Scaling algorithm", "fast_bilinear", "bilinear", "bicubic", "neighbor", "area", "lanczos"),
			enum("force_original_aspect_ratio", "disable", "Shrink or grow to keep the input aspect ratio", "disable", "decrease", "increase"),
		},
		Validate: func(p filters.Params) error {
			if p.String("w", "") == "-1" && p.String("h", "") == "-1" {
				return fmt.Errorf("both width and height cannot be -1")
			}
			return nil
		},
	}

	cropFilter = &filters.Descriptor{
		Name:        "crop",
		Category:    filters.CategoryVideo,
		Description: "Crop a w x h rectangle at x, y",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			expr("w", "Crop width", true),
			expr("h", "Crop height", true),
			expr("x", "Left edge (centered by default)", false),
			expr("y", "Top edge (centered by default)", false),
			{Name: "keep_aspect", Type: filters.TypeBool, Default: false, Description: "Keep the display aspect ratio"},
		},
	}

	padFilter = &filters.Descriptor{
		Name:        "pad",
		Category:    filters.CategoryVideo,
		Description: "Pad the frame to w x h, placing the input at x, y",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			expr("w", "Padded width", true),
			expr("h", "Padded height", true),
			expr("x", "Input left edge", false),
			expr("y", "Input top edge", false),
			{Name: "color", Type: filters.TypeString, Default: "black", Description: "Padding color"},
		},
	}

	hflipFilter = &filters.Descriptor{
		Name:        "hflip",
		Category:    filters.CategoryVideo,
		Description: "Mirror the frame horizontally",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
	}

	vflipFilter = &filters.Descriptor{
		Name:        "vflip",
		Category:    filters.CategoryVideo,
		Description: "Flip the frame vertically",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
	}

	transposeFilter = &filters.Descriptor{
		Name:        "transpose",
		Category:    filters.CategoryVideo,
		Description: "Rotate by 90 degrees, optionally flipping",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			enum("dir", "cclock_flip", "Rotation direction", "cclock_flip", "clock", "cclock", "clock_flip"),
		},
	}

	fpsFilter = &filters.Descriptor{
		Name:        "fps",
		Category:    filters.CategoryVideo,
		Description: "Convert to a constant frame rate",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			expr("fps", "Target frame rate (number or ntsc, pal, 30000/1001...)", true),
			enum("round", "near", "Timestamp rounding", "zero", "inf", "down", "up", "near"),
		},
	}

	setptsFilter = &filters.Descriptor{
		Name:        "setpts",
		Category:    filters.CategoryTimeline,
		Description: "Rewrite video timestamps",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			{Name: "expr", Type: filters.TypeString, Required: true, Description: "Timestamp expression, e.g. PTS-STARTPTS"},
		},
	}

	formatFilter = &filters.Descriptor{
		Name:        "format",
		Category:    filters.CategoryVideo,
		Description: "Convert to one of the listed pixel formats",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			{Name: "pix_fmts", Type: filters.TypeString, Required: true, Description: "'|'-separated pixel formats"},
		},
	}

	trimFilter = &filters.Descriptor{
		Name:        "trim",
		Category:    filters.CategoryTimeline,
		Description: "Keep a section of the video",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options:     trimOptions,
		Validate:    validateTrim,
	}

	drawtextFilter = &filters.Descriptor{
		Name:        "drawtext",
		Category:    filters.CategoryGraphics,
		Description: "Draw text on the frame",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
		Options: []filters.OptionDescriptor{
			{Name: "text", Type: filters.TypeString, Required: true, Description: "Text to draw"},
			{Name: "fontfile", Type: filters.TypeString, Description: "Font file path"},
			{Name: "fontsize", Type: filters.TypeExpr, Default: 16, Description: "Font size", Validation: &filters.ValidationRules{Min: filters.Float(1)}},
			{Name: "fontcolor", Type: filters.TypeString, Default: "black", Description: "Font color"},
			expr("x", "Text left edge", false),
			expr("y", "Text top edge", false),
			{Name: "box", Type: filters.TypeBool, Default: false, Description: "Draw a box behind the text"},
			{Name: "boxcolor", Type: filters.TypeString, Default: "white", Description: "Box color"},
		},
	}

	nullFilter = &filters.Descriptor{
		Name:        "null",
		Category:    filters.CategoryVideo,
		Description: "Pass video through unchanged",
		Inputs:      []dag.StreamType{video},
		Outputs:     []dag.StreamType{video},
	}
)

var trimOptions = []filters.OptionDescriptor{
	{Name: "start", Type: filters.TypeDuration, Description: "Start time", Validation: &filters.ValidationRules{Min: filters.Float(0)}},
	{Name: "end", Type: filters.TypeDuration, Description: "End time", Validation: &filters.ValidationRules{Min: filters.Float(0)}},
	{Name: "duration", Type: filters.TypeDuration, Description: "Maximum duration", Validation: &filters.ValidationRules{Min: filters.Float(0)}},
}

func validateTrim(p filters.Params) error {
	if p.Has("end") && p.Has("duration") {
		return fmt.Errorf("cannot specify both 'duration' and 'end'")
	}
	start, hasStart := p["start"].(time.Duration)
	end, hasEnd := p["end"].(time.Duration)
	if hasStart && hasEnd && end <= start {
		return fmt.Errorf("end %v must be after start %v", end, start)
	}
	return nil
}

func init() {
	register(scaleFilter, cropFilter, padFilter, hflipFilter, vflipFilter, transposeFilter,
		fpsFilter, setptsFilter, formatFilter, trimFilter, drawtextFilter, nullFilter)
}

// Scale resizes a video stream.
func Scale(in dag.Stream, p filters.Params) (*dag.FilterNode, error) { return apply("scale", in, p) }

// Crop cuts a rectangle out of a video stream.
func Crop(in dag.Stream, p filters.Params) (*dag.FilterNode, error) { return apply("crop", in, p) }

// Pad grows the frame of a video stream.
func Pad(in dag.Stream, p filters.Params) (*dag.FilterNode, error) { return apply("pad", in, p) }

func HFlip(in dag.Stream) (*dag.FilterNode, error) { return apply("hflip", in, nil) }

func VFlip(in dag.Stream) (*dag.FilterNode, error) { return apply("vflip", in, nil) }

// Transpose rotates a video stream by 90 degrees.
func Transpose(in dag.Stream, p filters.Params) (*dag.FilterNode, error) {
	return apply("transpose", in, p)
}

// FPS resamples a video stream to a constant frame rate.
func FPS(in dag.Stream, p filters.Params) (*dag.FilterNode, error) { return apply("fps", in, p) }

// SetPTS rewrites video timestamps with expr.
func SetPTS(in dag.Stream, expr string) (*dag.FilterNode, error) {
	return apply("setpts", in, filters.Params{"expr": expr})
}

// Format converts a video stream to one of pixFmts.
func Format(in dag.Stream, pixFmts string) (*dag.FilterNode, error) {
	return apply("format", in, filters.Params{"pix_fmts": pixFmts})
}

// Trim keeps a section of a video stream.
func Trim(in dag.Stream, p filters.Params) (*dag.FilterNode, error) { return apply("trim", in, p) }

// DrawText renders text onto a video stream.
func DrawText(in dag.Stream, p filters.Params) (*dag.FilterNode, error) {
	return apply("drawtext", in, p)
}

func Null(in dag.Stream) (*dag.FilterNode, error) { return apply("null", in, nil) }
