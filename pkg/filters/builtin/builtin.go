// Package builtin registers the ffmpeg filters known to the planner and
// exposes typed constructors for building graphs in Go.
package builtin

import (
	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
)

var (
	video = dag.StreamTypeVideo
	audio = dag.StreamTypeAudio
)

func register(ds ...*filters.Descriptor) {
	for _, d := range ds {
		filters.Register(d)
	}
}

// apply builds a single-input filter from the global registry.
func apply(name string, in dag.Stream, p filters.Params) (*dag.FilterNode, error) {
	return filters.New(name, []dag.Stream{in}, p)
}

func expr(name, description string, required bool) filters.OptionDescriptor {
	return filters.OptionDescriptor{Name: name, Type: filters.TypeExpr, Required: required, Description: description}
}

func enum(name, def, description string, values ...any) filters.OptionDescriptor {
	return filters.OptionDescriptor{
		Name:        name,
		Type:        filters.TypeEnum,
		Default:     def,
		Description: description,
		Validation:  &filters.ValidationRules{Enum: values},
	}
}
