package filters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chicogong/ffgraph/pkg/dag"
)

// Apply validates params against d and builds the filter node. Options are
// rendered in descriptor order; options left unset are kept as dag.Default so
// ffmpeg applies its own default.
func Apply(d *Descriptor, inputs []dag.Stream, params Params) (*dag.FilterNode, error) {
	converted, err := Convert(d, params)
	if err != nil {
		return nil, err
	}

	in, out := d.Inputs, d.Outputs
	if d.Typings != nil {
		in, out, err = d.Typings(converted)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", d.Name, err)
		}
	}

	opts := make([]dag.Option, len(d.Options))
	for i, od := range d.Options {
		v, ok := converted[od.Name]
		if !ok {
			v = dag.Default
		}
		opts[i] = dag.Opt(od.Name, v)
	}

	return dag.NewFilter(dag.FilterConfig{
		Name:          d.Name,
		Inputs:        inputs,
		InputTypings:  in,
		OutputTypings: out,
		Options:       opts,
	})
}

// Convert checks params against d and returns the converted values. Unknown
// and missing required options are reported as *ValidationError.
func Convert(d *Descriptor, params Params) (Params, error) {
	var unknown []string
	for name := range params {
		if _, ok := d.Option(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Filter: d.Name, Parameter: unknown[0], Message: "unknown option (accepted: " + strings.Join(optionNames(d), ", ") + ")"}
	}

	validator := NewParameterValidator()
	converted := make(Params, len(params))
	for i := range d.Options {
		od := &d.Options[i]
		value, ok := params[od.Name]
		if !ok || value == nil {
			if od.Required {
				return nil, &ValidationError{Filter: d.Name, Parameter: od.Name, Message: "required parameter is missing"}
			}
			continue
		}
		v, err := validator.ValidateParameter(od.Name, value, od)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Filter = d.Name
			}
			return nil, err
		}
		converted[od.Name] = v
	}

	if d.Validate != nil {
		if err := d.Validate(converted); err != nil {
			return nil, fmt.Errorf("filter %s: %w", d.Name, err)
		}
	}
	return converted, nil
}

func optionNames(d *Descriptor) []string {
	names := make([]string, len(d.Options))
	for i, od := range d.Options {
		names[i] = od.Name
	}
	return names
}
