package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
	_ "github.com/chicogong/ffgraph/pkg/filters/builtin" // registers the filter catalog
)

func newFiltersCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:         "filters [name]",
		Short:       "List the filter catalog, or the options of one filter",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				d, err := filters.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeOptions(d))
				return nil
			}

			descs := filters.List()
			if category != "" {
				descs = filters.GlobalRegistry().ListByCategory(filters.Category(category))
			}
			rows := make([][]string, 0, len(descs))
			for _, d := range descs {
				in, out := typings(d)
				rows = append(rows, []string{d.Name, string(d.Category), in, out, d.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Filter", "Category", "Inputs", "Outputs", "Description"},
				rows, nil,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list filters of this category")
	return cmd
}

func describeOptions(d *filters.Descriptor) string {
	rows := make([][]string, 0, len(d.Options))
	for _, o := range d.Options {
		def := ""
		if o.Default != nil {
			def = fmt.Sprint(o.Default)
		}
		required := ""
		if o.Required {
			required = "yes"
		}
		rows = append(rows, []string{o.Name, string(o.Type), required, def, o.Description})
	}
	in, out := typings(d)
	header := fmt.Sprintf("%s (%s): %s\ninputs: %s  outputs: %s", d.Name, d.Category, d.Description, in, out)
	if len(rows) == 0 {
		return header
	}
	return header + "\n" + renderTable([]string{"Option", "Type", "Required", "Default", "Description"}, rows, nil)
}

func typings(d *filters.Descriptor) (string, string) {
	if d.Typings != nil {
		return "dynamic", "dynamic"
	}
	return typingList(d.Inputs), typingList(d.Outputs)
}

func typingList(t []dag.StreamType) string {
	if t == nil {
		return "dynamic"
	}
	names := make([]string, len(t))
	for i, typ := range t {
		names[i] = typ.String()
	}
	return strings.Join(names, ",")
}
