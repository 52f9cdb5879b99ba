package main

import (
	"encoding/json"
	"fmt"

	"al.essio.dev/pkg/shellescape"
	"github.com/spf13/cobra"

	"github.com/chicogong/ffgraph/pkg/planner"
)

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var (
		format      string
		output      string
		filtergraph bool
	)

	cmd := &cobra.Command{
		Use:   "compile <job-file|->",
		Short: "Print the ffmpeg command for a job without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(args[0], format, cmd.InOrStdin())
			if err != nil {
				return err
			}
			p, graph, err := ctx.planJob(cmd.Context(), cmd, spec)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			plan := p.Describe(spec.JobID, graph, &planner.PlanOptions{Binary: cfg.FFmpeg.Binary})

			out := cmd.OutOrStdout()
			if filtergraph {
				fmt.Fprintln(out, plan.Filtergraph)
				return nil
			}

			argv := plan.Commands[0].Args
			switch output {
			case "shell":
				fmt.Fprintln(out, shellescape.QuoteCommand(argv))
			case "args":
				for _, a := range argv {
					fmt.Fprintln(out, a)
				}
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			default:
				return fmt.Errorf("unknown output %q (want shell, args or json)", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Job document format (json or toml); inferred from the extension by default")
	cmd.Flags().StringVarP(&output, "output", "o", "shell", "Output form: shell, args or json")
	cmd.Flags().BoolVar(&filtergraph, "filtergraph", false, "Print only the filter graph")
	return cmd
}
