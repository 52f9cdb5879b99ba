package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/prober"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var binary string

	cmd := &cobra.Command{
		Use:   "probe <media-file>",
		Short: "List the audio and video streams of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			if binary == "" {
				binary = prober.BinaryFor(cfg.FFmpeg.Binary)
			}

			p := prober.New(prober.WithBinary(binary), prober.WithLogger(logger.Named("prober")))
			info, err := p.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s, %s, %d bytes\n", args[0], info.Format, info.Duration, info.Size)
			rows := make([][]string, 0, len(info.Streams))
			for _, s := range info.Streams {
				rows = append(rows, []string{strconv.Itoa(s.Index), s.Type.String(), s.Codec, streamDetail(s)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Type", "Codec", "Detail"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&binary, "ffprobe", "", "ffprobe binary (default: next to the ffmpeg binary)")
	return cmd
}

func streamDetail(s prober.StreamInfo) string {
	if s.Type == dag.StreamTypeVideo {
		return fmt.Sprintf("%dx%d %s %.3g fps", s.Width, s.Height, s.PixFmt, s.FrameRate)
	}
	return fmt.Sprintf("%d Hz, %d ch", s.SampleRate, s.Channels)
}
