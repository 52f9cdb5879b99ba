package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/executor"
	"github.com/chicogong/ffgraph/pkg/prober"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/storage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		format   string
		workDir  string
		duration time.Duration
		noBar    bool
		noProbe  bool
	)

	cmd := &cobra.Command{
		Use:   "run <job-file|->",
		Short: "Compile a job and run it with ffmpeg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(args[0], format, cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, graph, err := ctx.planJob(cmd.Context(), cmd, spec)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if spec.Timeout != nil && spec.Timeout.Duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, spec.Timeout.Duration)
				defer cancel()
			}

			router, err := storageRouter(runCtx, cfg)
			if err != nil {
				return err
			}
			runner := executor.New(executor.Options{
				Binary:  cfg.FFmpeg.Binary,
				TempDir: cfg.FFmpeg.TempDir,
				Storage: router,
				Logger:  logger.Named("executor"),
			})

			if duration == 0 {
				duration = longestInput(spec)
			}
			if duration == 0 && !noProbe {
				duration = probeDuration(runCtx, prober.New(
					prober.WithBinary(prober.BinaryFor(cfg.FFmpeg.Binary)),
					prober.WithLogger(logger.Named("prober")),
				), spec, workDir, logger)
			}
			reporter := newProgressReporter(cmd.ErrOrStderr(), duration, !noBar, logger)
			result, err := runner.Execute(runCtx, graph.Terminal, &executor.ExecuteOptions{
				WorkDir:       workDir,
				TotalDuration: duration,
				OnProgress:    reporter.update,
				OnStage:       reporter.stage,
			})
			reporter.finish()
			if err != nil {
				return err
			}

			ids := make(map[string]string, len(spec.Outputs))
			for _, o := range spec.Outputs {
				ids[o.Destination] = o.ID
			}
			rows := make([][]string, 0, len(result.Outputs))
			for _, o := range result.Outputs {
				id := o.OutputID
				if named, ok := ids[o.Destination]; ok {
					id = named
				}
				rows = append(rows, []string{id, o.Destination, fmt.Sprintf("%d", o.FileSize)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Output", "Destination", "Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "finished in %s\n", result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Job document format (json or toml); inferred from the extension by default")
	cmd.Flags().StringVar(&workDir, "workdir", "", "Working directory for ffmpeg")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Expected media duration, for percentage progress")
	cmd.Flags().BoolVar(&noBar, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "Do not run ffprobe to find the media duration")
	return cmd
}

// longestInput is the longest declared input duration, or zero.
func longestInput(spec *schemas.JobSpec) time.Duration {
	var longest time.Duration
	for _, in := range spec.Inputs {
		if in.Duration != nil && in.Duration.Duration > longest {
			longest = in.Duration.Duration
		}
	}
	return longest
}

// probeDuration asks ffprobe for the longest local input. Probe failures
// only cost percentage reporting, so they are logged and skipped.
func probeDuration(ctx context.Context, p *prober.Prober, spec *schemas.JobSpec, workDir string, logger *zap.Logger) time.Duration {
	var longest time.Duration
	for _, in := range spec.Inputs {
		if storage.IsRemote(in.Source) {
			continue
		}
		path, err := storage.NewLocalStorage().Path(in.Source)
		if err != nil {
			continue
		}
		if workDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		info, err := p.Probe(ctx, path)
		if err != nil {
			logger.Debug("probe failed", zap.String("input", in.ID), zap.Error(err))
			continue
		}
		if info.Duration > longest {
			longest = info.Duration
		}
	}
	return longest
}

// progressReporter draws a progress bar on a terminal and logs progress
// otherwise.
type progressReporter struct {
	bar    *progressbar.ProgressBar
	parser *executor.ProgressParser
	logger *zap.Logger
}

func newProgressReporter(w io.Writer, total time.Duration, wantBar bool, logger *zap.Logger) *progressReporter {
	r := &progressReporter{parser: executor.NewProgressParser(), logger: logger}
	r.parser.SetTotalDuration(total)

	if f, ok := w.(*os.File); !wantBar || !ok || !isatty.IsTerminal(f.Fd()) {
		return r
	}
	limit := 100
	if total <= 0 {
		limit = -1
	}
	r.bar = progressbar.NewOptions(limit,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionSetPredictTime(total > 0),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return r
}

func (r *progressReporter) stage(s schemas.JobState) {
	if r.bar != nil {
		r.bar.Describe(string(s))
		return
	}
	r.logger.Info("stage", zap.String("stage", string(s)))
}

func (r *progressReporter) update(p *schemas.FFmpegProgress) {
	pct := r.parser.ComputePercentage(p)
	if r.bar == nil {
		r.logger.Debug("progress",
			zap.Int64("frame", p.Frame),
			zap.Duration("time", p.CurrentTime),
			zap.Float64("percent", pct),
		)
		return
	}
	if r.bar.GetMax() < 0 {
		_ = r.bar.Set(int(p.Frame))
		return
	}
	_ = r.bar.Set(int(pct))
}

func (r *progressReporter) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}
