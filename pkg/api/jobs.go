package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/executor"
	"github.com/chicogong/ffgraph/pkg/planner"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/storage"
	"github.com/chicogong/ffgraph/pkg/store"
)

// Fixed progress checkpoints around the ffmpeg run, which covers
// processingStart..processingEnd.
const (
	downloadPercent = 5
	processingStart = 10
	processingEnd   = 95
)

// start runs the job in the background until it finishes, fails, times
// out, is cancelled, or the server closes.
func (s *Server) start(spec *schemas.JobSpec, graph *planner.Graph) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if spec.Timeout != nil && spec.Timeout.Duration > 0 {
		ctx, cancel = context.WithTimeout(s.base, spec.Timeout.Duration)
	} else {
		ctx, cancel = context.WithCancel(s.base)
	}

	s.mu.Lock()
	s.runs[spec.JobID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.stop(spec.JobID)
		s.process(ctx, spec, graph)
	}()
}

// stop cancels the run of jobID, if any.
func (s *Server) stop(jobID string) {
	s.mu.Lock()
	cancel, ok := s.runs[jobID]
	delete(s.runs, jobID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *Server) process(ctx context.Context, spec *schemas.JobSpec, graph *planner.Graph) {
	jobID := spec.JobID
	logger := s.logger.With(zap.String("job_id", jobID))

	// Store updates use a context of their own so a cancelled run can still
	// record its failure.
	update := func(state schemas.JobState, p *schemas.Progress) {
		err := s.store.UpdateJobStatus(context.Background(), jobID, state, p)
		if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
			logger.Warn("failed to update job status", zap.Error(err))
		}
	}

	total := expectedDuration(spec)
	parser := executor.NewProgressParser()
	parser.SetTotalDuration(total)

	result, err := s.executor.Execute(ctx, graph.Terminal, &executor.ExecuteOptions{
		TotalDuration: total,
		OnStage: func(state schemas.JobState) {
			var percent float64
			switch state {
			case schemas.JobStateDownloadingInputs:
				percent = downloadPercent
			case schemas.JobStateProcessing:
				percent = processingStart
			case schemas.JobStateUploadingOutputs:
				percent = processingEnd
			}
			update(state, &schemas.Progress{OverallPercent: percent, CurrentStep: string(state)})
		},
		OnProgress: func(p *schemas.FFmpegProgress) {
			pct := parser.ComputePercentage(p)
			update(schemas.JobStateProcessing, &schemas.Progress{
				OverallPercent: processingStart + pct*(processingEnd-processingStart)/100,
				CurrentStep:    string(schemas.JobStateProcessing),
				FFmpeg:         p,
			})
		},
	})
	if err != nil {
		s.fail(ctx, jobID, err, logger)
		return
	}

	outputs := renameOutputs(spec, result.Outputs)
	if err := s.store.CompleteJob(context.Background(), jobID, outputs); err != nil {
		if !errors.Is(err, store.ErrInvalidTransition) {
			logger.Warn("failed to complete job", zap.Error(err))
		}
		return
	}
	logger.Info("job completed",
		zap.Duration("elapsed", result.Duration),
		zap.Int("outputs", len(outputs)),
	)
}

func (s *Server) fail(ctx context.Context, jobID string, err error, logger *zap.Logger) {
	info := &schemas.ErrorInfo{Code: "EXECUTION_ERROR", Message: err.Error(), Retryable: true}

	var exitErr *executor.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		info.Code = "TIMEOUT"
		info.Retryable = false
	case errors.Is(ctx.Err(), context.Canceled):
		// A client cancellation already recorded the state; this covers
		// shutdown.
		err := s.store.UpdateJobStatus(context.Background(), jobID, schemas.JobStateCancelled, nil)
		if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
			logger.Warn("failed to record cancellation", zap.Error(err))
		}
		logger.Info("job run cancelled")
		return
	case errors.Is(err, storage.ErrNotFound):
		info.Code = "INPUT_NOT_FOUND"
		info.Retryable = false
	case errors.As(err, &exitErr):
		info.Code = "FFMPEG_FAILED"
		info.FFmpegExitCode = exitErr.Code
		info.FFmpegStderr = strings.Join(exitErr.Tail, "\n")
		info.Retryable = false
	}

	if err := s.store.FailJob(context.Background(), jobID, info); err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		logger.Warn("failed to record job failure", zap.Error(err))
	}
	logger.Warn("job failed", zap.String("code", info.Code), zap.Error(err))
}

// expectedDuration is the longest input duration declared in spec, or zero.
func expectedDuration(spec *schemas.JobSpec) time.Duration {
	var longest time.Duration
	for _, in := range spec.Inputs {
		if in.Duration != nil && in.Duration.Duration > longest {
			longest = in.Duration.Duration
		}
	}
	return longest
}

// renameOutputs replaces graph labels with the output ids of spec.
func renameOutputs(spec *schemas.JobSpec, files []schemas.OutputFile) []schemas.OutputFile {
	ids := make(map[string]string, len(spec.Outputs))
	for _, o := range spec.Outputs {
		ids[o.Destination] = o.ID
	}
	out := make([]schemas.OutputFile, len(files))
	for i, f := range files {
		if id, ok := ids[f.Destination]; ok {
			f.OutputID = id
		}
		out[i] = f
	}
	return out
}
