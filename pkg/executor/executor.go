// Package executor runs compiled filter graphs through ffmpeg.
package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/storage"
)

// DefaultBinary is the ffmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// Options configures an Executor.
type Options struct {
	// Binary is the ffmpeg executable. Defaults to DefaultBinary.
	Binary string
	// TempDir is the parent of per-run scratch directories. Defaults to
	// os.TempDir().
	TempDir string
	// Storage resolves remote inputs and outputs. Defaults to a router
	// without S3.
	Storage *storage.Router
	Logger  *zap.Logger
}

// Executor executes filter graphs using FFmpeg
type Executor struct {
	binary  string
	tempDir string
	storage *storage.Router
	logger  *zap.Logger
}

// New creates an executor.
func New(opts Options) *Executor {
	e := &Executor{
		binary:  opts.Binary,
		tempDir: opts.TempDir,
		storage: opts.Storage,
		logger:  opts.Logger,
	}
	if e.binary == "" {
		e.binary = DefaultBinary
	}
	if e.storage == nil {
		e.storage = storage.NewRouter(nil)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// ExecuteOptions contains options for execution
type ExecuteOptions struct {
	// WorkDir is the working directory of the ffmpeg process
	WorkDir string

	// TotalDuration enables percentage reporting when known
	TotalDuration time.Duration

	// OnProgress is called for progress updates
	OnProgress func(*schemas.FFmpegProgress)

	// OnLog is called for each line ffmpeg writes to stderr
	OnLog func(string)

	// OnStage is called when the run enters downloading_inputs, processing
	// and uploading_outputs.
	OnStage func(schemas.JobState)
}

func (o *ExecuteOptions) stage(s schemas.JobState) {
	if o.OnStage != nil {
		o.OnStage(s)
	}
}

// Result describes a finished run.
type Result struct {
	Args     []string
	Outputs  []schemas.OutputFile
	Duration time.Duration
}

// ExitError reports a non-zero ffmpeg exit together with the tail of its
// log output.
type ExitError struct {
	Code int
	Tail []string
	Err  error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.Code)
	if len(e.Tail) > 0 {
		msg += ": " + e.Tail[len(e.Tail)-1]
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Command returns the full argument vector for graph, binary included.
func (e *Executor) Command(graph dag.Node) []string {
	return dag.Command(e.binary, graph)
}

// Execute stages remote media, runs ffmpeg on graph and publishes the
// outputs. graph is the terminal node of a validated graph.
func (e *Executor) Execute(ctx context.Context, graph dag.Node, opts *ExecuteOptions) (*Result, error) {
	if opts == nil {
		opts = &ExecuteOptions{}
	}
	started := time.Now()

	scratch, err := os.MkdirTemp(e.tempDir, "ffgraph-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Warn("failed to remove temp directory", zap.String("dir", scratch), zap.Error(err))
		}
	}()

	st := &stager{router: e.storage, dir: scratch, logger: e.logger}
	opts.stage(schemas.JobStateDownloadingInputs)
	local, uploads, err := st.localize(ctx, graph)
	if err != nil {
		return nil, err
	}

	// Machine-readable progress on stdout replaces the stats line.
	withProgress, err := dag.NewGlobal(
		dag.Stream{Node: local, Index: dag.NoIndex},
		dag.Opt("progress", "pipe:1"),
		dag.Opt("nostats", true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to attach progress options: %w", err)
	}

	args := dag.Compile(withProgress)
	e.logger.Info("starting ffmpeg",
		zap.String("binary", e.binary),
		zap.Strings("args", args),
	)

	opts.stage(schemas.JobStateProcessing)
	if err := e.run(ctx, args, opts); err != nil {
		return nil, err
	}

	opts.stage(schemas.JobStateUploadingOutputs)

	result := &Result{Args: args}
	for _, u := range uploads {
		size, err := st.publish(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("failed to upload output %s: %w", u.label, err)
		}
		result.Outputs = append(result.Outputs, schemas.OutputFile{
			OutputID:    u.label,
			Destination: u.destination,
			FileSize:    size,
		})
	}
	result.Outputs = append(result.Outputs, localOutputs(graph, opts.WorkDir)...)
	result.Duration = time.Since(started)

	e.logger.Info("ffmpeg finished",
		zap.Duration("elapsed", result.Duration),
		zap.Int("outputs", len(result.Outputs)),
	)
	return result, nil
}

// localOutputs reports the outputs of graph that ffmpeg wrote in place.
func localOutputs(graph dag.Node, workDir string) []schemas.OutputFile {
	gctx := dag.NewContext(graph)
	var files []schemas.OutputFile
	for _, n := range gctx.Nodes() {
		out, ok := n.(*dag.OutputNode)
		if !ok || storage.IsRemote(out.Filename()) {
			continue
		}
		path, err := storage.NewLocalStorage().Path(out.Filename())
		if err != nil {
			continue
		}
		if workDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, schemas.OutputFile{
			OutputID:    gctx.NodeLabel(n),
			Destination: out.Filename(),
			FileSize:    info.Size(),
		})
	}
	return files
}

// logTail is the number of stderr lines kept for error reports.
const logTail = 20

func (e *Executor) run(ctx context.Context, args []string, opts *ExecuteOptions) error {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = opts.WorkDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	parser := NewProgressParser()
	parser.SetTotalDuration(opts.TotalDuration)

	progressDone := make(chan error, 1)
	go func() {
		progressDone <- e.streamProgress(stdout, parser, opts)
	}()

	var tail []string
	logDone := make(chan error, 1)
	go func() {
		logDone <- e.streamLog(stderr, parser, opts, func(line string) {
			tail = append(tail, line)
			if len(tail) > logTail {
				tail = tail[1:]
			}
		})
	}()

	// Pipes must be drained before Wait closes them.
	progressErr := <-progressDone
	logErr := <-logDone
	waitErr := cmd.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Tail: tail, Err: waitErr}
		}
		return fmt.Errorf("ffmpeg execution failed: %w", waitErr)
	}
	if progressErr != nil {
		return fmt.Errorf("failed to read progress: %w", progressErr)
	}
	if logErr != nil {
		return fmt.Errorf("failed to read ffmpeg log: %w", logErr)
	}
	return nil
}

func (e *Executor) streamProgress(r io.Reader, parser *ProgressParser, opts *ExecuteOptions) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p := parser.Feed(scanner.Text())
		if p == nil {
			continue
		}
		e.logger.Debug("ffmpeg progress",
			zap.Int64("frame", p.Frame),
			zap.Duration("time", p.CurrentTime),
			zap.Float64("speed", p.Speed),
			zap.Float64("percent", parser.ComputePercentage(p)),
		)
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}
	return scanner.Err()
}

func (e *Executor) streamLog(r io.Reader, parser *ProgressParser, opts *ExecuteOptions, keep func(string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		keep(line)

		// Stats lines only appear if -nostats was overridden.
		if p := parser.ParseLine(line); p != nil && opts.OnProgress != nil {
			opts.OnProgress(p)
		}
		if opts.OnLog != nil {
			opts.OnLog(line)
		}
	}
	return scanner.Err()
}
