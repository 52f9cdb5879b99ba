package executor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/storage"
)

// fakeFFmpeg records its arguments, reports progress on stdout and writes
// "encoded" to every .mp4 argument that is not an input.
const fakeFFmpeg = `#!/bin/sh
printf '%s\n' "$@" > "$FFGRAPH_ARGS_FILE"
echo "Stream mapping:" >&2
echo "frame=10"
echo "out_time_us=500000"
echo "progress=continue"
echo "frame=20"
echo "out_time_us=1000000"
echo "progress=end"
prev=""
for a in "$@"; do
  case "$a" in
    *.mp4) if [ "$prev" != "-i" ]; then printf 'encoded' > "$a"; fi ;;
  esac
  prev="$a"
done
`

const failingFFmpeg = `#!/bin/sh
echo "in.mp4: No such file or directory" >&2
exit 1
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func recordedArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

type memS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(m.objects[aws.ToString(in.Key)]))}, nil
}

func (m *memS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, nil
}

func scaleJob(t *testing.T, src, dst string) dag.Node {
	t.Helper()
	in := dag.NewInput(src)
	f, err := dag.NewFilter(dag.FilterConfig{
		Name:          "scale",
		Inputs:        []dag.Stream{in.Video()},
		InputTypings:  []dag.StreamType{dag.StreamTypeVideo},
		OutputTypings: []dag.StreamType{dag.StreamTypeVideo},
		Options:       []dag.Option{dag.Opt("w", 640), dag.Opt("h", -2)},
	})
	require.NoError(t, err)
	v, err := f.Video(0)
	require.NoError(t, err)
	out, err := dag.NewOutput(dst, []dag.Stream{v})
	require.NoError(t, err)
	return out.Global(dag.Opt("y", true))
}

func TestExecutor_Command(t *testing.T) {
	e := New(Options{Binary: "/opt/ffmpeg/bin/ffmpeg"})

	args := e.Command(scaleJob(t, "in.mp4", "out.mp4"))
	assert.Equal(t, []string{
		"/opt/ffmpeg/bin/ffmpeg",
		"-i", "in.mp4",
		"-filter_complex", "[0:v]scale=w=640:h=-2[s0]",
		"-map", "[s0]", "out.mp4",
		"-y",
	}, args)

	assert.Equal(t, DefaultBinary, New(Options{}).Command(scaleJob(t, "a", "b"))[0])
}

func TestExecutor_ExecuteLocal(t *testing.T) {
	bin := writeScript(t, fakeFFmpeg)
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	t.Setenv("FFGRAPH_ARGS_FILE", argsFile)

	core, logs := observer.New(zap.InfoLevel)
	e := New(Options{Binary: bin, TempDir: dir, Logger: zap.New(core)})

	dst := filepath.Join(dir, "out.mp4")
	var (
		mu        sync.Mutex
		snapshots []*schemas.FFmpegProgress
	)
	result, err := e.Execute(context.Background(), scaleJob(t, "in.mp4", dst), &ExecuteOptions{
		OnProgress: func(p *schemas.FFmpegProgress) {
			mu.Lock()
			snapshots = append(snapshots, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	args := recordedArgs(t, argsFile)
	assert.Equal(t, result.Args, args)
	assert.Equal(t, []string{"-y", "-progress", "pipe:1", "-nostats"}, args[len(args)-4:])
	assert.Contains(t, args, dst)

	require.Len(t, snapshots, 2)
	assert.EqualValues(t, 10, snapshots[0].Frame)
	assert.True(t, snapshots[1].Done)

	require.Len(t, result.Outputs, 1)
	assert.Equal(t, dst, result.Outputs[0].Destination)
	assert.EqualValues(t, len("encoded"), result.Outputs[0].FileSize)

	assert.Equal(t, 1, logs.FilterMessage("starting ffmpeg").Len())
	assert.Equal(t, 1, logs.FilterMessage("ffmpeg finished").Len())

	// Scratch directories are removed.
	entries, err := filepath.Glob(filepath.Join(dir, "ffgraph-*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecutor_ExecuteStagesRemoteMedia(t *testing.T) {
	bin := writeScript(t, fakeFFmpeg)
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	t.Setenv("FFGRAPH_ARGS_FILE", argsFile)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("source media"))
	}))
	defer server.Close()

	bucket := &memS3{objects: make(map[string][]byte)}
	router := storage.NewRouter(storage.NewS3StorageWithClient(bucket))
	e := New(Options{Binary: bin, TempDir: dir, Storage: router})

	src := server.URL + "/media/talk.mp4"
	var stages []schemas.JobState
	result, err := e.Execute(context.Background(), scaleJob(t, src, "s3://renders/talk-720p.mp4"), &ExecuteOptions{
		OnStage: func(s schemas.JobState) { stages = append(stages, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, []schemas.JobState{
		schemas.JobStateDownloadingInputs,
		schemas.JobStateProcessing,
		schemas.JobStateUploadingOutputs,
	}, stages)

	args := recordedArgs(t, argsFile)
	assert.NotContains(t, args, src)
	assert.NotContains(t, args, "s3://renders/talk-720p.mp4")

	inputPath := args[1]
	assert.True(t, strings.HasSuffix(inputPath, "-talk.mp4"), inputPath)

	assert.Equal(t, "encoded", string(bucket.objects["talk-720p.mp4"]))
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, "s3://renders/talk-720p.mp4", result.Outputs[0].Destination)
	assert.Equal(t, "o0", result.Outputs[0].OutputID)
}

func TestExecutor_ExecuteFailure(t *testing.T) {
	bin := writeScript(t, failingFFmpeg)
	e := New(Options{Binary: bin, TempDir: t.TempDir()})

	var lines []string
	_, err := e.Execute(context.Background(), scaleJob(t, "in.mp4", "out.mp4"), &ExecuteOptions{
		OnLog: func(line string) { lines = append(lines, line) },
	})
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, err.Error(), "No such file or directory")
	assert.Equal(t, []string{"in.mp4: No such file or directory"}, lines)
}

func TestExecutor_UnroutableOutput(t *testing.T) {
	bin := writeScript(t, fakeFFmpeg)
	e := New(Options{Binary: bin, TempDir: t.TempDir()})

	_, err := e.Execute(context.Background(), scaleJob(t, "in.mp4", "s3://bucket/out.mp4"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3 storage not initialized")
}

func TestScratchName(t *testing.T) {
	assert.Equal(t, "3-clip.mov", scratchName(3, "https://cdn.example.com/a/clip.mov", "input"))
	assert.Equal(t, "1-output", scratchName(1, "/", "output"))
}
