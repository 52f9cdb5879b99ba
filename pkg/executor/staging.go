package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/storage"
)

// upload is a staged output waiting to be copied to its destination.
type upload struct {
	label       string
	localPath   string
	destination string
}

// stager moves remote media in and out of a scratch directory so that ffmpeg
// only ever sees local paths.
type stager struct {
	router *storage.Router
	dir    string
	logger *zap.Logger
}

// localize downloads remote inputs and assigns scratch paths to remote
// outputs. It returns the rewritten graph and the uploads to perform once
// ffmpeg succeeds.
func (s *stager) localize(ctx context.Context, graph dag.Node) (dag.Node, []upload, error) {
	gctx := dag.NewContext(graph)

	downloaded := make(map[string]string) // remote URI -> local path
	outputs := make(map[dag.Node]string)  // output node -> local path
	var uploads []upload

	for i, n := range gctx.Nodes() {
		switch n := n.(type) {
		case *dag.InputNode:
			uri := n.Filename()
			if !storage.IsRemote(uri) {
				continue
			}
			if _, ok := downloaded[uri]; ok {
				continue
			}
			local := filepath.Join(s.dir, scratchName(i, uri, "input"))
			if err := s.download(ctx, uri, local); err != nil {
				return nil, nil, fmt.Errorf("failed to prepare input %s: %w", uri, err)
			}
			downloaded[uri] = local

		case *dag.OutputNode:
			uri := n.Filename()
			if !storage.IsRemote(uri) {
				continue
			}
			if _, err := s.router.For(uri); err != nil {
				return nil, nil, fmt.Errorf("output %s: %w", uri, err)
			}
			local := filepath.Join(s.dir, scratchName(i, uri, "output"))
			outputs[n] = local
			uploads = append(uploads, upload{label: gctx.NodeLabel(n), localPath: local, destination: uri})
		}
	}

	if len(downloaded) == 0 && len(outputs) == 0 {
		return graph, nil, nil
	}

	rewritten := dag.RewriteFilenames(graph, func(n dag.Node, filename string) string {
		if local, ok := outputs[n]; ok {
			return local
		}
		if local, ok := downloaded[filename]; ok {
			return local
		}
		return filename
	})
	return rewritten, uploads, nil
}

// scratchName keeps the extension of uri so ffmpeg can infer the container.
func scratchName(i int, uri, fallback string) string {
	_, p, err := storage.ParseURI(uri)
	base := path.Base(p)
	if err != nil || base == "" || base == "." || base == "/" {
		base = fallback
	}
	return fmt.Sprintf("%d-%s", i, base)
}

func (s *stager) download(ctx context.Context, uri, local string) error {
	backend, err := s.router.For(uri)
	if err != nil {
		return err
	}

	s.logger.Debug("downloading input", zap.String("uri", uri), zap.String("path", local))

	reader, err := backend.Get(ctx, uri)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", uri, err)
	}
	defer reader.Close()

	file, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	return file.Close()
}

// publish uploads a staged output and returns its size.
func (s *stager) publish(ctx context.Context, u upload) (int64, error) {
	backend, err := s.router.For(u.destination)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(u.localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}

	s.logger.Debug("uploading output",
		zap.String("path", u.localPath),
		zap.String("destination", u.destination),
		zap.Int64("bytes", info.Size()),
	)

	if err := backend.Put(ctx, u.destination, file); err != nil {
		return 0, fmt.Errorf("failed to upload to %s: %w", u.destination, err)
	}
	return info.Size(), nil
}
