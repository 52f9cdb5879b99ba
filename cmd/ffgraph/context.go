package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/compiler/validator"
	"github.com/chicogong/ffgraph/pkg/config"
	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/logging"
	"github.com/chicogong/ffgraph/pkg/planner"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/storage"
)

type commandContext struct {
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	binaryFlag    string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
	loggerErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureConfig loads the configuration once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != "" {
			cfg.Logging.Level = c.logLevelFlag
		}
		if c.logFormatFlag != "" {
			cfg.Logging.Format = c.logFormatFlag
		}
		if c.binaryFlag != "" {
			cfg.FFmpeg.Binary = c.binaryFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor builds the process logger; log output goes to stderr so stdout
// stays machine readable.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*zap.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		})
	})
	return c.logger, c.loggerErr
}

// globalOptions are the ffmpeg flags configuration adds to every command.
func globalOptions(cfg *config.Config) []dag.Option {
	var opts []dag.Option
	if cfg.FFmpeg.HideBanner {
		opts = append(opts, dag.Opt("hide_banner", true))
	}
	if cfg.FFmpeg.Overwrite {
		opts = append(opts, dag.Opt("y", true))
	}
	return opts
}

// loadSpec reads a job document from path, or from stdin when path is "-".
func loadSpec(path, format string, stdin io.Reader) (*schemas.JobSpec, error) {
	if path != "-" {
		if format == "" {
			return schemas.LoadJobSpecFile(path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read job spec: %w", err)
		}
		return schemas.ParseJobSpec(data, schemas.Format(format))
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read job spec: %w", err)
	}
	if format == "" {
		format = string(schemas.FormatJSON)
	}
	return schemas.ParseJobSpec(data, schemas.Format(format))
}

// planJob validates spec and builds its graph with configured globals.
func (c *commandContext) planJob(ctx context.Context, cmd *cobra.Command, spec *schemas.JobSpec) (*planner.Planner, *planner.Graph, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, nil, err
	}

	if err := validator.New().Validate(ctx, spec); err != nil {
		return nil, nil, fmt.Errorf("invalid job spec: %w", err)
	}
	p := planner.NewPlanner().WithLogger(logger.Named("planner"))
	graph, err := p.Build(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	if err := graph.WithGlobal(globalOptions(cfg)...); err != nil {
		return nil, nil, err
	}
	return p, graph, nil
}

// storageRouter builds the storage backends enabled by cfg.
func storageRouter(ctx context.Context, cfg *config.Config) (*storage.Router, error) {
	if !cfg.Storage.S3Enabled {
		return storage.NewRouter(nil), nil
	}
	s3, err := storage.NewS3Storage(ctx, storage.S3Options{
		Region:          cfg.Storage.S3Region,
		Endpoint:        cfg.Storage.S3Endpoint,
		AccessKeyID:     cfg.Storage.S3AccessKeyID,
		SecretAccessKey: cfg.Storage.S3SecretAccessKey,
		UsePathStyle:    cfg.Storage.S3UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewRouter(s3), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
