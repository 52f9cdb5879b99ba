package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/api"
	"github.com/chicogong/ffgraph/pkg/auth"
	"github.com/chicogong/ffgraph/pkg/config"
	"github.com/chicogong/ffgraph/pkg/executor"
	"github.com/chicogong/ffgraph/pkg/store"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compile and job API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Server.Addr())
			if err != nil {
				return err
			}
			return serve(sigCtx, cfg, ln, logger)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host override")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port override")
	return cmd
}

// serve runs the API on ln until ctx is done, then drains connections and
// cancels running jobs.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener, logger *zap.Logger) error {
	router, err := storageRouter(ctx, cfg)
	if err != nil {
		return err
	}

	jobs := store.NewMemoryStore()
	opts := api.Options{
		Store:  jobs,
		Logger: logger.Named("api"),
		Binary: cfg.FFmpeg.Binary,
		Executor: executor.New(executor.Options{
			Binary:  cfg.FFmpeg.Binary,
			TempDir: cfg.FFmpeg.TempDir,
			Storage: router,
			Logger:  logger.Named("executor"),
		}),
	}
	if cfg.Auth.Enabled {
		mw, err := authMiddleware(cfg.Auth, logger.Named("auth"))
		if err != nil {
			return err
		}
		opts.Auth = mw.Handler
	}
	server := api.NewServer(opts)

	httpServer := &http.Server{
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.Bool("auth", cfg.Auth.Enabled))
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		_ = server.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
	if err := server.Close(); err != nil {
		logger.Warn("close job store", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

// authMiddleware builds request authentication from configuration. Static
// API keys are registered up front.
func authMiddleware(cfg config.Auth, logger *zap.Logger) (*auth.Middleware, error) {
	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL.Duration)
	}
	var keys *auth.APIKeyManager
	if len(cfg.APIKeys) > 0 {
		keys = auth.NewAPIKeyManager()
		for _, k := range cfg.APIKeys {
			if _, err := keys.Register(k.Key, k.UserID, k.Name, nil); err != nil {
				return nil, err
			}
		}
	}
	return auth.NewMiddleware(jwtManager, keys, false, logger), nil
}
