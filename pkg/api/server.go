// Package api serves the ffgraph HTTP API: compiling job specs to ffmpeg
// command lines and running them as background jobs.
package api

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/compiler/validator"
	"github.com/chicogong/ffgraph/pkg/executor"
	"github.com/chicogong/ffgraph/pkg/filters"
	"github.com/chicogong/ffgraph/pkg/planner"
	"github.com/chicogong/ffgraph/pkg/store"
)

// maxBodySize bounds job documents accepted by the API.
const maxBodySize = 1 << 20

// Options configures a Server. Zero fields get defaults.
type Options struct {
	Store     store.Store
	Planner   *planner.Planner
	Validator *validator.Validator
	Executor  *executor.Executor
	Registry  *filters.Registry
	Logger    *zap.Logger

	// Binary is written into compiled plans.
	Binary string

	// Auth wraps the /api/v1 routes. nil leaves them open.
	Auth func(http.Handler) http.Handler
}

// Server holds the API server dependencies
type Server struct {
	store     store.Store
	planner   *planner.Planner
	validator *validator.Validator
	executor  *executor.Executor
	registry  *filters.Registry
	logger    *zap.Logger
	binary    string
	auth      func(http.Handler) http.Handler

	// base is the parent context of job runs; Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs map[string]context.CancelFunc
	wg   sync.WaitGroup
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		store:     opts.Store,
		planner:   opts.Planner,
		validator: opts.Validator,
		executor:  opts.Executor,
		registry:  opts.Registry,
		logger:    opts.Logger,
		binary:    opts.Binary,
		auth:      opts.Auth,
		runs:      make(map[string]context.CancelFunc),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.registry == nil {
		s.registry = filters.GlobalRegistry()
	}
	if s.planner == nil {
		s.planner = planner.NewPlannerWithRegistry(s.registry)
	}
	s.planner.WithLogger(s.logger.Named("planner"))
	if s.validator == nil {
		// Clients must not read or write the server's filesystem.
		s.validator = validator.New(validator.WithRegistry(s.registry), validator.WithLocalFiles(false))
	}
	if s.executor == nil {
		s.executor = executor.New(executor.Options{Binary: s.binary, Logger: s.logger.Named("executor")})
	}
	if s.binary == "" {
		s.binary = executor.DefaultBinary
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	return s
}

// Routes returns the HTTP handler serving every endpoint.
func (s *Server) Routes() http.Handler {
	v1 := http.NewServeMux()
	v1.HandleFunc("POST /api/v1/compile", s.HandleCompile)
	v1.HandleFunc("POST /api/v1/jobs", s.HandleCreateJob)
	v1.HandleFunc("GET /api/v1/jobs", s.HandleListJobs)
	v1.HandleFunc("GET /api/v1/jobs/{id}", s.HandleGetJob)
	v1.HandleFunc("DELETE /api/v1/jobs/{id}", s.HandleDeleteJob)
	v1.HandleFunc("GET /api/v1/filters", s.HandleListFilters)

	var protected http.Handler = v1
	if s.auth != nil {
		protected = s.auth(v1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("/api/v1/", protected)

	return Chain(mux,
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		CORSMiddleware,
	)
}

// Close cancels running jobs, waits for them to settle and closes the store.
func (s *Server) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.store.Close()
}

func (s *Server) running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
