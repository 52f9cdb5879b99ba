package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/auth"
	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
	"github.com/chicogong/ffgraph/pkg/planner"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/store"
)

// CreateJobResponse represents the response for creating a job
type CreateJobResponse struct {
	JobID     string           `json:"job_id"`
	Status    schemas.JobState `json:"status"`
	PlanID    string           `json:"plan_id"`
	CreatedAt time.Time        `json:"created_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// FilterInfo describes a catalog filter.
type FilterInfo struct {
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Description string       `json:"description,omitempty"`
	Inputs      []string     `json:"inputs"`
	Outputs     []string     `json:"outputs"`
	Options     []OptionInfo `json:"options,omitempty"`
}

// OptionInfo describes one filter option.
type OptionInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// HandleCompile handles POST /api/v1/compile. It returns the processing plan
// of the submitted spec without running anything.
func (s *Server) HandleCompile(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.readSpec(w, r)
	if !ok {
		return
	}
	graph, ok := s.build(w, r, spec)
	if !ok {
		return
	}
	sendJSON(w, http.StatusOK, s.planner.Describe(spec.JobID, graph, &planner.PlanOptions{Binary: s.binary}))
}

// HandleCreateJob handles POST /api/v1/jobs
func (s *Server) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.readSpec(w, r)
	if !ok {
		return
	}
	if spec.JobID == "" {
		spec.JobID = uuid.NewString()
	}
	if spec.UserID == "" {
		spec.UserID = auth.UserID(r)
	}
	spec.CreatedAt = time.Now().UTC()

	graph, ok := s.build(w, r, spec)
	if !ok {
		return
	}
	plan := s.planner.Describe(spec.JobID, graph, &planner.PlanOptions{Binary: s.binary})

	job := &store.Job{
		JobID:   spec.JobID,
		Created: spec.CreatedAt,
		Status:  schemas.JobStatePending,
		Spec:    spec,
		Plan:    plan,
	}
	err := s.store.CreateJob(r.Context(), job)
	if errors.Is(err, store.ErrJobExists) {
		sendError(w, http.StatusConflict, "job_exists", fmt.Sprintf("Job %s already exists", spec.JobID))
		return
	}
	if err != nil {
		sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to create job: %v", err))
		return
	}

	s.logger.Info("job accepted",
		zap.String("job_id", spec.JobID),
		zap.String("user_id", spec.UserID),
		zap.String("plan_id", plan.PlanID),
	)
	s.start(spec, graph)

	w.Header().Set("Location", "/api/v1/jobs/"+spec.JobID)
	sendJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:     spec.JobID,
		Status:    schemas.JobStatePending,
		PlanID:    plan.PlanID,
		CreatedAt: job.Created,
	})
}

// HandleGetJob handles GET /api/v1/jobs/{id}
func (s *Server) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	job, err := s.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrJobNotFound) {
		sendError(w, http.StatusNotFound, "job_not_found", fmt.Sprintf("Job %s not found", jobID))
		return
	}
	if err != nil {
		sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get job: %v", err))
		return
	}
	sendJSON(w, http.StatusOK, job.ToJobStatus())
}

// HandleListJobs handles GET /api/v1/jobs
func (s *Server) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to list jobs: %v", err))
		return
	}

	statuses := make([]*schemas.JobStatus, len(jobs))
	for i, job := range jobs {
		statuses[i] = job.ToJobStatus()
	}
	sendJSON(w, http.StatusOK, statuses)
}

// HandleDeleteJob handles DELETE /api/v1/jobs/{id}. Unfinished jobs are
// cancelled; finished jobs are removed.
func (s *Server) HandleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	ctx := r.Context()

	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrJobNotFound) {
		sendError(w, http.StatusNotFound, "job_not_found", fmt.Sprintf("Job %s not found", jobID))
		return
	}
	if err != nil {
		sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get job: %v", err))
		return
	}

	if job.IsTerminal() {
		if err := s.store.DeleteJob(ctx, jobID); err != nil && !errors.Is(err, store.ErrJobNotFound) {
			sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to delete job: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	err = s.store.UpdateJobStatus(ctx, jobID, schemas.JobStateCancelled, nil)
	if errors.Is(err, store.ErrInvalidTransition) {
		sendError(w, http.StatusConflict, "job_terminal", "Job finished before it could be cancelled")
		return
	}
	if err != nil {
		sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to cancel job: %v", err))
		return
	}
	s.stop(jobID)
	s.logger.Info("job cancelled", zap.String("job_id", jobID))
	w.WriteHeader(http.StatusNoContent)
}

// HandleListFilters handles GET /api/v1/filters
func (s *Server) HandleListFilters(w http.ResponseWriter, r *http.Request) {
	var descs []*filters.Descriptor
	if c := r.URL.Query().Get("category"); c != "" {
		descs = s.registry.ListByCategory(filters.Category(c))
	} else {
		descs = s.registry.List()
	}

	infos := make([]FilterInfo, len(descs))
	for i, d := range descs {
		infos[i] = describeFilter(d)
	}
	sendJSON(w, http.StatusOK, infos)
}

// HandleHealth handles GET /health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"time":         time.Now().UTC(),
		"running_jobs": s.running(),
	})
}

// readSpec decodes the request body as a JSON or TOML job document.
func (s *Server) readSpec(w http.ResponseWriter, r *http.Request) (*schemas.JobSpec, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, http.StatusRequestEntityTooLarge, "request_too_large", "Job document is too large")
			return nil, false
		}
		sendError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Failed to read request body: %v", err))
		return nil, false
	}

	spec, err := schemas.ParseJobSpec(data, requestFormat(r))
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid_spec", err.Error())
		return nil, false
	}
	if err := s.validator.Validate(r.Context(), spec); err != nil {
		sendError(w, http.StatusBadRequest, "validation_error", err.Error())
		return nil, false
	}
	return spec, true
}

func (s *Server) build(w http.ResponseWriter, r *http.Request, spec *schemas.JobSpec) (*planner.Graph, bool) {
	graph, err := s.planner.Build(r.Context(), spec)
	if err != nil {
		sendError(w, http.StatusBadRequest, "planning_error", err.Error())
		return nil, false
	}
	return graph, true
}

func requestFormat(r *http.Request) schemas.Format {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && strings.HasSuffix(mt, "toml") {
		return schemas.FormatTOML
	}
	return schemas.FormatJSON
}

func describeFilter(d *filters.Descriptor) FilterInfo {
	info := FilterInfo{
		Name:        d.Name,
		Category:    string(d.Category),
		Description: d.Description,
		Inputs:      typingNames(d.Inputs),
		Outputs:     typingNames(d.Outputs),
	}
	if d.Typings != nil {
		info.Inputs, info.Outputs = []string{"dynamic"}, []string{"dynamic"}
	}
	for _, o := range d.Options {
		info.Options = append(info.Options, OptionInfo{
			Name:        o.Name,
			Type:        string(o.Type),
			Required:    o.Required,
			Default:     o.Default,
			Description: o.Description,
		})
	}
	return info
}

func typingNames(t []dag.StreamType) []string {
	if t == nil {
		return []string{"dynamic"}
	}
	names := make([]string, len(t))
	for i, typ := range t {
		names[i] = typ.String()
	}
	return names
}

func parseListFilter(r *http.Request) (*store.ListFilter, error) {
	q := r.URL.Query()
	filter := &store.ListFilter{}

	if statuses := q.Get("status"); statuses != "" {
		for _, st := range strings.Split(statuses, ",") {
			filter.Status = append(filter.Status, schemas.JobState(strings.TrimSpace(st)))
		}
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			return nil, fmt.Errorf("invalid offset %q", v)
		}
	}
	if v := q.Get("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid created_after %q", v)
		}
		filter.CreatedAfter = &t
	}

	switch q.Get("order") {
	case "", "desc":
	case "asc":
		filter.Ascending = true
	default:
		return nil, fmt.Errorf("invalid order %q", q.Get("order"))
	}
	return filter, nil
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, code, message string) {
	sendJSON(w, status, ErrorResponse{Error: code, Message: message, Code: status})
}
