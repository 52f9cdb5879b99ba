// Package planner turns job specifications into filter graphs and compiled
// processing plans.
package planner

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/dag"
	"github.com/chicogong/ffgraph/pkg/filters"
	_ "github.com/chicogong/ffgraph/pkg/filters/builtin" // registers the filter catalog
	"github.com/chicogong/ffgraph/pkg/schemas"
)

// Planner creates processing plans from job specifications
type Planner struct {
	builder  *Builder
	registry *filters.Registry
	logger   *zap.Logger
}

// NewPlanner creates a planner over the global filter registry
func NewPlanner() *Planner {
	return NewPlannerWithRegistry(filters.GlobalRegistry())
}

// NewPlannerWithRegistry creates a planner with a custom filter registry
func NewPlannerWithRegistry(registry *filters.Registry) *Planner {
	return &Planner{
		builder:  NewBuilder(registry),
		registry: registry,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger and returns p.
func (p *Planner) WithLogger(logger *zap.Logger) *Planner {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// PlanOptions contains options for plan generation
type PlanOptions struct {
	// Binary is the executable written into the plan's command line.
	// Defaults to "ffmpeg".
	Binary string
}

// Build validates spec and builds its graph.
func (p *Planner) Build(ctx context.Context, spec *schemas.JobSpec) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job spec: %w", err)
	}
	graph, err := p.builder.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return graph, nil
}

// Plan builds spec and compiles it into a processing plan.
func (p *Planner) Plan(ctx context.Context, spec *schemas.JobSpec, opts *PlanOptions) (*schemas.ProcessingPlan, error) {
	graph, err := p.Build(ctx, spec)
	if err != nil {
		return nil, err
	}
	return p.Describe(spec.JobID, graph, opts), nil
}

// Describe compiles graph into a processing plan.
func (p *Planner) Describe(jobID string, graph *Graph, opts *PlanOptions) *schemas.ProcessingPlan {
	if opts == nil {
		opts = &PlanOptions{}
	}
	binary := opts.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	gctx := dag.NewContext(graph.Terminal)
	hash := graph.Terminal.Hash()

	plan := &schemas.ProcessingPlan{
		PlanID:      uuid.NewString(),
		JobID:       jobID,
		CreatedAt:   time.Now().UTC(),
		GraphHash:   hex.EncodeToString(hash[:]),
		Filtergraph: gctx.Filtergraph(),
	}

	for _, n := range gctx.Nodes() {
		node := &schemas.PlanNode{
			Label: gctx.NodeLabel(n),
			Kind:  n.Kind().String(),
			ID:    graph.IDOf(n),
		}
		switch n := n.(type) {
		case *dag.InputNode:
			node.Filename = n.Filename()
		case *dag.FilterNode:
			node.Filter = n.Name()
		case *dag.OutputNode:
			node.Filename = n.Filename()
		}
		for _, s := range n.Upstream() {
			node.Inputs = append(node.Inputs, s.Label(gctx))
		}
		plan.Nodes = append(plan.Nodes, node)
	}

	args := gctx.Compile()
	plan.Commands = []schemas.FFmpegCommand{{
		ID:          "cmd_0",
		Stage:       "main",
		Command:     binary + " " + strings.Join(args, " "),
		Args:        append([]string{binary}, args...),
		Filtergraph: plan.Filtergraph,
	}}

	p.logger.Debug("plan compiled",
		zap.String("job_id", jobID),
		zap.String("plan_id", plan.PlanID),
		zap.String("graph_hash", plan.GraphHash),
		zap.Int("nodes", len(plan.Nodes)),
	)
	return plan
}

// ValidateFilters checks that every operation names a registered filter
func (p *Planner) ValidateFilters(spec *schemas.JobSpec) error {
	for i, op := range spec.Operations {
		if _, err := p.registry.Get(op.Op); err != nil {
			return fmt.Errorf("operation %d: filter '%s' not found", i, op.Op)
		}
	}
	return nil
}

// ValidateParameters checks operation parameters against the filter schemas
func (p *Planner) ValidateParameters(spec *schemas.JobSpec) error {
	for i, op := range spec.Operations {
		d, err := p.registry.Get(op.Op)
		if err != nil {
			return fmt.Errorf("operation %d: filter '%s' not found", i, op.Op)
		}
		if _, err := filters.Convert(d, filters.Params(op.Params)); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, op.Op, err)
		}
	}
	return nil
}
