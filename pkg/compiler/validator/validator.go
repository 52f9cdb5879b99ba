// Package validator checks job specs before they are planned: storage
// schemes, SSRF exposure of remote sources, and filter parameters.
package validator

import (
	"context"
	"fmt"
	"net"

	"github.com/chicogong/ffgraph/pkg/filters"
	_ "github.com/chicogong/ffgraph/pkg/filters/builtin"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/storage"
)

// Validator validates JobSpec
type Validator struct {
	registry   *filters.Registry
	resolver   Resolver
	localFiles bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithRegistry checks operations against registry instead of the global one.
func WithRegistry(registry *filters.Registry) Option {
	return func(v *Validator) { v.registry = registry }
}

// WithResolver replaces the system resolver used for SSRF checks.
func WithResolver(resolver Resolver) Option {
	return func(v *Validator) { v.resolver = resolver }
}

// WithLocalFiles controls whether bare paths and file:// URIs are accepted.
// They are by default; network-facing callers turn them off.
func WithLocalFiles(allowed bool) Option {
	return func(v *Validator) { v.localFiles = allowed }
}

// New creates a new Validator
func New(opts ...Option) *Validator {
	v := &Validator{
		registry:   filters.GlobalRegistry(),
		resolver:   net.DefaultResolver,
		localFiles: true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks if a JobSpec is valid
func (v *Validator) Validate(ctx context.Context, spec *schemas.JobSpec) error {
	if len(spec.Inputs) == 0 {
		return fmt.Errorf("job spec must have at least one input")
	}

	for i, input := range spec.Inputs {
		scheme, err := v.checkURI(input.Source)
		if err != nil {
			return fmt.Errorf("input %d (%s): %w", i, input.ID, err)
		}

		if scheme == "http" || scheme == "https" {
			if err := CheckHTTPURI(ctx, v.resolver, input.Source); err != nil {
				return fmt.Errorf("input %d (%s): security check failed: %w", i, input.ID, err)
			}
		}
	}

	for i, output := range spec.Outputs {
		scheme, err := v.checkURI(output.Destination)
		if err != nil {
			return fmt.Errorf("output %d (%s): %w", i, output.ID, err)
		}
		if scheme == "http" || scheme == "https" {
			return fmt.Errorf("output %d (%s): %s destination: %w", i, output.ID, scheme, storage.ErrReadOnly)
		}
	}

	for i, op := range spec.Operations {
		d, err := v.registry.Get(op.Op)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		if _, err := filters.Convert(d, filters.Params(op.Params)); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, op.Op, err)
		}
	}

	// Use JobSpec's built-in validation for reference checking
	return spec.Validate()
}

func (v *Validator) checkURI(uri string) (string, error) {
	scheme, _, err := storage.ParseURI(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI: %w", err)
	}
	if !storage.IsAllowedScheme(scheme) {
		return "", fmt.Errorf("scheme '%s' not allowed", scheme)
	}
	if scheme == "file" && !v.localFiles {
		return "", fmt.Errorf("local files are not allowed")
	}
	return scheme, nil
}
