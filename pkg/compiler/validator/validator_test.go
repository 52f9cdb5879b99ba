package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicogong/ffgraph/pkg/filters"
	"github.com/chicogong/ffgraph/pkg/schemas"
	"github.com/chicogong/ffgraph/pkg/storage"
)

func validSpec() *schemas.JobSpec {
	return &schemas.JobSpec{
		Inputs: []schemas.Input{
			{ID: "video1", Source: "https://example.com/video.mp4"},
		},
		Operations: []schemas.Operation{
			{Op: "trim", Input: "video1:v", Params: map[string]any{"start": "00:00:10"}, Output: "trimmed"},
		},
		Outputs: []schemas.Output{
			{ID: "trimmed", Destination: "file:///tmp/output.mp4"},
		},
	}
}

func newValidator(opts ...Option) *Validator {
	return New(append([]Option{WithResolver(testResolver)}, opts...)...)
}

func TestValidator_Validate_ValidSpec(t *testing.T) {
	err := newValidator().Validate(context.Background(), validSpec())
	assert.NoError(t, err)
}

func TestValidator_Validate_EmptyInputs(t *testing.T) {
	spec := &schemas.JobSpec{}

	err := newValidator().Validate(context.Background(), spec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one input")
}

func TestValidator_Validate_NoOperationsIsRemux(t *testing.T) {
	spec := &schemas.JobSpec{
		Inputs:  []schemas.Input{{ID: "video1", Source: "s3://bucket/in.mov"}},
		Outputs: []schemas.Output{{ID: "video1", Destination: "s3://bucket/out.mp4"}},
	}

	assert.NoError(t, newValidator().Validate(context.Background(), spec))
}

func TestValidator_Validate_InvalidScheme(t *testing.T) {
	spec := validSpec()
	spec.Inputs[0].Source = "ftp://example.com/video.mp4"

	err := newValidator().Validate(context.Background(), spec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scheme 'ftp' not allowed")
}

func TestValidator_Validate_SSRF_Protection(t *testing.T) {
	spec := validSpec()
	spec.Inputs[0].Source = "http://127.0.0.1/internal.mp4"

	err := newValidator().Validate(context.Background(), spec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "localhost")
}

func TestValidator_Validate_HTTPDestinationIsReadOnly(t *testing.T) {
	spec := validSpec()
	spec.Outputs[0].Destination = "https://example.com/upload.mp4"

	err := newValidator().Validate(context.Background(), spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrReadOnly))
}

func TestValidator_Validate_LocalFilesDisabled(t *testing.T) {
	v := newValidator(WithLocalFiles(false))

	err := v.Validate(context.Background(), validSpec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output 0 (trimmed): local files are not allowed")

	spec := validSpec()
	spec.Outputs[0].Destination = "s3://bucket/out.mp4"
	assert.NoError(t, v.Validate(context.Background(), spec))
}

func TestValidator_Validate_Filters(t *testing.T) {
	spec := validSpec()
	spec.Operations[0].Op = "warp"
	err := newValidator().Validate(context.Background(), spec)
	assert.ErrorIs(t, err, filters.ErrFilterNotFound)

	spec = validSpec()
	spec.Operations[0].Params["start"] = "soon"
	err = newValidator().Validate(context.Background(), spec)
	var ve *filters.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "start", ve.Parameter)

	spec = validSpec()
	err = newValidator(WithRegistry(filters.NewRegistry())).Validate(context.Background(), spec)
	assert.ErrorIs(t, err, filters.ErrFilterNotFound)
}

func TestValidator_Validate_References(t *testing.T) {
	spec := validSpec()
	spec.Outputs[0].Map = []string{"nothing"}

	err := newValidator().Validate(context.Background(), spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference 'nothing' not found")
}
