package schemas

import (
	"fmt"
	"time"
)

// JobSpec is the user-submitted job specification: inputs, the filter
// operations connecting them, and the outputs to write.
type JobSpec struct {
	// Metadata
	JobID     string            `json:"job_id,omitempty"`
	CreatedAt time.Time         `json:"-"`
	UserID    string            `json:"user_id,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`

	Timeout *Duration `json:"timeout,omitempty"`

	// Dedup merges inputs and operations that are structurally identical
	// before compiling, so a source listed twice is opened once.
	Dedup bool `json:"dedup,omitempty"`

	Inputs     []Input     `json:"inputs"`
	Operations []Operation `json:"operations,omitempty"`
	Outputs    []Output    `json:"outputs"`

	// Global holds ffmpeg global options (y, loglevel, ...).
	Global map[string]any `json:"global,omitempty"`
}

// Input represents an input source
type Input struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Format      string         `json:"format,omitempty"`
	StartOffset *Duration      `json:"start_offset,omitempty"`
	Duration    *Duration      `json:"duration,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// Operation applies one registered filter. Input and Inputs reference
// input IDs or outputs of earlier operations; Output or Outputs name the
// filter outputs in order.
type Operation struct {
	Op      string         `json:"op"`
	Input   string         `json:"input,omitempty"`
	Inputs  []string       `json:"inputs,omitempty"`
	Output  string         `json:"output,omitempty"`
	Outputs []string       `json:"outputs,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// InputRefs returns Input followed by Inputs.
func (op *Operation) InputRefs() []string {
	refs := make([]string, 0, len(op.Inputs)+1)
	if op.Input != "" {
		refs = append(refs, op.Input)
	}
	return append(refs, op.Inputs...)
}

// OutputIDs returns Output followed by Outputs.
func (op *Operation) OutputIDs() []string {
	ids := make([]string, 0, len(op.Outputs)+1)
	if op.Output != "" {
		ids = append(ids, op.Output)
	}
	return append(ids, op.Outputs...)
}

// Output represents an output destination
type Output struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`
	Format      string `json:"format,omitempty"`
	// Map lists the streams written to the file. When empty, the output
	// writes the stream whose ID equals the output ID.
	Map     []string       `json:"map,omitempty"`
	Codec   *CodecParams   `json:"codec,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// MapRefs returns the stream references written to the output.
func (o *Output) MapRefs() []string {
	if len(o.Map) == 0 {
		return []string{o.ID}
	}
	return o.Map
}

// CodecParams specifies codec settings
type CodecParams struct {
	Video *VideoCodec `json:"video,omitempty"`
	Audio *AudioCodec `json:"audio,omitempty"`
}

// VideoCodec specifies video codec parameters
type VideoCodec struct {
	Codec       string `json:"codec,omitempty"`
	Bitrate     string `json:"bitrate,omitempty"`
	CRF         *int   `json:"crf,omitempty"`
	Preset      string `json:"preset,omitempty"`
	Profile     string `json:"profile,omitempty"`
	PixelFormat string `json:"pixel_format,omitempty"`
}

// AudioCodec specifies audio codec parameters
type AudioCodec struct {
	Codec      string `json:"codec,omitempty"`
	Bitrate    string `json:"bitrate,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// Validate checks references between inputs, operations and outputs.
// References must point at an input or at an operation declared earlier,
// which also rules out cycles. An operation output feeds exactly one
// consumer, as ffmpeg links every filter pad once.
func (s *JobSpec) Validate() error {
	if len(s.Inputs) == 0 {
		return fmt.Errorf("job spec must have at least one input")
	}
	if len(s.Outputs) == 0 {
		return fmt.Errorf("job spec must have at least one output")
	}

	declared := make(map[string]string) // id -> "input" or "operation"
	consumed := make(map[string]string) // operation output id -> consumer

	for i, in := range s.Inputs {
		if in.ID == "" {
			return fmt.Errorf("input %d: id is required", i)
		}
		if in.Source == "" {
			return fmt.Errorf("input %d (%s): source is required", i, in.ID)
		}
		if _, dup := declared[in.ID]; dup {
			return fmt.Errorf("input %d: duplicate id '%s'", i, in.ID)
		}
		declared[in.ID] = "input"
	}

	use := func(ref, consumer string) error {
		r, err := ParseRef(ref)
		if err != nil {
			return fmt.Errorf("%s: %w", consumer, err)
		}
		kind, ok := declared[r.ID]
		if !ok {
			return fmt.Errorf("%s: reference '%s' not found", consumer, ref)
		}
		if kind == "operation" {
			if prev, dup := consumed[r.ID]; dup {
				return fmt.Errorf("%s: stream '%s' is already consumed by %s (use split or asplit)", consumer, r.ID, prev)
			}
			consumed[r.ID] = consumer
		}
		return nil
	}

	for i, op := range s.Operations {
		name := fmt.Sprintf("operation %d (%s)", i, op.Op)
		if op.Op == "" {
			return fmt.Errorf("operation %d: op is required", i)
		}
		for _, ref := range op.InputRefs() {
			if err := use(ref, name); err != nil {
				return err
			}
		}
		ids := op.OutputIDs()
		if len(ids) == 0 {
			return fmt.Errorf("%s: at least one output id is required", name)
		}
		for _, id := range ids {
			if _, dup := declared[id]; dup {
				return fmt.Errorf("%s: duplicate id '%s'", name, id)
			}
			declared[id] = "operation"
		}
	}

	outputIDs := make(map[string]bool)
	for i, out := range s.Outputs {
		name := fmt.Sprintf("output %d (%s)", i, out.ID)
		if out.ID == "" {
			return fmt.Errorf("output %d: id is required", i)
		}
		if out.Destination == "" {
			return fmt.Errorf("%s: destination is required", name)
		}
		if outputIDs[out.ID] {
			return fmt.Errorf("%s: duplicate output id", name)
		}
		outputIDs[out.ID] = true
		for _, ref := range out.MapRefs() {
			if err := use(ref, name); err != nil {
				return err
			}
		}
	}

	for _, op := range s.Operations {
		for _, id := range op.OutputIDs() {
			if _, ok := consumed[id]; !ok {
				return fmt.Errorf("operation output '%s' is never used", id)
			}
		}
	}

	return nil
}
