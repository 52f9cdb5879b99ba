package schemas

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed jobspec.schema.json
var jobSpecSchema []byte

const jobSpecSchemaURL = "jobspec.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(jobSpecSchemaURL, bytes.NewReader(jobSpecSchema)); err != nil {
		return nil, fmt.Errorf("add job spec schema: %w", err)
	}
	return compiler.Compile(jobSpecSchemaURL)
})

// Format is the encoding of a job document.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the document format from a file extension. Unknown
// extensions are read as JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatJSON
}

// LoadJobSpecFile reads and parses a job document from disk.
func LoadJobSpecFile(path string) (*JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job spec: %w", err)
	}
	return ParseJobSpec(data, FormatFromPath(path))
}

// ParseJobSpec decodes a job document, checks it against the embedded JSON
// schema and validates its references. TOML documents are converted to JSON
// first so both formats go through the same schema.
func ParseJobSpec(data []byte, format Format) (*JobSpec, error) {
	if format == FormatTOML {
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode TOML job spec: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert TOML job spec: %w", err)
		}
		data = converted
	}

	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var spec JobSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode job spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ValidateDocument checks a JSON job document against the job spec schema.
func ValidateDocument(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode job spec: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("job spec does not match schema: %w", err)
	}
	return nil
}
