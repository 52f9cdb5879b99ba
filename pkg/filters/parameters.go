package filters

import "fmt"

// ParameterType is the declared type of a filter option.
type ParameterType string

const (
	TypeString   ParameterType = "string"
	TypeInt      ParameterType = "int"
	TypeFloat    ParameterType = "float"
	TypeBool     ParameterType = "bool"
	TypeDuration ParameterType = "duration" // "1h30m", "00:05:30", 12.5
	TypeEnum     ParameterType = "enum"     // one of Validation.Enum
	TypeExpr     ParameterType = "expr"     // number or ffmpeg expression ("iw/2")
)

// ValidationRules constrains an option value.
type ValidationRules struct {
	Min *float64
	Max *float64

	Enum []any

	CustomValidator func(any) error
}

// Params holds loosely typed option values as decoded from a job document.
type Params map[string]any

// Int returns the integer value of key, or def when unset.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	n, err := NewTypeConverter().toInt(v)
	if err != nil {
		return def
	}
	return n
}

// String returns the value of key formatted as a string, or def when unset.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	return fmt.Sprint(v)
}

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float returns a pointer to f, for ValidationRules bounds.
func Float(f float64) *float64 {
	return &f
}
