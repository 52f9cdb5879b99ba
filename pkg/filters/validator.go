package filters

import (
	"fmt"
	"reflect"
	"time"
)

// ParameterValidator converts option values and checks them against their
// descriptors.
type ParameterValidator struct {
	converter *TypeConverter
}

// NewParameterValidator creates a new parameter validator
func NewParameterValidator() *ParameterValidator {
	return &ParameterValidator{
		converter: NewTypeConverter(),
	}
}

// ValidateParameter converts value to the declared type and applies the
// validation rules. It returns the converted value.
func (pv *ParameterValidator) ValidateParameter(name string, value any, descriptor *OptionDescriptor) (any, error) {
	converted, err := pv.converter.Convert(value, descriptor.Type)
	if err != nil {
		return nil, &ValidationError{
			Parameter: name,
			Message:   fmt.Sprintf("type conversion failed: %v", err),
		}
	}

	if descriptor.Validation != nil {
		if err := pv.applyRules(converted, descriptor.Validation); err != nil {
			return nil, &ValidationError{
				Parameter: name,
				Message:   err.Error(),
			}
		}
	}

	return converted, nil
}

func (pv *ParameterValidator) applyRules(value any, rules *ValidationRules) error {
	if rules.Min != nil || rules.Max != nil {
		numValue, ok := toFloat64(value)
		// Expressions are evaluated by ffmpeg; only literal numbers are bounded.
		if ok {
			if rules.Min != nil && numValue < *rules.Min {
				return fmt.Errorf("value %v is less than minimum %v", value, *rules.Min)
			}
			if rules.Max != nil && numValue > *rules.Max {
				return fmt.Errorf("value %v is greater than maximum %v", value, *rules.Max)
			}
		}
	}

	if rules.Enum != nil {
		found := false
		for _, enumValue := range rules.Enum {
			if reflect.DeepEqual(value, enumValue) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("value %v is not in allowed values %v", value, rules.Enum)
		}
	}

	if rules.CustomValidator != nil {
		if err := rules.CustomValidator(value); err != nil {
			return err
		}
	}

	return nil
}

// ValidationError represents a parameter validation error
type ValidationError struct {
	Filter    string
	Parameter string
	Message   string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Filter == "" {
		return fmt.Sprintf("parameter '%s': %s", e.Parameter, e.Message)
	}
	return fmt.Sprintf("filter %s: parameter '%s': %s", e.Filter, e.Parameter, e.Message)
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case time.Duration:
		return v.Seconds(), true
	default:
		return 0, false
	}
}
