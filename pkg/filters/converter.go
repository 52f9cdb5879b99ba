package filters

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/chicogong/ffgraph/pkg/schemas"
)

// TypeConverter converts values decoded from JSON or TOML to option types.
type TypeConverter struct{}

// NewTypeConverter creates a new type converter
func NewTypeConverter() *TypeConverter {
	return &TypeConverter{}
}

// Convert converts a value to the target type
func (tc *TypeConverter) Convert(value any, targetType ParameterType) (any, error) {
	switch targetType {
	case TypeDuration:
		return tc.toDuration(value)
	case TypeInt:
		return tc.toInt(value)
	case TypeFloat:
		return tc.toFloat(value)
	case TypeBool:
		return tc.toBool(value)
	case TypeString, TypeEnum:
		return tc.toString(value)
	case TypeExpr:
		return tc.toExpr(value)
	default:
		return value, nil
	}
}

// toDuration accepts duration strings and numbers of seconds.
func (tc *TypeConverter) toDuration(value any) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return schemas.ParseDuration(v)
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case time.Duration:
		return v, nil
	case schemas.Duration:
		return v.Duration, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to duration", value)
	}
}

func (tc *TypeConverter) toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		if v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%v is out of range", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

func (tc *TypeConverter) toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

func (tc *TypeConverter) toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", value)
	}
}

func (tc *TypeConverter) toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", value)
	}
}

// toExpr keeps numbers numeric (integral floats become ints, as JSON decodes
// every number to float64) and passes strings through as expressions.
func (tc *TypeConverter) toExpr(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("empty expression")
		}
		return v, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int(v), nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to expression", value)
	}
}
