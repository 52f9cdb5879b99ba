package dag

import (
	"fmt"
	"strconv"
	"time"
)

// StreamType is the media type of a stream. As a selector, StreamTypeAny
// means "no selector"; as a resolved type it means the stream carries both
// video and audio and satisfies either slot.
type StreamType int

const (
	StreamTypeAny StreamType = iota
	StreamTypeVideo
	StreamTypeAudio
)

// String returns the long name of the type.
func (t StreamType) String() string {
	switch t {
	case StreamTypeAny:
		return "av"
	case StreamTypeVideo:
		return "video"
	case StreamTypeAudio:
		return "audio"
	default:
		return fmt.Sprintf("StreamType(%d)", int(t))
	}
}

// Selector returns the ffmpeg stream specifier shorthand ("v" or "a"), or ""
// for StreamTypeAny.
func (t StreamType) Selector() string {
	switch t {
	case StreamTypeVideo:
		return "v"
	case StreamTypeAudio:
		return "a"
	default:
		return ""
	}
}

func (t StreamType) valid() bool {
	return t == StreamTypeAny || t == StreamTypeVideo || t == StreamTypeAudio
}

// ParseStreamType parses "video"/"v" or "audio"/"a".
func ParseStreamType(s string) (StreamType, error) {
	switch s {
	case "video", "v":
		return StreamTypeVideo, nil
	case "audio", "a":
		return StreamTypeAudio, nil
	default:
		return StreamTypeAny, fmt.Errorf("unknown stream type %q", s)
	}
}

// Kind identifies one of the five node variants.
type Kind int

const (
	KindInput Kind = iota + 1
	KindFilter
	KindOutput
	KindGlobal
	KindMerge
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindFilter:
		return "filter"
	case KindOutput:
		return "output"
	case KindGlobal:
		return "global"
	case KindMerge:
		return "merge"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DefaultValue is the type of the Default sentinel.
type DefaultValue struct{}

// Default marks an option that was not explicitly set. Options holding it are
// kept on the node (so the option schema stays visible) but never rendered.
var Default = DefaultValue{}

// IsDefault reports whether v is the Default sentinel or nil.
func IsDefault(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(DefaultValue)
	return ok
}

// Option is a single key/value setting of a node. Order is significant.
type Option struct {
	Key   string
	Value any
}

// Opt is shorthand for Option{Key: key, Value: value}.
func Opt(key string, value any) Option {
	return Option{Key: key, Value: value}
}

// formatValue renders a non-bool scalar.
func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Duration:
		return strconv.FormatFloat(v.Seconds(), 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// valueKind names the Go kind of an option value for hashing.
func valueKind(v any) string {
	if IsDefault(v) {
		return "default"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case float32, float64:
		return "float"
	case time.Duration:
		return "duration"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func copyOptions(opts []Option) []Option {
	if len(opts) == 0 {
		return nil
	}
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}

func copyTypings(t []StreamType) []StreamType {
	if t == nil {
		return nil
	}
	out := make([]StreamType, len(t))
	copy(out, t)
	return out
}
