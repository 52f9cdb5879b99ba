package dag

import "strings"

const (
	// ValueSpecials are escaped inside a single option value.
	ValueSpecials = `\'[],;:`
	// GraphSpecials are escaped on the joined option string of a filter.
	// ':' is absent because it separates the options at that level.
	GraphSpecials = `\'[],;`
)

// Escape prefixes every occurrence of a character in chars with a backslash.
func Escape(s, chars string) string {
	if !strings.ContainsAny(s, chars) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if strings.ContainsRune(chars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// filterOptions renders key=value pairs for a filter description. Each raw
// value is escaped once for the option level, and the joined string once for
// the graph level.
func filterOptions(opts []Option) string {
	pairs := make([]string, 0, len(opts))
	for _, o := range opts {
		if IsDefault(o.Value) {
			continue
		}
		var v string
		if b, ok := o.Value.(bool); ok {
			v = "0"
			if b {
				v = "1"
			}
		} else {
			v = formatValue(o.Value)
		}
		pairs = append(pairs, o.Key+"="+Escape(v, ValueSpecials))
	}
	if len(pairs) == 0 {
		return ""
	}
	return Escape(strings.Join(pairs, ":"), GraphSpecials)
}
