package typeahead

import (
	"fmt"
	"strings"
)

// Formatter turns a candidate into the text shown in the list and matched
// against the query.
type Formatter[V any] func(V) string

// DefaultFormatter returns strings unchanged and prints anything else with
// fmt.Sprint.
func DefaultFormatter[V any]() Formatter[V] {
	return func(v V) string {
		if s, ok := any(v).(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
}

// Filter returns the values whose formatted text contains query, ignoring
// case. Candidate order is preserved. An empty query matches everything.
func Filter[V any](values []V, format Formatter[V], query string) []V {
	if format == nil {
		format = DefaultFormatter[V]()
	}
	needle := strings.ToLower(query)
	out := make([]V, 0, len(values))
	for _, v := range values {
		if strings.Contains(strings.ToLower(format(v)), needle) {
			out = append(out, v)
		}
	}
	return out
}

// matchSpan locates query inside label for highlighting. It returns ok=false
// when the lowered label does not keep the original byte offsets (some
// non-ASCII case mappings change length) or when there is no match.
func matchSpan(label, query string) (start, end int, ok bool) {
	if query == "" {
		return 0, 0, false
	}
	lowerLabel := strings.ToLower(label)
	if len(lowerLabel) != len(label) {
		return 0, 0, false
	}
	idx := strings.Index(lowerLabel, strings.ToLower(query))
	if idx < 0 {
		return 0, 0, false
	}
	end = idx + len(strings.ToLower(query))
	if end > len(label) {
		return 0, 0, false
	}
	return idx, end, true
}
