package dbx

import (
	"strconv"
	"strings"
)

// InList renders n positional placeholders starting at $start, e.g.
// InList(2, 3) == "$2, $3, $4", for use inside an IN (...) clause.
func InList(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}

// Args converts a typed slice into query arguments.
func Args[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
