// Package mapper converts run outcomes into visualization patterns.
package mapper

import (
	"fmt"
	"strings"

	"github.com/dkoosis/cibot/pkg/pattern"
)

const (
	kindSuccess = "success"
	kindError   = "error"
	kindWarning = "warning"
	kindInfo    = "info"
)

// FromError converts a failed run into an error pattern.
func FromError(source string, err error) pattern.Pattern {
	return &pattern.Error{Source: source, Message: err.Error()}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
