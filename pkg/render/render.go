// Package render provides output renderers for cibot's visualization patterns.
package render

import (
	"fmt"

	"github.com/dkoosis/cibot/pkg/pattern"
)

// Output formats accepted by ForFormat.
const (
	FormatTerminal = "terminal"
	FormatLLM      = "llm"
	FormatJSON     = "json"
)

// Renderer converts patterns to formatted output.
type Renderer interface {
	Render(patterns []pattern.Pattern) string
}

// ForFormat returns the renderer for a resolved output format.
func ForFormat(format string, theme Theme, width int) (Renderer, error) {
	switch format {
	case FormatTerminal:
		return NewTerminal(theme, width), nil
	case FormatLLM:
		return NewLLM(), nil
	case FormatJSON:
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
