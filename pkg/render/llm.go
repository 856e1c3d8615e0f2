package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dkoosis/cibot/pkg/pattern"
)

// maxDetailLines bounds multi-line details per item.
const maxDetailLines = 3

// LLM renders patterns as terse plain text optimized for AI consumption.
// Zero ANSI codes, deterministic sort, SCOPE line first.
type LLM struct{}

// NewLLM creates an LLM renderer.
func NewLLM() *LLM {
	return &LLM{}
}

// Render formats all patterns for LLM consumption.
func (l *LLM) Render(patterns []pattern.Pattern) string {
	var sb strings.Builder
	for _, p := range patterns {
		switch v := p.(type) {
		case *pattern.Summary:
			l.renderSummary(&sb, v)
		case *pattern.Leaderboard:
			l.renderLeaderboard(&sb, v)
		case *pattern.Table:
			l.renderTable(&sb, v)
		case *pattern.Error:
			sb.WriteString("ERROR " + v.Source + ": " + v.Message + "\n")
		}
	}
	return sb.String()
}

func (l *LLM) renderSummary(sb *strings.Builder, s *pattern.Summary) {
	sb.WriteString("SCOPE: " + s.Label + "\n")
	for _, m := range s.Metrics {
		sb.WriteString(m.Label + ": " + m.Value + "\n")
	}
}

func (l *LLM) renderLeaderboard(sb *strings.Builder, lb *pattern.Leaderboard) {
	if len(lb.Items) == 0 {
		return
	}
	sb.WriteString("\n## " + lb.Label)
	if lb.TotalCount > len(lb.Items) {
		sb.WriteString(fmt.Sprintf(" (top %d of %d)", len(lb.Items), lb.TotalCount))
	}
	sb.WriteString("\n")
	for _, item := range lb.Items {
		sb.WriteString("  " + item.Name + " " + item.Metric + "\n")
	}
}

func (l *LLM) renderTable(sb *strings.Builder, t *pattern.Table) {
	if len(t.Results) == 0 {
		return
	}
	items := make([]pattern.TableItem, len(t.Results))
	copy(items, t.Results)
	// Sort: severity → name
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := statusPriority(items[i].Status), statusPriority(items[j].Status)
		if pi != pj {
			return pi < pj
		}
		return items[i].Name < items[j].Name
	})

	sb.WriteString("\n## " + t.Label + "\n")
	for _, item := range items {
		sb.WriteString("  " + statusWord(item.Status) + " " + item.Name + "\n")
		if item.Details == "" {
			continue
		}
		lines := strings.Split(item.Details, "\n")
		shown := min(len(lines), maxDetailLines)
		for _, line := range lines[:shown] {
			sb.WriteString("    " + line + "\n")
		}
		if len(lines) > maxDetailLines {
			sb.WriteString(fmt.Sprintf("    ... (%d more lines)\n", len(lines)-maxDetailLines))
		}
	}
}

func statusPriority(status string) int {
	switch status {
	case pattern.StatusFail:
		return 0
	case pattern.StatusWarn:
		return 1
	case pattern.StatusSkip:
		return 2
	default:
		return 3
	}
}

func statusWord(status string) string {
	switch status {
	case pattern.StatusFail:
		return "FAIL"
	case pattern.StatusWarn:
		return "WARN"
	case pattern.StatusSkip:
		return "SKIP"
	default:
		return "PASS"
	}
}
