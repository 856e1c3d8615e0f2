package pattern

// SummaryKind identifies the producing command for dispatch.
type SummaryKind string

const (
	SummaryKindCoverage SummaryKind = "coverage"
	SummaryKindBouncer  SummaryKind = "bouncer"
)

// Summary represents high-level metrics and counts.
type Summary struct {
	Label   string
	Kind    SummaryKind // dispatch key for renderers
	Metrics []SummaryItem
}

// SummaryItem is a single metric in a summary.
type SummaryItem struct {
	Label string // e.g., "Workers", "Keys", "Collisions"
	Value string // formatted value
	Kind  string // "success", "error", "warning", "info"; affects coloring
}

func (s *Summary) Type() PatternType { return PatternTypeSummary }
