package mapper

import (
	"fmt"
	"strconv"

	"github.com/dkoosis/cibot/internal/dispatch"
	"github.com/dkoosis/cibot/pkg/pattern"
)

// FromDispatch converts a bouncer pass into patterns: a Summary and one
// Table listing every change with its outcome.
func FromDispatch(s *dispatch.Summary) []pattern.Pattern {
	total := len(s.Checked) + len(s.Skipped) + len(s.Failed)
	label := fmt.Sprintf("BOUNCE: %s", plural(total, "change"))
	if len(s.Failed) > 0 {
		label += fmt.Sprintf(" — %d fail", len(s.Failed))
	} else if total > 0 {
		label += " — all pass"
	}

	failKind := kindSuccess
	if len(s.Failed) > 0 {
		failKind = kindError
	}
	sum := &pattern.Summary{
		Label: label,
		Kind:  pattern.SummaryKindBouncer,
		Metrics: []pattern.SummaryItem{
			{Label: "Checked", Value: strconv.Itoa(len(s.Checked)), Kind: kindSuccess},
			{Label: "Skipped", Value: strconv.Itoa(len(s.Skipped)), Kind: kindInfo},
			{Label: "Failed", Value: strconv.Itoa(len(s.Failed)), Kind: failKind},
		},
	}
	if total == 0 {
		return []pattern.Pattern{sum}
	}

	items := make([]pattern.TableItem, 0, total)
	for _, f := range s.Failed {
		items = append(items, pattern.TableItem{Name: f.ChangeID, Status: pattern.StatusFail, Details: f.Err.Error()})
	}
	for _, id := range s.Checked {
		items = append(items, pattern.TableItem{Name: id, Status: pattern.StatusPass})
	}
	for _, id := range s.Skipped {
		items = append(items, pattern.TableItem{Name: id, Status: pattern.StatusSkip, Details: "work in progress"})
	}
	return []pattern.Pattern{sum, &pattern.Table{Label: "Changes", Results: items}}
}
