package mapper

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dkoosis/cibot/pkg/coverage"
	"github.com/dkoosis/cibot/pkg/pattern"
)

// maxWorkers caps the keys-per-worker leaderboard.
const maxWorkers = 10

// FromCoverage converts an aggregation report into patterns.
// Returns: Summary + Leaderboard (keys per worker) + Table per non-empty
// collision/skip list.
func FromCoverage(rep *coverage.Report) []pattern.Pattern {
	patterns := []pattern.Pattern{coverageSummary(rep)}

	if lb := workerLeaderboard(rep.PerWorker); lb != nil {
		patterns = append(patterns, lb)
	}

	if len(rep.Collisions) > 0 {
		items := make([]pattern.TableItem, 0, len(rep.Collisions))
		for _, c := range rep.Collisions {
			items = append(items, pattern.TableItem{
				Name:    c.Key,
				Status:  pattern.StatusWarn,
				Details: c.Previous + " -> " + c.Current,
			})
		}
		patterns = append(patterns, &pattern.Table{Label: "Collisions (last write wins)", Results: items})
	}

	if len(rep.Skipped) > 0 {
		items := make([]pattern.TableItem, 0, len(rep.Skipped))
		for _, s := range rep.Skipped {
			items = append(items, pattern.TableItem{
				Name:    s.Path,
				Status:  pattern.StatusSkip,
				Details: s.Reason,
			})
		}
		patterns = append(patterns, &pattern.Table{Label: "Skipped files", Results: items})
	}

	return patterns
}

func coverageSummary(rep *coverage.Report) *pattern.Summary {
	label := fmt.Sprintf("COMBINE: %s, %s", plural(len(rep.Files), "file"), plural(rep.Keys, "key"))
	if tail := joinNonEmpty(
		countPhrase(len(rep.Collisions), "collision"),
		countPhrase(len(rep.Skipped), "skipped"),
	); tail != "" {
		label += " — " + tail
	}

	collisionKind := kindSuccess
	if len(rep.Collisions) > 0 {
		collisionKind = kindWarning
	}
	skippedKind := kindSuccess
	if len(rep.Skipped) > 0 {
		skippedKind = kindWarning
	}

	return &pattern.Summary{
		Label: label,
		Kind:  pattern.SummaryKindCoverage,
		Metrics: []pattern.SummaryItem{
			{Label: "Strategy", Value: rep.Strategy, Kind: kindInfo},
			{Label: "Workers", Value: strconv.Itoa(len(rep.PerWorker)), Kind: kindInfo},
			{Label: "Files", Value: strconv.Itoa(len(rep.Files)), Kind: kindInfo},
			{Label: "Keys", Value: strconv.Itoa(rep.Keys), Kind: kindSuccess},
			{Label: "Collisions", Value: strconv.Itoa(len(rep.Collisions)), Kind: collisionKind},
			{Label: "Skipped", Value: strconv.Itoa(len(rep.Skipped)), Kind: skippedKind},
			{Label: "Output", Value: fmt.Sprintf("%s (%s)", rep.Output, humanize.Bytes(uint64(max(rep.Bytes, 0)))), Kind: kindInfo},
			{Label: "Elapsed", Value: rep.Elapsed.Round(time.Millisecond).String(), Kind: kindInfo},
		},
	}
}

func workerLeaderboard(perWorker map[string]int) *pattern.Leaderboard {
	if len(perWorker) == 0 {
		return nil
	}
	items := make([]pattern.LeaderboardItem, 0, len(perWorker))
	for w, n := range perWorker {
		items = append(items, pattern.LeaderboardItem{
			Name:   w,
			Metric: plural(n, "key"),
			Value:  float64(n),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		return items[i].Name < items[j].Name
	})
	total := len(items)
	if len(items) > maxWorkers {
		items = items[:maxWorkers]
	}
	for i := range items {
		items[i].Rank = i + 1
	}
	return &pattern.Leaderboard{
		Label:      "Keys per worker",
		MetricName: "Keys",
		Items:      items,
		TotalCount: total,
		ShowRank:   true,
	}
}

func countPhrase(n int, word string) string {
	if n == 0 {
		return ""
	}
	if word == "skipped" {
		return fmt.Sprintf("%d skipped", n)
	}
	return plural(n, word)
}
