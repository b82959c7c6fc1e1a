package usage

import (
	"sort"

	"github.com/voltwise/prepaid-meter-service/internal/meter"
)

// MonthlyTotals computes month-bucketed consumption by summing the
// decreasing deltas between chronologically consecutive readings whose
// timestamps fall in the same month. Increases are token-driven replenishment
// and are discarded. Because every token purchase posts a companion reading
// at the moment of purchase, this agrees with Summarize's day-level
// net-of-tokens formula; the dashboard and the monthly report must never
// disagree on totals.
func (e *Engine) MonthlyTotals(readings []meter.Reading) []MonthlyUsage {
	if len(readings) == 0 {
		return []MonthlyUsage{}
	}

	sorted := make([]meter.Reading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var months []string
	totals := make(map[string]float64)

	for i, r := range sorted {
		month := meter.MonthOf(r.Timestamp, e.loc)
		if _, seen := totals[month]; !seen {
			months = append(months, month)
			totals[month] = 0
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if meter.MonthOf(prev.Timestamp, e.loc) != month {
			continue
		}
		if delta := prev.Value - r.Value; delta > 0 {
			totals[month] += delta
		}
	}

	result := make([]MonthlyUsage, 0, len(months))
	for _, m := range months {
		result = append(result, MonthlyUsage{Month: m, Total: totals[m]})
	}
	return result
}
