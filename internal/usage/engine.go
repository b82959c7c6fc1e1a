package usage

import (
	"sort"
	"time"

	"github.com/voltwise/prepaid-meter-service/internal/meter"
)

// DailyUsage is one calendar day of reconciled consumption. The period
// values are the readings shown on the dashboard for that day; Total is the
// reconciled net consumption.
type DailyUsage struct {
	Date    string   `json:"date"`
	Morning *float64 `json:"morning,omitempty"`
	Evening *float64 `json:"evening,omitempty"`
	Night   *float64 `json:"night,omitempty"`
	Total   float64  `json:"total"`
}

// PeakDay is the calendar day with the highest reconciled usage.
type PeakDay struct {
	Date  string  `json:"date"`
	Usage float64 `json:"usage"`
}

// Summary is the full reconciled view of a user's consumption history.
type Summary struct {
	AverageUsage         float64      `json:"averageUsage"`
	PeakUsageDay         PeakDay      `json:"peakUsageDay"`
	TotalTokensPurchased float64      `json:"totalTokensPurchased"`
	DailyUsage           []DailyUsage `json:"dailyUsage"`
}

// MonthlyUsage is one calendar month of reconciled consumption.
type MonthlyUsage struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// Engine reconciles a countdown meter's reading sequence into per-day and
// per-month consumption. It is pure: it never touches storage and performs
// a single pass over already-sorted copies of its inputs.
type Engine struct {
	loc *time.Location
}

// NewEngine creates a reconciliation engine resolving calendar days and
// periods in the given location.
func NewEngine(loc *time.Location) *Engine {
	return &Engine{loc: loc}
}

// Summarize computes the per-day breakdown, average, peak day and token
// total for one user's readings and purchases. No ordering precondition is
// imposed on the caller; inputs are sorted by timestamp internally. Empty
// readings yield an all-zero summary, not an error.
//
// The meter counts down, and a token purchase adds units back without
// representing consumption. A day's net consumption is therefore
//
//	max(0, startOfDay + tokensAddedToday - lastReadingOfDay)
//
// where startOfDay is the previous day's closing reading (or the day's own
// first reading on the first recorded day). Netting the purchase out this
// way is what a naive point-to-point subtraction gets wrong on top-up days.
func (e *Engine) Summarize(readings []meter.Reading, purchases []meter.TokenPurchase) Summary {
	summary := Summary{DailyUsage: []DailyUsage{}}

	for _, p := range purchases {
		summary.TotalTokensPurchased += p.Units
	}

	if len(readings) == 0 {
		return summary
	}

	sorted := make([]meter.Reading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	tokensByDay := make(map[string]float64)
	for _, p := range purchases {
		tokensByDay[meter.DateOf(p.Timestamp, e.loc)] += p.Units
	}

	// Group by calendar day. Days appear in ascending order because the
	// readings are already sorted.
	var days []string
	byDay := make(map[string][]meter.Reading)
	for _, r := range sorted {
		day := meter.DateOf(r.Timestamp, e.loc)
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], r)
	}

	var (
		carry     float64
		haveCarry bool
		usageSum  float64
		usageDays int
		peakTotal float64
		peakDate  string
	)

	for _, day := range days {
		dayReadings := byDay[day]
		first := dayReadings[0]
		last := dayReadings[len(dayReadings)-1]

		start := first.Value
		if haveCarry {
			start = carry
		}

		var total float64
		if len(dayReadings) >= 2 {
			total = start + tokensByDay[day] - last.Value
			if total < 0 {
				// Reading rose without a matching token record, or the
				// meter was reset. Never report negative consumption.
				total = 0
			}
		}

		entry := DailyUsage{Date: day, Total: total}
		for _, r := range dayReadings {
			v := r.Value
			switch r.Period {
			case meter.PeriodMorning:
				entry.Morning = &v
			case meter.PeriodEvening:
				entry.Evening = &v
			case meter.PeriodNight:
				entry.Night = &v
			}
		}
		summary.DailyUsage = append(summary.DailyUsage, entry)

		if total > 0 {
			usageSum += total
			usageDays++
			if total > peakTotal {
				peakTotal = total
				peakDate = day
			}
		}

		carry = last.Value
		haveCarry = true
	}

	if usageDays > 0 {
		summary.AverageUsage = usageSum / float64(usageDays)
	}
	summary.PeakUsageDay = PeakDay{Date: peakDate, Usage: peakTotal}

	return summary
}
