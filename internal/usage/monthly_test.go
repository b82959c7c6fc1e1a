package usage_test

import (
	"testing"
	"time"

	"github.com/voltwise/prepaid-meter-service/internal/meter"
	"github.com/voltwise/prepaid-meter-service/internal/usage"
)

func readingAt(ts time.Time, value float64) meter.Reading {
	return meter.Reading{
		Value:     value,
		Timestamp: ts,
		LocalDate: ts.Format("2006-01-02"),
		Period:    meter.PeriodOf(ts, time.UTC),
		Kind:      meter.KindOrganic,
	}
}

func TestMonthlyTotals_Empty(t *testing.T) {
	engine := usage.NewEngine(time.UTC)

	totals := engine.MonthlyTotals(nil)

	if len(totals) != 0 {
		t.Errorf("Expected no months, got %d", len(totals))
	}
}

func TestMonthlyTotals_DiscardsIncreases(t *testing.T) {
	engine := usage.NewEngine(time.UTC)

	readings := []meter.Reading{
		readingAt(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), 100),
		readingAt(time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC), 80),
		// Token posts a synthetic reading: the 70-unit jump is replenishment.
		readingAt(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), 150),
		readingAt(time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC), 120),
	}

	totals := engine.MonthlyTotals(readings)

	if len(totals) != 1 {
		t.Fatalf("Expected 1 month, got %d", len(totals))
	}
	if totals[0].Month != "2025-03" {
		t.Errorf("Expected month 2025-03, got %s", totals[0].Month)
	}
	// 100->80 contributes 20, 150->120 contributes 30, the jump contributes nothing.
	if totals[0].Total != 50 {
		t.Errorf("Expected total 50, got %f", totals[0].Total)
	}
}

func TestMonthlyTotals_SkipsCrossMonthPairs(t *testing.T) {
	engine := usage.NewEngine(time.UTC)

	readings := []meter.Reading{
		readingAt(time.Date(2025, 3, 30, 8, 0, 0, 0, time.UTC), 100),
		readingAt(time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC), 90),
		readingAt(time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC), 70),
		readingAt(time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC), 55),
	}

	totals := engine.MonthlyTotals(readings)

	if len(totals) != 2 {
		t.Fatalf("Expected 2 months, got %d", len(totals))
	}
	if totals[0].Total != 10 {
		t.Errorf("Expected March total 10, got %f", totals[0].Total)
	}
	// The 90->70 drop spans the month boundary and is attributed to neither.
	if totals[1].Total != 15 {
		t.Errorf("Expected April total 15, got %f", totals[1].Total)
	}
}

func TestMonthlyTotals_AgreesWithDailySummary(t *testing.T) {
	// With token purchases posting companion readings, the month bucket must
	// equal the sum of the daily totals for that month.
	engine := usage.NewEngine(time.UTC)

	tokenReading := readingAt(time.Date(2025, 3, 2, 13, 0, 0, 0, time.UTC), 130)
	tokenReading.Kind = meter.KindToken

	readings := []meter.Reading{
		readingAt(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), 100),
		readingAt(time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC), 80),
		readingAt(time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC), 80),
		tokenReading,
		readingAt(time.Date(2025, 3, 2, 19, 0, 0, 0, time.UTC), 92),
	}
	purchases := []meter.TokenPurchase{
		{Units: 50, ResultingReading: 130, Timestamp: time.Date(2025, 3, 2, 13, 0, 0, 0, time.UTC)},
	}

	summary := engine.Summarize(readings, purchases)
	totals := engine.MonthlyTotals(readings)

	var dailySum float64
	for _, d := range summary.DailyUsage {
		dailySum += d.Total
	}

	if len(totals) != 1 {
		t.Fatalf("Expected 1 month, got %d", len(totals))
	}
	if totals[0].Total != dailySum {
		t.Errorf("Monthly total %f disagrees with daily sum %f", totals[0].Total, dailySum)
	}
}
