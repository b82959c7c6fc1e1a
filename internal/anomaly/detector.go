package anomaly

import (
	"fmt"
)

// epsilon absorbs float noise when comparing meter values.
const epsilon = 1e-9

// Detector flags data anomalies in a countdown reading sequence. Anomalies
// are soft: callers log and count them, the usage engine clamps the affected
// day to zero, and nothing crashes.
type Detector struct {
	spikeThreshold  float64
	minDaysForSpike int
}

// NewDetector creates a new anomaly detector with the specified thresholds
func NewDetector(spikeThreshold float64, minDaysForSpike int) *Detector {
	return &Detector{
		spikeThreshold:  spikeThreshold,
		minDaysForSpike: minDaysForSpike,
	}
}

// UnexplainedIncrease reports whether the meter value rose between two
// consecutive readings by more than the token units purchased in between.
// A countdown meter can only go up when a token posts; anything else is a
// missing token record or a meter reset.
func (d *Detector) UnexplainedIncrease(prev, current, tokensBetween float64) (bool, string) {
	rise := current - prev
	if rise <= epsilon {
		return false, ""
	}
	if rise > tokensBetween+epsilon {
		return true, fmt.Sprintf("reading rose %.2f with only %.2f token units purchased in between",
			rise, tokensBetween)
	}
	return false, ""
}

// UsageSpike checks whether a day's reconciled total is a sudden spike
// against the rolling average of recent daily totals.
func (d *Detector) UsageSpike(total float64, recentTotals []float64) (bool, string) {
	if len(recentTotals) < d.minDaysForSpike {
		return false, ""
	}

	sum := 0.0
	for _, v := range recentTotals {
		sum += v
	}
	average := sum / float64(len(recentTotals))

	if average > 0 && total > d.spikeThreshold*average {
		return true, fmt.Sprintf("daily usage spike: %.2f exceeds %.1fx rolling average %.2f",
			total, d.spikeThreshold, average)
	}

	return false, ""
}
