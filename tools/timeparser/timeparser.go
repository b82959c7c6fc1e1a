package timeparser

import (
	"fmt"
	"time"
)

// ParseReadingTimestamp attempts to parse a submitted reading timestamp with
// multiple formats. Formats without an offset are interpreted in loc, the
// single timezone basis used for day and period resolution.
func ParseReadingTimestamp(dateStr string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t, nil
	}

	formats := []string{
		"2006-01-02T15:04:05", // datetime-local form input, with seconds
		"2006-01-02T15:04",    // datetime-local form input
		"2006-01-02 15:04:05",
		"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.ParseInLocation(format, dateStr, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}

// IsTooFarAhead reports whether a reading timestamp lies further in the
// future than the tolerance allows. Backdated readings are a supported
// feature, so only future drift is rejected.
func IsTooFarAhead(readingTime, now time.Time, toleranceMinutes int) bool {
	return readingTime.Sub(now) > time.Duration(toleranceMinutes)*time.Minute
}
