package meter

import "time"

// Period classifies a reading by the time of day it was taken.
type Period string

const (
	PeriodMorning Period = "morning"
	PeriodEvening Period = "evening"
	PeriodNight   Period = "night"
)

// ReadingKind distinguishes user-entered readings from readings synthesized
// when a token purchase posts.
type ReadingKind string

const (
	KindOrganic ReadingKind = "organic"
	KindToken   ReadingKind = "token"
)

// PeriodForHour maps an hour of day to its canonical period:
// morning [5,12), evening [12,20), night [20,24) and [0,5).
func PeriodForHour(hour int) Period {
	switch {
	case hour >= 5 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 20:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// PeriodOf derives the period of a timestamp in the given location.
func PeriodOf(t time.Time, loc *time.Location) Period {
	return PeriodForHour(t.In(loc).Hour())
}

// DateOf resolves the calendar date (YYYY-MM-DD) of a timestamp in the
// given location. All day bucketing in the service uses this single
// timezone basis so that dates and periods never disagree near midnight.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// MonthOf resolves the calendar month (YYYY-MM) of a timestamp in the
// given location.
func MonthOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01")
}
