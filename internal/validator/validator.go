package validator

import (
	"fmt"
	"math"
	"time"

	"github.com/voltwise/prepaid-meter-service/internal/meter"
	"github.com/voltwise/prepaid-meter-service/tools/timeparser"
)

// Validator rejects malformed submissions before they reach the usage
// engine or storage.
type Validator struct {
	futureToleranceMinutes int
	loc                    *time.Location
}

// NewValidator creates a new validator with the specified future-timestamp
// tolerance, resolving offset-less timestamps in loc.
func NewValidator(futureToleranceMinutes int, loc *time.Location) *Validator {
	return &Validator{
		futureToleranceMinutes: futureToleranceMinutes,
		loc:                    loc,
	}
}

// ValidateReading validates a submitted meter reading and resolves its
// timestamp. An empty timestamp means the reading was taken live and
// resolves to receivedAt.
func (v *Validator) ValidateReading(value float64, timestamp string, receivedAt time.Time) (time.Time, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return time.Time{}, fmt.Errorf("%w: reading value is not a number", meter.ErrValidation)
	}
	if value < 0 {
		return time.Time{}, fmt.Errorf("%w: reading value must not be negative", meter.ErrValidation)
	}

	if timestamp == "" {
		return receivedAt, nil
	}

	readingTime, err := timeparser.ParseReadingTimestamp(timestamp, v.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp format: %v", meter.ErrValidation, err)
	}

	if timeparser.IsTooFarAhead(readingTime, receivedAt, v.futureToleranceMinutes) {
		return time.Time{}, fmt.Errorf("%w: timestamp more than %d minutes in the future",
			meter.ErrValidation, v.futureToleranceMinutes)
	}

	return readingTime, nil
}

// ValidateTokenPurchase validates a submitted token purchase and resolves
// its timestamp the same way ValidateReading does.
func (v *Validator) ValidateTokenPurchase(units float64, cost *float64, timestamp string, receivedAt time.Time) (time.Time, error) {
	if math.IsNaN(units) || math.IsInf(units, 0) || units <= 0 {
		return time.Time{}, fmt.Errorf("%w: token units must be a positive number", meter.ErrValidation)
	}
	if cost != nil && (*cost < 0 || math.IsNaN(*cost)) {
		return time.Time{}, fmt.Errorf("%w: cost must not be negative", meter.ErrValidation)
	}

	if timestamp == "" {
		return receivedAt, nil
	}

	purchaseTime, err := timeparser.ParseReadingTimestamp(timestamp, v.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp format: %v", meter.ErrValidation, err)
	}

	if timeparser.IsTooFarAhead(purchaseTime, receivedAt, v.futureToleranceMinutes) {
		return time.Time{}, fmt.Errorf("%w: timestamp more than %d minutes in the future",
			meter.ErrValidation, v.futureToleranceMinutes)
	}

	return purchaseTime, nil
}
