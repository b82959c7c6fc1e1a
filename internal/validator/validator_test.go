package validator_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/voltwise/prepaid-meter-service/internal/meter"
	"github.com/voltwise/prepaid-meter-service/internal/validator"
)

const testFutureToleranceMinutes = 15

func TestValidateReading_Valid(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	receivedAt := time.Date(2025, 3, 1, 10, 32, 0, 0, time.UTC)

	ts, err := v.ValidateReading(245.5, "2025-03-01T10:30:00Z", receivedAt)
	if err != nil {
		t.Fatalf("Expected valid reading, got error: %v", err)
	}

	expected := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	if !ts.Equal(expected) {
		t.Errorf("Expected timestamp %v, got %v", expected, ts)
	}
}

func TestValidateReading_EmptyTimestampIsLive(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	receivedAt := time.Date(2025, 3, 1, 10, 32, 0, 0, time.UTC)

	ts, err := v.ValidateReading(100, "", receivedAt)
	if err != nil {
		t.Fatalf("Expected valid reading, got error: %v", err)
	}
	if !ts.Equal(receivedAt) {
		t.Errorf("Expected received time %v, got %v", receivedAt, ts)
	}
}

func TestValidateReading_NegativeValue(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	_, err := v.ValidateReading(-10.5, "", time.Now())
	if !errors.Is(err, meter.ErrValidation) {
		t.Errorf("Expected validation error for negative value, got %v", err)
	}
}

func TestValidateReading_NaN(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	_, err := v.ValidateReading(math.NaN(), "", time.Now())
	if !errors.Is(err, meter.ErrValidation) {
		t.Errorf("Expected validation error for NaN, got %v", err)
	}
}

func TestValidateReading_BadTimestamp(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	_, err := v.ValidateReading(100, "not-a-timestamp", time.Now())
	if !errors.Is(err, meter.ErrValidation) {
		t.Errorf("Expected validation error for bad timestamp, got %v", err)
	}
}

func TestValidateReading_BackdatedAllowed(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	receivedAt := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	_, err := v.ValidateReading(100, "2025-03-01T08:00:00Z", receivedAt)
	if err != nil {
		t.Errorf("Expected backdated reading to be accepted, got %v", err)
	}
}

func TestValidateReading_FutureRejected(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	receivedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := v.ValidateReading(100, "2025-03-01T10:20:00Z", receivedAt)
	if !errors.Is(err, meter.ErrValidation) {
		t.Errorf("Expected validation error for future timestamp, got %v", err)
	}
}

func TestValidateReading_FormTimestampInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	v := validator.NewValidator(testFutureToleranceMinutes, loc)

	receivedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ts, err := v.ValidateReading(100, "2025-03-01T08:30", receivedAt)
	if err != nil {
		t.Fatalf("Expected valid reading, got error: %v", err)
	}

	expected := time.Date(2025, 3, 1, 8, 30, 0, 0, loc)
	if !ts.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, ts)
	}
}

func TestValidateTokenPurchase_ZeroUnits(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	_, err := v.ValidateTokenPurchase(0, nil, "", time.Now())
	if !errors.Is(err, meter.ErrValidation) {
		t.Errorf("Expected validation error for zero units, got %v", err)
	}
}

func TestValidateTokenPurchase_NegativeCost(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	cost := -5.0
	_, err := v.ValidateTokenPurchase(50, &cost, "", time.Now())
	if !errors.Is(err, meter.ErrValidation) {
		t.Errorf("Expected validation error for negative cost, got %v", err)
	}
}

func TestValidateTokenPurchase_Valid(t *testing.T) {
	v := validator.NewValidator(testFutureToleranceMinutes, time.UTC)

	cost := 12.5
	receivedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ts, err := v.ValidateTokenPurchase(50, &cost, "", receivedAt)
	if err != nil {
		t.Fatalf("Expected valid purchase, got error: %v", err)
	}
	if !ts.Equal(receivedAt) {
		t.Errorf("Expected received time, got %v", ts)
	}
}
