package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voltwise/prepaid-meter-service/internal/config"
	"github.com/voltwise/prepaid-meter-service/internal/meter"
	"github.com/voltwise/prepaid-meter-service/internal/metrics"
	"github.com/voltwise/prepaid-meter-service/internal/mq"
	"github.com/voltwise/prepaid-meter-service/internal/validator"
	"go.uber.org/zap"
)

// ReadingService owns the reading submission flow: validate, detect a
// duplicate (day, period) slot, then either write a new row, overwrite the
// existing one on an explicit override, or surface the conflict for a
// user-mediated keep-or-overwrite decision.
type ReadingService struct {
	store     Store
	validator *validator.Validator
	publisher *mq.Publisher
	cfg       *config.Config
	loc       *time.Location
	logger    *zap.Logger
}

// NewReadingService creates a new reading service. publisher may be nil when
// event publishing is not configured.
func NewReadingService(
	store Store,
	v *validator.Validator,
	publisher *mq.Publisher,
	cfg *config.Config,
	loc *time.Location,
	logger *zap.Logger,
) *ReadingService {
	return &ReadingService{
		store:     store,
		validator: v,
		publisher: publisher,
		cfg:       cfg,
		loc:       loc,
		logger:    logger,
	}
}

// SubmitReading records an organic meter reading. Without override, a
// submission for an occupied (day, period) slot returns a
// meter.ConflictError carrying the existing reading unchanged. With
// override, the existing row's value and timestamp are replaced in place,
// keeping its identity.
func (s *ReadingService) SubmitReading(
	ctx context.Context,
	userID string,
	value float64,
	timestamp string,
	override bool,
) (*meter.Reading, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", meter.ErrValidation)
	}

	readingTime, err := s.validator.ValidateReading(value, timestamp, time.Now())
	if err != nil {
		return nil, err
	}

	localDate := meter.DateOf(readingTime, s.loc)
	period := meter.PeriodOf(readingTime, s.loc)

	if override {
		existing, err := s.store.FindReadingBySlot(ctx, userID, localDate, period)
		switch {
		case err == nil:
			updated, err := s.store.UpdateReading(ctx, userID, existing.ID, value, readingTime, localDate, period)
			if err != nil {
				return nil, meter.Upstream("update reading", err)
			}
			s.logger.Info("reading overwritten",
				zap.String("user_id", userID),
				zap.String("date", localDate),
				zap.String("period", string(period)))
			s.publishAccepted(ctx, updated)
			return updated, nil
		case errors.Is(err, meter.ErrNotFound):
			// Slot is free, fall through to a plain insert.
		default:
			return nil, meter.Upstream("find reading slot", err)
		}
	}

	reading := &meter.Reading{
		ID:        uuid.New(),
		UserID:    userID,
		Value:     value,
		Timestamp: readingTime,
		LocalDate: localDate,
		Period:    period,
		Kind:      meter.KindOrganic,
		CreatedAt: time.Now(),
	}

	if err := s.store.InsertReading(ctx, reading); err != nil {
		if errors.Is(err, meter.ErrDuplicateReading) {
			metrics.ReadingConflictsTotal.Inc()
			existing, findErr := s.store.FindReadingBySlot(ctx, userID, localDate, period)
			if findErr != nil {
				return nil, meter.Upstream("find conflicting reading", findErr)
			}
			return nil, meter.NewConflict(existing)
		}
		return nil, meter.Upstream("insert reading", err)
	}

	s.publishAccepted(ctx, reading)
	return reading, nil
}

// UpdateReading replaces an existing reading's value and timestamp by id.
// The (date, period) slot key is recomputed from the new timestamp so the
// stored row always matches the day the engine buckets it into; moving onto
// a slot already held by another organic reading reports a conflict carrying
// that reading. Only the caller's own readings are reachable.
func (s *ReadingService) UpdateReading(
	ctx context.Context,
	userID string,
	id uuid.UUID,
	value float64,
	timestamp string,
) (*meter.Reading, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", meter.ErrValidation)
	}

	readingTime, err := s.validator.ValidateReading(value, timestamp, time.Now())
	if err != nil {
		return nil, err
	}

	localDate := meter.DateOf(readingTime, s.loc)
	period := meter.PeriodOf(readingTime, s.loc)

	updated, err := s.store.UpdateReading(ctx, userID, id, value, readingTime, localDate, period)
	if err != nil {
		switch {
		case errors.Is(err, meter.ErrNotFound):
			return nil, meter.ErrNotFound
		case errors.Is(err, meter.ErrDuplicateReading):
			metrics.ReadingConflictsTotal.Inc()
			existing, findErr := s.store.FindReadingBySlot(ctx, userID, localDate, period)
			if findErr != nil {
				return nil, meter.Upstream("find conflicting reading", findErr)
			}
			return nil, meter.NewConflict(existing)
		default:
			return nil, meter.Upstream("update reading", err)
		}
	}

	s.publishAccepted(ctx, updated)
	return updated, nil
}

// ListReadings returns all readings for a user.
func (s *ReadingService) ListReadings(ctx context.Context, userID string) ([]meter.Reading, error) {
	readings, err := s.store.ListReadings(ctx, userID)
	if err != nil {
		return nil, meter.Upstream("list readings", err)
	}
	return readings, nil
}

// ListTokenPurchases returns all token purchases for a user.
func (s *ReadingService) ListTokenPurchases(ctx context.Context, userID string) ([]meter.TokenPurchase, error) {
	purchases, err := s.store.ListTokenPurchases(ctx, userID)
	if err != nil {
		return nil, meter.Upstream("list token purchases", err)
	}
	return purchases, nil
}

// RecordTokenPurchase posts a prepaid top-up. The resulting meter value is
// the latest reading plus the purchased units (or the units alone for a
// brand-new meter), and a companion token-kind reading carrying that value
// is inserted atomically with the purchase so it participates in the same
// chronological sequence as organic readings.
func (s *ReadingService) RecordTokenPurchase(
	ctx context.Context,
	userID string,
	units float64,
	cost *float64,
	timestamp string,
) (*meter.TokenPurchase, *meter.Reading, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: user id is required", meter.ErrValidation)
	}

	purchaseTime, err := s.validator.ValidateTokenPurchase(units, cost, timestamp, time.Now())
	if err != nil {
		return nil, nil, err
	}

	resulting := units
	latest, err := s.store.LatestReading(ctx, userID)
	switch {
	case err == nil:
		resulting = latest.Value + units
	case errors.Is(err, meter.ErrNotFound):
		// First ever event for this meter.
	default:
		return nil, nil, meter.Upstream("latest reading", err)
	}

	now := time.Now()
	purchase := &meter.TokenPurchase{
		ID:               uuid.New(),
		UserID:           userID,
		Units:            units,
		Cost:             cost,
		ResultingReading: resulting,
		Timestamp:        purchaseTime,
		CreatedAt:        now,
	}
	companion := &meter.Reading{
		ID:        uuid.New(),
		UserID:    userID,
		Value:     resulting,
		Timestamp: purchaseTime,
		LocalDate: meter.DateOf(purchaseTime, s.loc),
		Period:    meter.PeriodOf(purchaseTime, s.loc),
		Kind:      meter.KindToken,
		CreatedAt: now,
	}

	if err := s.store.InsertTokenPurchase(ctx, purchase, companion); err != nil {
		return nil, nil, meter.Upstream("insert token purchase", err)
	}

	s.logger.Info("token purchase recorded",
		zap.String("user_id", userID),
		zap.Float64("units", units),
		zap.Float64("resulting_reading", resulting))
	s.publishAccepted(ctx, companion)

	return purchase, companion, nil
}

// publishAccepted publishes a reading-accepted event. Publishing failures
// are logged, never returned: the reading is already persisted.
func (s *ReadingService) publishAccepted(ctx context.Context, reading *meter.Reading) {
	event := mq.ReadingAcceptedEvent{
		UserID:    reading.UserID,
		ReadingID: reading.ID.String(),
		Value:     reading.Value,
		LocalDate: reading.LocalDate,
		Period:    string(reading.Period),
		Kind:      string(reading.Kind),
		Timestamp: reading.Timestamp.Format(time.RFC3339),
	}
	if err := s.publisher.PublishReadingAccepted(ctx, event, s.cfg.RabbitMQ.ReadingRoutingKey); err != nil {
		s.logger.Error("failed to publish reading event",
			zap.Error(err),
			zap.String("reading_id", event.ReadingID))
	}
}
