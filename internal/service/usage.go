package service

import (
	"context"
	"sort"
	"time"

	"github.com/voltwise/prepaid-meter-service/internal/anomaly"
	"github.com/voltwise/prepaid-meter-service/internal/config"
	"github.com/voltwise/prepaid-meter-service/internal/meter"
	"github.com/voltwise/prepaid-meter-service/internal/metrics"
	"github.com/voltwise/prepaid-meter-service/internal/mq"
	"github.com/voltwise/prepaid-meter-service/internal/usage"
	"go.uber.org/zap"
)

// UsageService computes reconciled usage views for a user and flags soft
// data anomalies on the way: they are logged, counted and published for
// operator visibility but never fail the request.
type UsageService struct {
	store     Store
	engine    *usage.Engine
	detector  *anomaly.Detector
	publisher *mq.Publisher
	cfg       *config.Config
	logger    *zap.Logger
}

// NewUsageService creates a new usage service. publisher may be nil when
// event publishing is not configured.
func NewUsageService(
	store Store,
	engine *usage.Engine,
	detector *anomaly.Detector,
	publisher *mq.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *UsageService {
	return &UsageService{
		store:     store,
		engine:    engine,
		detector:  detector,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Summary reconciles the user's full reading and purchase history into the
// per-day breakdown, average, peak day and token total.
func (s *UsageService) Summary(ctx context.Context, userID string) (usage.Summary, error) {
	readings, err := s.store.ListReadings(ctx, userID)
	if err != nil {
		return usage.Summary{}, meter.Upstream("list readings", err)
	}
	purchases, err := s.store.ListTokenPurchases(ctx, userID)
	if err != nil {
		return usage.Summary{}, meter.Upstream("list token purchases", err)
	}

	summary := s.engine.Summarize(readings, purchases)
	s.flagAnomalies(ctx, userID, readings, purchases, summary)

	return summary, nil
}

// Monthly reconciles the user's history into month buckets. months limits
// the report to the most recent N months when positive.
func (s *UsageService) Monthly(ctx context.Context, userID string, months int) ([]usage.MonthlyUsage, error) {
	readings, err := s.store.ListReadings(ctx, userID)
	if err != nil {
		return nil, meter.Upstream("list readings", err)
	}

	totals := s.engine.MonthlyTotals(readings)
	if months > 0 && len(totals) > months {
		totals = totals[len(totals)-months:]
	}
	return totals, nil
}

// flagAnomalies scans for unexplained reading increases and usage spikes.
func (s *UsageService) flagAnomalies(
	ctx context.Context,
	userID string,
	readings []meter.Reading,
	purchases []meter.TokenPurchase,
	summary usage.Summary,
) {
	sorted := make([]meter.Reading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		tokens := unitsBetween(purchases, prev.Timestamp, cur.Timestamp)
		if found, reason := s.detector.UnexplainedIncrease(prev.Value, cur.Value, tokens); found {
			s.reportAnomaly(ctx, userID, cur.LocalDate, "unexplained_increase", reason)
		}
	}

	if n := len(summary.DailyUsage); n >= 2 {
		last := summary.DailyUsage[n-1]
		recent := make([]float64, 0, n-1)
		for _, d := range summary.DailyUsage[:n-1] {
			recent = append(recent, d.Total)
		}
		if found, reason := s.detector.UsageSpike(last.Total, recent); found {
			s.reportAnomaly(ctx, userID, last.Date, "usage_spike", reason)
		}
	}
}

func (s *UsageService) reportAnomaly(ctx context.Context, userID, date, kind, reason string) {
	metrics.AnomaliesTotal.WithLabelValues(kind).Inc()
	s.logger.Warn("data anomaly detected",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.String("kind", kind),
		zap.String("reason", reason))

	event := mq.AnomalyEvent{UserID: userID, Date: date, Reason: reason}
	if err := s.publisher.PublishAnomaly(ctx, event, s.cfg.RabbitMQ.AnomalyRoutingKey); err != nil {
		s.logger.Error("failed to publish anomaly event", zap.Error(err))
	}
}

// unitsBetween sums token units purchased after `from` up to and including `to`.
func unitsBetween(purchases []meter.TokenPurchase, from, to time.Time) float64 {
	var sum float64
	for _, p := range purchases {
		if p.Timestamp.After(from) && !p.Timestamp.After(to) {
			sum += p.Units
		}
	}
	return sum
}
