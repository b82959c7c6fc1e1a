package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voltwise/prepaid-meter-service/internal/meter"
)

// Store is the storage contract the services depend on. It is satisfied by
// repository.Repository; tests use an in-memory fake. The storage layer owns
// the uniqueness guarantee on (user, day, period) for organic readings and
// reports meter.ErrDuplicateReading instead of inserting a second row.
type Store interface {
	ListReadings(ctx context.Context, userID string) ([]meter.Reading, error)
	ListTokenPurchases(ctx context.Context, userID string) ([]meter.TokenPurchase, error)
	GetReading(ctx context.Context, id uuid.UUID) (*meter.Reading, error)
	FindReadingBySlot(ctx context.Context, userID, localDate string, period meter.Period) (*meter.Reading, error)
	LatestReading(ctx context.Context, userID string) (*meter.Reading, error)
	InsertReading(ctx context.Context, reading *meter.Reading) error
	UpdateReading(ctx context.Context, userID string, id uuid.UUID, value float64, timestamp time.Time, localDate string, period meter.Period) (*meter.Reading, error)
	InsertTokenPurchase(ctx context.Context, purchase *meter.TokenPurchase, companion *meter.Reading) error
}
