package meter

import (
	"time"

	"github.com/google/uuid"
)

// Reading represents a single prepaid meter reading. The value is a
// countdown: it decreases as electricity is consumed and only jumps
// upward when a token purchase posts.
type Reading struct {
	ID        uuid.UUID
	UserID    string
	Value     float64
	Timestamp time.Time
	LocalDate string
	Period    Period
	Kind      ReadingKind
	CreatedAt time.Time
}

// TokenPurchase represents a prepaid electricity top-up. Posting a purchase
// always creates a companion token-kind Reading carrying ResultingReading.
type TokenPurchase struct {
	ID               uuid.UUID
	UserID           string
	Units            float64
	Cost             *float64
	ResultingReading float64
	Timestamp        time.Time
	CreatedAt        time.Time
}
