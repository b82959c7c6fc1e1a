package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voltwise/prepaid-meter-service/internal/meter"
)

const uniqueViolation = "23505"

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const readingColumns = `id, user_id, reading_value, reading_timestamp, local_date, period, kind, created_at`

func scanReading(row pgx.Row) (*meter.Reading, error) {
	var r meter.Reading
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Value,
		&r.Timestamp,
		&r.LocalDate,
		&r.Period,
		&r.Kind,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReadings returns all readings for a user. No ordering is guaranteed;
// the usage engine sorts by timestamp itself.
func (r *Repository) ListReadings(ctx context.Context, userID string) ([]meter.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE user_id = $1
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []meter.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}

// ListTokenPurchases returns all token purchases for a user.
func (r *Repository) ListTokenPurchases(ctx context.Context, userID string) ([]meter.TokenPurchase, error) {
	query := `
		SELECT id, user_id, units, cost, resulting_reading, purchased_at, created_at
		FROM token_purchases
		WHERE user_id = $1
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query token purchases: %w", err)
	}
	defer rows.Close()

	var purchases []meter.TokenPurchase
	for rows.Next() {
		var p meter.TokenPurchase
		err := rows.Scan(&p.ID, &p.UserID, &p.Units, &p.Cost, &p.ResultingReading, &p.Timestamp, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return purchases, nil
}

// GetReading returns a single reading by id.
func (r *Repository) GetReading(ctx context.Context, id uuid.UUID) (*meter.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE id = $1
	`

	reading, err := scanReading(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, meter.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query reading: %w", err)
	}
	return reading, nil
}

// FindReadingBySlot returns the organic reading occupying a (day, period)
// slot for a user, or meter.ErrNotFound if the slot is free.
func (r *Repository) FindReadingBySlot(ctx context.Context, userID, localDate string, period meter.Period) (*meter.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE user_id = $1 AND local_date = $2 AND period = $3 AND kind = $4
	`

	reading, err := scanReading(r.pool.QueryRow(ctx, query, userID, localDate, period, meter.KindOrganic))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, meter.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query slot: %w", err)
	}
	return reading, nil
}

// LatestReading returns the most recent reading for a user, or
// meter.ErrNotFound when the user has no readings yet.
func (r *Repository) LatestReading(ctx context.Context, userID string) (*meter.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM meter_readings
		WHERE user_id = $1
		ORDER BY reading_timestamp DESC
		LIMIT 1
	`

	reading, err := scanReading(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, meter.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}
	return reading, nil
}

// InsertReading inserts a reading. The partial unique index on
// (user_id, local_date, period) for organic readings closes the duplicate
// check-then-act race at the storage level; a violation is translated to
// meter.ErrDuplicateReading instead of silently duplicating the slot.
func (r *Repository) InsertReading(ctx context.Context, reading *meter.Reading) error {
	query := `
		INSERT INTO meter_readings (
			id, user_id, reading_value, reading_timestamp,
			local_date, period, kind, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		reading.ID,
		reading.UserID,
		reading.Value,
		reading.Timestamp,
		reading.LocalDate,
		reading.Period,
		reading.Kind,
		reading.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return meter.ErrDuplicateReading
		}
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// UpdateReading replaces a reading's value and timestamp in place, keeping
// its identity. The slot key follows the new timestamp, so moving an organic
// reading onto an occupied (date, period) slot trips the partial unique
// index and surfaces as ErrDuplicateReading. The update is scoped by user;
// an id belonging to someone else reports ErrNotFound.
func (r *Repository) UpdateReading(ctx context.Context, userID string, id uuid.UUID, value float64, timestamp time.Time, localDate string, period meter.Period) (*meter.Reading, error) {
	query := `
		UPDATE meter_readings
		SET reading_value = $1, reading_timestamp = $2, local_date = $3, period = $4
		WHERE id = $5 AND user_id = $6
		RETURNING ` + readingColumns + `
	`

	reading, err := scanReading(r.pool.QueryRow(ctx, query, value, timestamp, localDate, period, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, meter.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, meter.ErrDuplicateReading
		}
		return nil, fmt.Errorf("failed to update reading: %w", err)
	}
	return reading, nil
}

// InsertTokenPurchase inserts a purchase together with its companion
// token-kind reading in one transaction. Token readings are exempt from the
// slot uniqueness constraint, so the insert cannot conflict with an organic
// reading taken in the same period.
func (r *Repository) InsertTokenPurchase(ctx context.Context, purchase *meter.TokenPurchase, companion *meter.Reading) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	purchaseQuery := `
		INSERT INTO token_purchases (
			id, user_id, units, cost, resulting_reading, purchased_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, purchaseQuery,
		purchase.ID,
		purchase.UserID,
		purchase.Units,
		purchase.Cost,
		purchase.ResultingReading,
		purchase.Timestamp,
		purchase.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token purchase: %w", err)
	}

	readingQuery := `
		INSERT INTO meter_readings (
			id, user_id, reading_value, reading_timestamp,
			local_date, period, kind, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.Exec(ctx, readingQuery,
		companion.ID,
		companion.UserID,
		companion.Value,
		companion.Timestamp,
		companion.LocalDate,
		companion.Period,
		companion.Kind,
		companion.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert companion reading: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
