package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftstate/internal/models"
	"github.com/jackc/pgx/v5"
)

// AppendBodyWeight records a body-weight measurement for a day, replacing any
// earlier measurement on the same day.
func (db *DB) AppendBodyWeight(ctx context.Context, e models.BodyWeightEntry) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO body_weight (day, weight_kg) VALUES ($1, $2)
		 ON CONFLICT (day) DO UPDATE SET weight_kg = EXCLUDED.weight_kg`,
		e.Day, e.WeightKg)
	if err != nil {
		return fmt.Errorf("appending body weight: %w", err)
	}
	return nil
}

// LookupBodyWeight returns the most recent measurement on or before day.
func (db *DB) LookupBodyWeight(ctx context.Context, day time.Time) (float64, bool, error) {
	var kg float64
	err := db.Pool.QueryRow(ctx,
		`SELECT weight_kg FROM body_weight WHERE day <= $1
		 ORDER BY day DESC LIMIT 1`, day).Scan(&kg)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("looking up body weight: %w", err)
	}
	return kg, true, nil
}

// ListBodyWeight returns all measurements, oldest first.
func (db *DB) ListBodyWeight(ctx context.Context) ([]models.BodyWeightEntry, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT day, weight_kg FROM body_weight ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying body weight: %w", err)
	}
	defer rows.Close()

	var result []models.BodyWeightEntry
	for rows.Next() {
		var e models.BodyWeightEntry
		if err := rows.Scan(&e.Day, &e.WeightKg); err != nil {
			return nil, fmt.Errorf("scanning body weight: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
