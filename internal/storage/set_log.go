package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftstate/internal/models"
)

// ListSetRows returns the most recent limit rows of the set log in append
// order, exactly as stored. Coercion of the token fields is the normalizer's
// job.
func (db *DB) ListSetRows(ctx context.Context, limit int) ([]models.RawSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT ref, date_token, exercise_id, exercise_name, input_weight,
		 total_weight, reps, rest_seconds, superset_group_id, note,
		 position, effort_rating
		 FROM (
		     SELECT * FROM set_log ORDER BY ref DESC LIMIT $1
		 ) recent ORDER BY ref ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying set log: %w", err)
	}
	defer rows.Close()

	var result []models.RawSetRow
	for rows.Next() {
		var r models.RawSetRow
		if err := rows.Scan(&r.Ref, &r.DateToken, &r.ExerciseID, &r.ExerciseName,
			&r.InputWeight, &r.TotalWeight, &r.Reps, &r.RestSeconds,
			&r.SupersetGroupID, &r.Note, &r.Order, &r.EffortRating); err != nil {
			return nil, fmt.Errorf("scanning set row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// AppendSetRow appends one row to the set log and returns its ref.
func (db *DB) AppendSetRow(ctx context.Context, r models.RawSetRow) (int64, error) {
	var ref int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO set_log (date_token, exercise_id, exercise_name, input_weight,
		 total_weight, reps, rest_seconds, superset_group_id, note, position, effort_rating)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING ref`,
		r.DateToken, r.ExerciseID, r.ExerciseName, r.InputWeight, r.TotalWeight,
		r.Reps, r.RestSeconds, r.SupersetGroupID, r.Note, r.Order, r.EffortRating).Scan(&ref)
	if err != nil {
		return 0, fmt.Errorf("appending set row: %w", err)
	}
	return ref, nil
}

// UpdateSetRow overwrites the row with the given ref. Used for corrections;
// the log otherwise stays append-only.
func (db *DB) UpdateSetRow(ctx context.Context, r models.RawSetRow) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE set_log SET date_token = $2, exercise_id = $3, exercise_name = $4,
		 input_weight = $5, total_weight = $6, reps = $7, rest_seconds = $8,
		 superset_group_id = $9, note = $10, position = $11, effort_rating = $12
		 WHERE ref = $1`,
		r.Ref, r.DateToken, r.ExerciseID, r.ExerciseName, r.InputWeight,
		r.TotalWeight, r.Reps, r.RestSeconds, r.SupersetGroupID, r.Note,
		r.Order, r.EffortRating)
	if err != nil {
		return fmt.Errorf("updating set row %d: %w", r.Ref, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating set row %d: %w", r.Ref, ErrNotFound)
	}
	return nil
}
